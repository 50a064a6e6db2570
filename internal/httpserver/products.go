package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
)

type productListResponse struct {
	Products   []productResponse `json:"products"`
	Pagination domain.PageInfo   `json:"pagination"`
}

func (h *handlers) listProducts(c *gin.Context) {
	params, ok := productListParams(c)
	if !ok {
		return
	}
	h.writeProductList(c, params)
}

func (h *handlers) listAllProducts(c *gin.Context) {
	params, ok := productListParams(c)
	if !ok {
		return
	}
	params.Admin = true
	if v := c.Query("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "isActive must be true or false"})
			return
		}
		params.IsActive = &active
	}
	h.writeProductList(c, params)
}

func (h *handlers) writeProductList(c *gin.Context, params productsvc.ListParams) {
	res, err := h.Products.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, err, "Error fetching products")
		return
	}
	c.JSON(http.StatusOK, productListResponse{Products: toProducts(res.Products), Pagination: res.Page})
}

func productListParams(c *gin.Context) (productsvc.ListParams, bool) {
	p := productsvc.ListParams{
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		InStock:   c.Query("inStock") == "true",
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &p.MinPrice, "maxPrice": &p.MaxPrice} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": key + " must be a number"})
			return p, false
		}
		*dst = &d
	}
	return p, true
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.Products.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Error fetching categories")
		return
	}
	if cats == nil {
		cats = []string{}
	}
	c.JSON(http.StatusOK, cats)
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching product")
		return
	}
	c.JSON(http.StatusOK, toProduct(*p))
}

// getAnyProduct lets admins load a product whatever its state, e.g. to edit an inactive one.
func (h *handlers) getAnyProduct(c *gin.Context) {
	p, err := h.Products.GetAny(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching product")
		return
	}
	c.JSON(http.StatusOK, toProduct(*p))
}

func (h *handlers) createProduct(c *gin.Context) {
	var in productsvc.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	p, err := h.Products.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err, "Error creating product")
		return
	}
	c.JSON(http.StatusCreated, toProduct(*p))
}

func (h *handlers) updateProduct(c *gin.Context) {
	var in productsvc.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	p, err := h.Products.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err, "Error updating product")
		return
	}
	c.JSON(http.StatusOK, toProduct(*p))
}

func (h *handlers) deleteProduct(c *gin.Context) {
	if err := h.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Error deleting product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (h *handlers) uploadProductImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, productsvc.MaxImageBytes+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.logger, err, "Error uploading image")
		return
	}
	defer f.Close()

	p, err := h.Products.UploadImage(c.Request.Context(), c.Param("id"), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		respondError(c, h.logger, err, "Error uploading image")
		return
	}
	c.JSON(http.StatusOK, toProduct(*p))
}

// queryInt returns 0 for a missing or malformed value so services apply their defaults.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
