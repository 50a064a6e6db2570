package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	authsvc "storefront/internal/service/auth"
	productsvc "storefront/internal/service/product"
)

// respondError maps service errors to a status code and a {"message"} body. Unknown errors are
// logged and reported with the generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error, generic string) {
	var verr *domain.ValidationError
	var cerr *domain.ConflictError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"message": verr.Error()}
		if len(verr.Fields) > 0 {
			body["errors"] = verr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, domain.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMessage(c)})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{"message": cerr.Error()})
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, productsvc.ErrImagesDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Image uploads are not configured"})
	default:
		logger.Error(generic,
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": generic})
	}
}

func notFoundMessage(c *gin.Context) string {
	if msg, ok := c.Get(notFoundKey); ok {
		return msg.(string)
	}
	return "Not found"
}

const notFoundKey = "notFoundMessage"

// resource names the entity a handler serves so 404 bodies read "Product not found".
func resource(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(notFoundKey, name+" not found")
		c.Next()
	}
}
