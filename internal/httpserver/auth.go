package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Error logging in")
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: res.Token, User: toUser(res.User)})
}

func (h *handlers) me(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}
	u, err := h.Auth.Me(c.Request.Context(), claims.Subject)
	if err != nil {
		c.Set(notFoundKey, "User not found")
		respondError(c, h.logger, err, "Error fetching user")
		return
	}
	c.JSON(http.StatusOK, toUser(u))
}
