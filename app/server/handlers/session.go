package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gramflow/app/server/middlewares"
	"gramflow/app/server/models"
)

// sessionInfo 暴露给消费方的会话形状
type sessionInfo struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	Email         string          `json:"email"`
	Role          models.UserRole `json:"role"`
	Image         string          `json:"image,omitempty"`
	EmailVerified *time.Time      `json:"emailVerified,omitempty"`
}

func (a *App) SessionInfo(c echo.Context) error {
	claims := middlewares.RefreshedClaims(c)
	if claims == nil {
		return a.er(c, http.StatusUnauthorized)
	}

	return c.JSON(http.StatusOK, &sessionInfo{
		ID:            claims.Subject,
		Name:          claims.Name,
		FirstName:     claims.FirstName,
		LastName:      claims.LastName,
		Email:         claims.Email,
		Role:          claims.Role,
		Image:         claims.Image,
		EmailVerified: claims.EmailVerified,
	})
}
