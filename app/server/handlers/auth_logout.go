package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gramflow/app/server/middlewares"
)

func (a *App) AuthLogout(c echo.Context) error {
	middlewares.ClearSessionCookie(c)
	return c.NoContent(http.StatusOK)
}
