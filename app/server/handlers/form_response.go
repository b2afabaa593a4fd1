package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// FormResponse 表单类接口的统一响应体
type FormResponse struct {
	Error     string `json:"error,omitempty"`
	Success   string `json:"success,omitempty"`
	TwoFactor bool   `json:"twoFactor,omitempty"`
}

func (a *App) fail(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, &FormResponse{Error: message})
}

func (a *App) ok(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, &FormResponse{Success: message})
}

// er 非表单类接口的通用错误返回
func (a *App) er(c echo.Context, statusCode int) error {
	return c.JSON(statusCode, &FormResponse{Error: http.StatusText(statusCode)})
}
