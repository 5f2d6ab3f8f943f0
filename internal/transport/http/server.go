// Package http provides the HTTP server for the chat backend.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hzhu628/kontext/internal/service"
	v1 "github.com/hzhu628/kontext/internal/transport/http/v1"
	"github.com/hzhu628/kontext/internal/vectorstore"
)

// NewServer creates and configures the HTTP server with all routes.
func NewServer(svc *service.Service, index vectorstore.Index, modelInfo map[string]string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Routes
	v1.NewHandler(svc, index, modelInfo).RegisterRoutes(e)

	return e
}
