package drops

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, dropsService *Service) {
	h := &handler{
		dropsService: dropsService,
	}

	g := e.Group("/drops")
	g.POST("", h.dropLocal)
	g.POST("/s3", h.dropS3)
}
