package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the status server routes.
func NewRouter(h *Handler, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})
	// written inside the chain so response middlewares see the body
	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "404 page not found")
	})

	r.GET("/ping", h.Ping)
	r.GET("/devices", h.Devices)
	r.GET("/devices/:host", h.Device)
	r.GET("/metrics", h.Metrics)

	return r
}
