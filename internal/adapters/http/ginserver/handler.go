package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vshulcz/Lumectra/internal/services/status"
)

// Handler exposes the collector's health, per-device status and instrumentation.
type Handler struct {
	status   *status.Tracker
	queueLen func() int
	metrics  http.Handler
}

// NewHandler wires the status tracker, the queue depth probe and the Prometheus gatherer.
func NewHandler(tr *status.Tracker, queueLen func() int, g prometheus.Gatherer) *Handler {
	if queueLen == nil {
		queueLen = func() int { return 0 }
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Handler{
		status:   tr,
		queueLen: queueLen,
		metrics:  promhttp.HandlerFor(g, promhttp.HandlerOpts{DisableCompression: true}),
	}
}

// Ping handles `GET /ping`.
func (h *Handler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// DevicesResponse is the body of `GET /devices`.
type DevicesResponse struct {
	Devices    []status.DeviceStatus `json:"devices"`
	QueueDepth int                   `json:"queue_depth"`
}

// Devices handles `GET /devices` listing every device reader and the delivery queue depth.
func (h *Handler) Devices(c *gin.Context) {
	c.JSON(http.StatusOK, DevicesResponse{
		Devices:    h.status.Snapshot(),
		QueueDepth: h.queueLen(),
	})
}

// Device handles `GET /devices/:host`.
func (h *Handler) Device(c *gin.Context) {
	st, ok := h.status.Get(c.Param("host"))
	if !ok {
		c.String(http.StatusNotFound, "not found")
		return
	}
	c.JSON(http.StatusOK, st)
}

// Metrics handles `GET /metrics` in the Prometheus exposition format.
func (h *Handler) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}
