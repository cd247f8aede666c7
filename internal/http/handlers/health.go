package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger func(ctx context.Context) error

type HealthHandler struct {
	pings map[string]Pinger
}

// NewHealthHandler takes named readiness probes (db, redis, ...); nil
// entries are skipped.
func NewHealthHandler(pings map[string]Pinger) *HealthHandler {
	return &HealthHandler{pings: pings}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	for name, ping := range h.pings {
		if ping == nil {
			continue
		}

		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)

		err := ping(cctx)

		cancel()

		if err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"failing": name,
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
