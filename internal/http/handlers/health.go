package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthProbe struct {
	PingDB      func(ctx context.Context) error
	TableExists func(ctx context.Context, name string) (bool, error)
}

type HealthHandler struct {
	probe HealthProbe
}

func NewHealthHandler(probe HealthProbe) *HealthHandler {
	return &HealthHandler{probe: probe}
}

// Health reports database reachability and per-table presence; the
// frontend splash screen polls it before rendering.
func (h *HealthHandler) Health(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	if err := h.probe.PingDB(rctx); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}

	tables := gin.H{}
	healthy := true

	for _, name := range []string{"users", "tasks"} {
		exists, err := h.probe.TableExists(rctx, name)

		if err != nil {
			exists = false
		}

		if !exists {
			healthy = false
		}

		tables[name] = exists
	}

	status := "ok"
	code := http.StatusOK

	if !healthy {
		status = "degraded"
		code = http.StatusInternalServerError
	}

	ctx.JSON(code, gin.H{
		"status":   status,
		"database": "connected",
		"tables":   tables,
	})
}
