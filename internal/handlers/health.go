package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Students    *int64            `json:"students,omitempty"`
	Environment string            `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Checks:      make(map[string]string, len(h.pingers)),
		Environment: h.cfg.Environment,
	}

	for _, p := range h.pingers {
		resp.Checks[p.Name] = "ok"
		if err := p.Ping(ctx); err != nil {
			resp.Checks[p.Name] = "error"
			resp.Status = "degraded"
			h.logger(c).Error().Err(err).Str("dependency", p.Name).Msg("health ping failed")
		}
	}

	if count, err := h.students.Count(ctx); err == nil {
		resp.Students = &count
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
