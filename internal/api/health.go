package api

import (
	"context"
	"net/http"
	"time"

	"pairprog/internal/utils"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether an optional dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed" | "disabled"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]ReadinessCheck)
	ready := true

	if h.registry == nil {
		checks["registry"] = ReadinessCheck{Status: "failed", Message: "Room registry not initialized"}
		ready = false
	} else {
		checks["registry"] = ReadinessCheck{Status: "ok"}
	}

	if h.hub == nil || h.dispatcher == nil {
		checks["hub"] = ReadinessCheck{Status: "failed", Message: "Connection hub not initialized"}
		ready = false
	} else {
		checks["hub"] = ReadinessCheck{Status: "ok"}
	}

	// Presence events are best effort, so a failed ping is reported but
	// does not make the service unready.
	if h.presence == nil {
		checks["presence"] = ReadinessCheck{Status: "disabled"}
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.presence.Ping(ctx); err != nil {
			checks["presence"] = ReadinessCheck{Status: "failed", Message: err.Error()}
		} else {
			checks["presence"] = ReadinessCheck{Status: "ok"}
		}
	}

	resp := ReadinessResponse{Service: "collab", Checks: checks}
	if ready {
		resp.Status = "ready"
		utils.JSON(w, http.StatusOK, resp)
		return
	}
	resp.Status = "not_ready"
	utils.JSON(w, http.StatusServiceUnavailable, resp)
}
