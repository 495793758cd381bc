package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	probeOK       = "ok"
	probeError    = "error"
	probeDisabled = "disabled"
)

// HealthProbe checks one dependency. A nil Check marks the dependency as not
// configured; it is reported but never fails the overall status.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"ts"`
	Environment string            `json:"environment"`
	Services    map[string]string `json:"services"`
}

func (h HandlerSet) Health(c *gin.Context) {
	timeout := 5 * time.Second
	env := ""
	if h.cfg != nil {
		env = h.cfg.Environment
		if h.cfg.HTTP.OutboundTimeout > 0 {
			timeout = h.cfg.HTTP.OutboundTimeout
		}
	}

	services := make(map[string]string, len(h.probes))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	healthy := true
	for _, probe := range h.probes {
		if probe.Check == nil {
			services[probe.Name] = probeDisabled
			continue
		}
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			defer cancel()

			status := probeOK
			if err := p.Check(ctx); err != nil {
				status = probeError
				h.log.Error().Err(err).Str("service", p.Name).Msg("health probe failed")
			}
			mu.Lock()
			services[p.Name] = status
			if status != probeOK {
				healthy = false
			}
			mu.Unlock()
		}(probe)
	}
	wg.Wait()

	resp := healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: env,
		Services:    services,
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
