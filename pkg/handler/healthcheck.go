package handler

import (
	"net/http"

	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/provider"
)

// HealthCheckHandler checks every provider able to check its backend.
func HealthCheckHandler(cs *Collections, logger log.JsonLogger) http.Handler {

	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		healthy := true

		for _, c := range cs.All() {
			hc, ok := c.Provider.(provider.HealthChecker)
			if !ok {
				continue
			}

			if err := hc.HealthCheck(req.Context()); err != nil {
				logger.Error(log.LogCategory_ProviderError, "Healthcheck on collection %s failed: %s", c.ID, err.Error())
				healthy = false
				break
			}
		}

		if healthy {
			rw.WriteHeader(http.StatusOK)
		} else {
			rw.WriteHeader(http.StatusInternalServerError)
		}
	})
}
