// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const readinessTimeout = 2 * time.Second

// HealthStatus is the data of a health response.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live handles GET /api/v1/health/live. It only proves the process serves
// HTTP.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthStatus{Status: "ok"})
}

// Ready handles GET /api/v1/health/ready. Every check runs concurrently
// under a shared deadline; any failure answers 503.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(h.deps.Checks))
		healthy = true
	)
	for _, c := range h.deps.Checks {
		wg.Add(1)
		go func(c ReadinessCheck) {
			defer wg.Done()
			err := c.Check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[c.Name] = err.Error()
				healthy = false
				return
			}
			results[c.Name] = "ok"
		}(c)
	}
	wg.Wait()

	if !healthy {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, CodeUnavailable, "not ready", results)
		return
	}
	rw.Success(HealthStatus{Status: "ready", Checks: results})
}
