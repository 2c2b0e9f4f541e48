package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// EndpointHandler serves /metrics from a gatherer with a short-lived cache,
// so a burst of scrapers within the same window shares one Gather() call
// instead of each re-walking every registered collector.
type EndpointHandler struct {
	gatherer prometheus.Gatherer
	cacheTTL time.Duration

	mu        sync.Mutex
	cached    []byte
	cachedAt  time.Time
}

// NewEndpointHandler wraps the default Prometheus gatherer. cacheTTL of zero
// disables caching.
func NewEndpointHandler(cacheTTL time.Duration) *EndpointHandler {
	return &EndpointHandler{gatherer: prometheus.DefaultGatherer, cacheTTL: cacheTTL}
}

func (h *EndpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := h.render(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("error gathering metrics: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write(body)
}

func (h *EndpointHandler) render(ctx context.Context) ([]byte, error) {
	if h.cacheTTL > 0 {
		h.mu.Lock()
		if h.cached != nil && time.Since(h.cachedAt) < h.cacheTTL {
			body := h.cached
			h.mu.Unlock()
			return body, nil
		}
		h.mu.Unlock()
	}

	families, err := h.gatherer.Gather()
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	body, err := encodeFamilies(families)
	if err != nil {
		return nil, err
	}

	if h.cacheTTL > 0 {
		h.mu.Lock()
		h.cached = body
		h.cachedAt = time.Now()
		h.mu.Unlock()
	}
	return body, nil
}

func encodeFamilies(families []*dto.MetricFamily) ([]byte, error) {
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return nil, fmt.Errorf("encode metric family %s: %w", family.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}
