package analytics

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/metrics"
	"github.com/localcontactforms/contactform/pkg/types"
)

// EventObserver counts emit outcomes. *metrics.PrometheusMetrics satisfies it.
type EventObserver interface {
	RecordAnalyticsEvent(outcome string)
}

// HTTPEmitter POSTs each event to the log-analytics endpoint from its own
// goroutine.
type HTTPEmitter struct {
	client   *fasthttp.Client
	endpoint string
	timeout  time.Duration
	observer EventObserver
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewHTTPEmitter posts to endpoint. observer may be nil.
func NewHTTPEmitter(endpoint string, timeout time.Duration, observer EventObserver, logger *zap.Logger) *HTTPEmitter {
	return &HTTPEmitter{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		endpoint: endpoint,
		timeout:  timeout,
		observer: observer,
		logger:   logger,
	}
}

// Emit returns immediately. Events emitted after Close are dropped.
func (h *HTTPEmitter) Emit(event *types.AnalyticsEvent) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.observe(metrics.OutcomeDropped)
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		if err := h.post(event); err != nil {
			h.logger.Warn("Analytics beacon failed",
				zap.String("tenant_id", event.TenantID),
				zap.String("endpoint", h.endpoint),
				zap.Error(err))
			h.observe(metrics.OutcomeFailed)
			return
		}
		h.observe(metrics.OutcomeSuccess)
	}()
}

func (h *HTTPEmitter) post(event *types.AnalyticsEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := h.client.DoTimeout(req, resp, h.timeout); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("log-analytics returned status %d: %s", resp.StatusCode(), truncate(resp.Body(), 200))
	}
	return nil
}

// Close waits for in-flight posts to finish.
func (h *HTTPEmitter) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.wg.Wait()
	return nil
}

func (h *HTTPEmitter) observe(outcome string) {
	if h.observer != nil {
		h.observer.RecordAnalyticsEvent(outcome)
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
