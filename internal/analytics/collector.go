package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://www.google-analytics.com/mp/collect"
	sendTimeout     = 5 * time.Second
)

// Collector ships events to a GA4 Measurement Protocol endpoint. Sends are
// fire-and-forget: they run detached from the request and only log failures.
type Collector struct {
	endpoint      string
	measurementID string
	apiSecret     string
	clientID      string
	http          *http.Client
	logger        *zap.Logger
	wg            sync.WaitGroup
}

// NewCollector constructs a collector for the given GA4 property. When the
// measurement id is empty the collector is nil and Track becomes a no-op.
// clientID is the fallback for events tracked outside a session; per-visitor
// events carry the client id pinned on their context via WithClientID.
func NewCollector(measurementID, apiSecret, clientID string, logger *zap.Logger) *Collector {
	if strings.TrimSpace(measurementID) == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		endpoint:      defaultEndpoint,
		measurementID: strings.TrimSpace(measurementID),
		apiSecret:     strings.TrimSpace(apiSecret),
		clientID:      strings.TrimSpace(clientID),
		http:          &http.Client{Timeout: sendTimeout},
		logger:        logger,
	}
}

type clientIDCtxKey struct{}

// WithClientID pins the GA client id used for events tracked under ctx, so
// each visitor reports as their own analytics client.
func WithClientID(ctx context.Context, id string) context.Context {
	if strings.TrimSpace(id) == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIDCtxKey{}, id)
}

func clientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDCtxKey{}).(string)
	return id
}

type mpEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

type mpPayload struct {
	ClientID string    `json:"client_id"`
	Events   []mpEvent `json:"events"`
}

// Send implements Sink.
func (c *Collector) Send(ctx context.Context, ev Event) {
	if c == nil {
		return
	}
	params := make(map[string]any, len(ev.Params)+3)
	for k, v := range ev.Params {
		params[k] = v
	}
	if ev.Currency != "" {
		params["currency"] = ev.Currency
	}
	if ev.Value != 0 {
		params["value"] = ev.Value
	}
	if len(ev.Items) > 0 {
		params["items"] = ev.Items
	}

	clientID := clientIDFromContext(ctx)
	if clientID == "" {
		clientID = c.clientID
	}
	payload, err := json.Marshal(mpPayload{
		ClientID: clientID,
		Events:   []mpEvent{{Name: ev.Name, Params: params}},
	})
	if err != nil {
		c.logger.Debug("analytics: marshal failed", zap.String("event", ev.Name), zap.Error(err))
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.post(ev.Name, payload)
	}()
}

func (c *Collector) post(name string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("measurement_id", c.measurementID)
	if c.apiSecret != "" {
		q.Set("api_secret", c.apiSecret)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		c.logger.Debug("analytics: build request failed", zap.String("event", name), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("analytics: send failed", zap.String("event", name), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		c.logger.Debug("analytics: collector rejected event",
			zap.String("event", name), zap.Int("status", resp.StatusCode))
	}
}

// Flush waits for in-flight sends, bounded by the context.
func (c *Collector) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
