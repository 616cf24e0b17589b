package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/core"
)

const defaultTimeout = 5 * time.Second

// Config holds the managed channel-messaging service credentials.
type Config struct {
	AppID    string
	Key      string
	Secret   string
	Cluster  string
	Endpoint string // overrides the cluster-derived endpoint when set
}

// Configured reports whether enough credentials are present to talk to the
// managed service.
func (c Config) Configured() bool {
	return c.AppID != "" && c.Key != "" && c.Secret != ""
}

// baseURL resolves the service endpoint from the explicit override or the
// cluster name.
func (c Config) baseURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://api-%s.channelmesh.io", c.Cluster)
}

// triggerRequest is the wire body of a publish call to the managed service.
type triggerRequest struct {
	Name    string          `json:"name"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// Transport publishes events to the managed channel-messaging service over
// authenticated HTTP. Each Trigger is one POST; the service's 2xx answer
// means accepted, nothing more.
type Transport struct {
	cfg    Config
	client *http.Client
	log    *zerolog.Logger
}

// New creates a webhook transport with the given credentials.
func New(cfg Config, logger *zerolog.Logger) *Transport {
	return &Transport{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultTimeout},
		log:    logger,
	}
}

// Trigger posts the envelope to the service's events endpoint. A non-2xx
// status, a network failure or a context timeout all reject the publish; the
// caller decides whether to retry.
func (t *Transport) Trigger(ctx context.Context, channelName string, event core.Envelope) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	body, err := json.Marshal(triggerRequest{
		Name:    string(event.Type),
		Channel: channelName,
		Data:    data,
	})
	if err != nil {
		return fmt.Errorf("encode trigger request: %w", err)
	}

	url := fmt.Sprintf("%s/apps/%s/events", t.cfg.baseURL(), t.cfg.AppID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-App-Key", t.cfg.Key)
	req.Header.Set("X-Signature", sign(t.cfg.Secret, body))

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post trigger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.log.Warn().
			Int("status", resp.StatusCode).
			Str("channel", channelName).
			Msg("trigger rejected by transport service")
		return fmt.Errorf("trigger rejected: status %d: %s", resp.StatusCode, payload)
	}

	return nil
}

// sign computes the hex HMAC-SHA256 of the request body with the app secret.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Ensure Transport implements core.Transport
var _ core.Transport = (*Transport)(nil)
