// Package gateway delivers digests through a local messaging gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/ports"
)

// Notifier posts digests to `{base}/api/message`.
type Notifier struct {
	endpoint string
	channel  string
	target   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

type message struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

// NewNotifier resolves the gateway base URL and builds the notifier.
func NewNotifier(cfg config.DeliveryConfig, logger *slog.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		endpoint: ResolveEndpoint(cfg, logger),
		channel:  cfg.Channel,
		target:   cfg.Target,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint is the base URL messages are posted to.
func (n *Notifier) Endpoint() string {
	return n.endpoint
}

// Deliver sends the text; only a 2xx answer counts as success.
func (n *Notifier) Deliver(ctx context.Context, text string) error {
	if n.target == "" {
		return fmt.Errorf("gateway notifier misconfigured: target is empty")
	}

	body, err := json.Marshal(message{Action: "send", Channel: n.channel, Target: n.target, Message: text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+"/api/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return nil
}

// ResolveEndpoint prefers the configured URL, then `gatewayUrl` from the
// gateway's own JSONC config file, then the default.
func ResolveEndpoint(cfg config.DeliveryConfig, logger *slog.Logger) string {
	if cfg.GatewayURL != "" {
		return strings.TrimRight(cfg.GatewayURL, "/")
	}
	if cfg.GatewayConfigPath != "" {
		url, err := readGatewayURL(cfg.GatewayConfigPath)
		if err == nil && url != "" {
			return strings.TrimRight(url, "/")
		}
		if err != nil && logger != nil {
			logger.Debug("gateway config unavailable", "path", cfg.GatewayConfigPath, "error", err)
		}
	}
	return config.DefaultGatewayURL()
}

func readGatewayURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	var content struct {
		GatewayURL string `json:"gatewayUrl"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &content); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return strings.TrimSpace(content.GatewayURL), nil
}
