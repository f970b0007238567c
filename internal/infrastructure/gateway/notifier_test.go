package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/config"
)

func TestDeliverPostsMessage(t *testing.T) {
	t.Parallel()

	var got message
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewNotifier(config.DeliveryConfig{GatewayURL: server.URL + "/", Channel: "telegram", Target: "42"}, nil)
	require.NoError(t, n.Deliver(context.Background(), "hello"))

	assert.Equal(t, "/api/message", path)
	assert.Equal(t, message{Action: "send", Channel: "telegram", Target: "42", Message: "hello"}, got)
}

func TestDeliverNon2xxIsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad target", http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewNotifier(config.DeliveryConfig{GatewayURL: server.URL, Target: "42"}, nil).
		Deliver(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad target")
}

func TestDeliverWithoutTargetFails(t *testing.T) {
	t.Parallel()

	err := NewNotifier(config.DeliveryConfig{GatewayURL: "http://127.0.0.1:1"}, nil).Deliver(context.Background(), "x")
	require.Error(t, err)
}

func TestResolveEndpoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gateway.jsonc")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{
  // local gateway
  "gatewayUrl": "http://gateway.lan:7000/",
  "channels": ["telegram",],
}`), 0o600))

	assert.Equal(t, "http://explicit:1", ResolveEndpoint(config.DeliveryConfig{GatewayURL: "http://explicit:1", GatewayConfigPath: cfgPath}, nil))
	assert.Equal(t, "http://gateway.lan:7000", ResolveEndpoint(config.DeliveryConfig{GatewayConfigPath: cfgPath}, nil))
	assert.Equal(t, config.DefaultGatewayURL(), ResolveEndpoint(config.DeliveryConfig{GatewayConfigPath: filepath.Join(dir, "missing.json")}, nil))
	assert.Equal(t, config.DefaultGatewayURL(), ResolveEndpoint(config.DeliveryConfig{}, nil))
}
