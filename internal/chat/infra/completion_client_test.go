package infra_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
	"github.com/lbatal/storefront-assistant-go/internal/chat/infra"
	maindomain "github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/lbatal/storefront-assistant-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCfg = resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxConcurrency: 4}

func newClient(t *testing.T, srv *httptest.Server, key string, cfg resilience.Config) *infra.CompletionClient {
	t.Helper()
	return infra.NewCompletionClient(srv.Client(), srv.URL+"/api/v1", key, resilience.NewCircuitBreaker(t.Name(), zap.NewNop()), cfg)
}

func sampleRequest() *domain.CompletionRequest {
	return &domain.CompletionRequest{
		Model: "test-model",
		Messages: []domain.Turn{
			{Role: domain.RoleSystem, Content: "system"},
			{Role: domain.RoleUser, Content: "ch7al iPhone 12?"},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}
}

func TestComplete_Success(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"iPhone 12 b 4500 DH"}}],"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}}`))
	}))
	defer srv.Close()

	resp, err := newClient(t, srv, "sk-test", testCfg).Complete(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "iPhone 12 b 4500 DH", resp.Content)
	assert.Equal(t, 120, resp.PromptTokens)
	assert.Equal(t, 30, resp.CompletionTokens)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/api/v1/chat/completions", gotPath)
	assert.Equal(t, "test-model", gotBody["model"])
	assert.EqualValues(t, 500, gotBody["max_tokens"])
	assert.Len(t, gotBody["messages"], 2)
}

func TestComplete_MissingCredentialMakesNoCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, err := newClient(t, srv, "", testCfg).Complete(context.Background(), sampleRequest())

	var missing *maindomain.ErrMissingCredential
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, infra.CredentialName, missing.Name)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestComplete_UpstreamStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited with error body", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`},
		{"server error without body", http.StatusBadGateway, `upstream down`},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv, "sk-test", testCfg).Complete(context.Background(), sampleRequest())

			var ext *maindomain.ErrExternalService
			require.ErrorAs(t, err, &ext)
			assert.Equal(t, tt.status, ext.StatusCode)
		})
	}
}

func TestComplete_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"no choices", `{"choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv, "sk-test", testCfg).Complete(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedCompletion), "got %v", err)
		})
	}
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := testCfg
	cfg.MaxRetries = 2
	resp, err := newClient(t, srv, "sk-test", cfg).Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestComplete_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testCfg
	cfg.MaxRetries = 3
	_, err := newClient(t, srv, "sk-test", cfg).Complete(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_CircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newClient(t, srv, "sk-test", testCfg)

	// O breaker abre depois de 5 requests com >= 60% de falha.
	for i := 0; i < 5; i++ {
		_, _ = client.Complete(context.Background(), sampleRequest())
	}

	_, err := client.Complete(context.Background(), sampleRequest())
	var open *maindomain.ErrCircuitOpen
	require.ErrorAs(t, err, &open)
	assert.Equal(t, infra.CompletionService, open.Service)
}

func TestComplete_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newClient(t, srv, "sk-test", testCfg)
	srv.Close()

	_, err := client.Complete(context.Background(), sampleRequest())

	var ext *maindomain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Zero(t, ext.StatusCode)
	assert.False(t, errors.Is(err, domain.ErrMalformedCompletion))
}
