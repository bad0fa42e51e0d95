// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nyudlts/ultraviolet-access/internal/api"
	"github.com/nyudlts/ultraviolet-access/internal/secretlink"
)

func startServer(t *testing.T, opts ...api.Option) *api.Server {
	t.Helper()

	server := api.NewServer("127.0.0.1:0", opts...)
	_, err := server.Start()
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

// postJSON posts a request body and decodes the response into out,
// returning the raw response for header and status assertions.
func postJSON(t *testing.T, addr, path string, body, out any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post("http://"+addr+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestCheck_SuperuserAllowed(t *testing.T) {
	server := startServer(t)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/check", map[string]any{
		"policy":   "ultraviolet",
		"action":   "read",
		"record":   map[string]any{"access": map[string]string{"record": "restricted"}},
		"provides": []string{"superuser-access"},
	}, &out)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["allowed"])
	assert.Equal(t, "ultraviolet", out["policy"])
	assert.Equal(t, "read", out["action"])
	assert.NotEmpty(t, out["request_id"])
	assert.Equal(t, out["request_id"], resp.Header.Get("X-Request-Id"))
}

func TestCheck_AnonymousDeniedOnRestricted(t *testing.T) {
	server := startServer(t)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/check", map[string]any{
		"policy":   "data-use-record",
		"action":   "read",
		"record":   map[string]any{"access": map[string]string{"record": "restricted"}},
		"provides": []string{"any-user"},
	}, &out)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["allowed"])
}

func TestCheck_AnonymousAllowedOnOpen(t *testing.T) {
	server := startServer(t)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/check", map[string]any{
		"policy":   "ultraviolet",
		"action":   "read",
		"record":   map[string]any{"access": map[string]string{"record": "open"}},
		"provides": []string{"any-user"},
	}, &out)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["allowed"])
}

func TestCheck_UnknownAction(t *testing.T) {
	server := startServer(t)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/check", map[string]any{
		"policy":   "ultraviolet",
		"action":   "teleport",
		"provides": []string{"superuser-access"},
	}, &out)

	// Unknown actions are a deny decision, not a transport error.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["allowed"])
}

func TestCheck_BadRequests(t *testing.T) {
	server := startServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown policy", map[string]any{
			"policy": "mars", "action": "read", "provides": []string{"any-user"},
		}},
		{"missing action", map[string]any{
			"policy": "ultraviolet", "provides": []string{"any-user"},
		}},
		{"unrecognized need", map[string]any{
			"policy": "ultraviolet", "action": "read", "provides": []string{"wizard"},
		}},
		{"invalid record", map[string]any{
			"policy": "ultraviolet", "action": "read", "record": "not an object",
		}},
		{"link token without signer", map[string]any{
			"policy": "ultraviolet", "action": "read", "link_token": "uv1.x.view.1.y",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			resp := postJSON(t, server.Addr(), "/v1/check", tt.body, &out)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
			assert.NotEmpty(t, out["request_id"])
		})
	}
}

func TestCheck_MalformedBody(t *testing.T) {
	server := startServer(t)

	resp, err := http.Post("http://"+server.Addr()+"/v1/check", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheck_LinkToken(t *testing.T) {
	signer, err := secretlink.NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	server := startServer(t, api.WithSigner(signer))

	token, err := signer.Sign("lnk1", secretlink.LevelView, time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec := map[string]any{
		"access": map[string]string{"record": "restricted"},
		"parent": map[string]any{
			"access": map[string]any{
				"links": []map[string]string{{"id": "lnk1", "permission": "view"}},
			},
		},
	}

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/check", map[string]any{
		"policy":     "ultraviolet",
		"action":     "read",
		"record":     rec,
		"provides":   []string{"any-user"},
		"link_token": token,
	}, &out)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["allowed"])

	// The same identity without the token stays denied.
	resp = postJSON(t, server.Addr(), "/v1/check", map[string]any{
		"policy":   "ultraviolet",
		"action":   "read",
		"record":   rec,
		"provides": []string{"any-user"},
	}, &out)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["allowed"])
}

func TestCheck_ExpiredLinkTokenRejected(t *testing.T) {
	signer, err := secretlink.NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	server := startServer(t, api.WithSigner(signer))

	token, err := signer.Sign("lnk1", secretlink.LevelView, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/check", map[string]any{
		"policy":     "ultraviolet",
		"action":     "read",
		"provides":   []string{"any-user"},
		"link_token": token,
	}, &out)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFilter_Anonymous(t *testing.T) {
	server := startServer(t)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/filter", map[string]any{
		"policy":   "ultraviolet",
		"action":   "search",
		"provides": []string{"any-user"},
	}, &out)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ultraviolet", out["policy"])
	assert.Equal(t, "search", out["action"])
	assert.NotEmpty(t, out["request_id"])

	query, ok := out["query"].(map[string]any)
	require.True(t, ok, "query should be an object: %v", out["query"])
	assert.Contains(t, query, "match_all")
}

func TestFilter_DisabledAction(t *testing.T) {
	server := startServer(t)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/filter", map[string]any{
		"policy":   "ultraviolet",
		"action":   "delete",
		"provides": []string{"superuser-access"},
	}, &out)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	query, ok := out["query"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, query, "match_none")
}

func TestFilter_UnknownPolicy(t *testing.T) {
	server := startServer(t)

	var out map[string]any
	resp := postJSON(t, server.Addr(), "/v1/filter", map[string]any{
		"policy": "mars",
		"action": "search",
	}, &out)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StartStop(t *testing.T) {
	// IgnoreCurrent excludes idle HTTP client goroutines left by earlier
	// tests; this test makes no requests of its own.
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := api.NewServer("127.0.0.1:0")
	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	// Double start fails while running.
	_, err = server.Start()
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error channel to close")
	}

	// Stop is idempotent.
	assert.NoError(t, server.Stop(ctx))
}
