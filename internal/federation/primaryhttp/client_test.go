package primaryhttp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/identity-core/internal/federation/primaryhttp"
)

func newTestClient(handler http.Handler) (*primaryhttp.Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := primaryhttp.NewClient(primaryhttp.Config{
		BaseURL:        server.URL,
		HTTPClient:     server.Client(),
		RequestTimeout: time.Second,
	})
	return client, server
}

func TestRefresh_ActiveSession(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/sessions/current", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"active","user_id":"user_1","session_id":"sess_1"}`))
	}))
	defer server.Close()

	assert.False(t, client.Snapshot().Loaded)
	require.NoError(t, client.Refresh(context.Background()))

	snap := client.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Equal(t, "user_1", snap.UserID)
	assert.Equal(t, "sess_1", snap.SessionID)
	assert.True(t, snap.Authenticated())
}

func TestRefresh_NoSessionStillLoads(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	require.NoError(t, client.Refresh(context.Background()))
	snap := client.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Empty(t, snap.UserID)
	assert.False(t, snap.Authenticated())
}

func TestGetToken(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/sessions/current":
			_, _ = w.Write([]byte(`{"status":"active","user_id":"user_1","session_id":"sess_1"}`))
		case "/v1/sessions/sess_1/tokens/backing-store":
			require.Equal(t, http.MethodPost, r.Method)
			_, _ = w.Write([]byte(`{"jwt":"signed.jwt.value"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	require.NoError(t, client.Refresh(context.Background()))
	token, err := client.GetToken(context.Background(), "backing-store")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt.value", token)
}

func TestGetToken_NoSession(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := client.GetToken(context.Background(), "backing-store")
	assert.Error(t, err)
}

func TestFetchIdentity(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/sessions/current":
			_, _ = w.Write([]byte(`{"status":"active","user_id":"user_1","session_id":"sess_1"}`))
		case "/v1/users/user_1":
			_, _ = w.Write([]byte(`{"first_name":"Pat","last_name":"Doe","email":"pat@example.com","image_url":"https://img.example.com/p.png"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	require.NoError(t, client.Refresh(context.Background()))
	identity, err := client.FetchIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user_1", identity.ProviderUserID)
	assert.Equal(t, "Pat Doe", identity.DisplayName)
	assert.Equal(t, "pat@example.com", identity.Email)
	assert.Equal(t, "https://img.example.com/p.png", identity.AvatarURL)
}

func TestSignOut_ClearsSnapshot(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/sessions/current":
			_, _ = w.Write([]byte(`{"status":"active","user_id":"user_1","session_id":"sess_1"}`))
		case "/v1/sessions/sess_1/revoke":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	require.NoError(t, client.Refresh(context.Background()))
	require.NoError(t, client.SignOut(context.Background()))

	snap := client.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Empty(t, snap.UserID)
	assert.Empty(t, snap.SessionID)
}
