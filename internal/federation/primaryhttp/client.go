// Package primaryhttp is the HTTP client for the hosted primary identity
// provider: session introspection, template token minting, identity fetch,
// and sign-out.
package primaryhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20 // 1 MiB
)

// HTTPDoer is the minimal HTTP client surface, injectable for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the provider client.
type Config struct {
	BaseURL string
	// APIKey authenticates this backend against the provider's API.
	APIKey         string
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
}

// Client implements federation.PrimaryProvider against the hosted IdP's
// REST API. The last introspected session is the synchronously observable
// snapshot; Refresh re-resolves it.
type Client struct {
	baseURL        string
	httpClient     HTTPDoer
	requestTimeout time.Duration

	mu   sync.RWMutex
	snap federation.PrimarySnapshot
}

// NewClient creates a provider client. When no HTTP client is supplied, an
// oauth2 client with a static bearer token source is used.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		source := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.APIKey,
			TokenType:   "Bearer",
		})
		httpClient = oauth2.NewClient(context.Background(), source)
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}
}

// Snapshot returns the last resolved provider state. Loaded stays false
// until the first successful Refresh.
func (c *Client) Snapshot() federation.PrimarySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Refresh introspects the current provider session. A definitive "no
// session" answer still marks the snapshot as loaded; only transport
// failures leave it unresolved.
func (c *Client) Refresh(ctx context.Context) error {
	payload, status, err := c.getJSON(ctx, c.baseURL+"/v1/sessions/current")
	if err != nil {
		return fmt.Errorf("primaryhttp: session introspection: %w", err)
	}

	snap := federation.PrimarySnapshot{Loaded: true}
	if status == http.StatusOK && readString(payload["status"]) == "active" {
		snap.UserID = readString(payload["user_id"])
		snap.SessionID = readString(payload["session_id"])
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

// GetToken mints a signed, time-boxed token from the named template, scoped
// for the backing data store.
func (c *Client) GetToken(ctx context.Context, template string) (string, error) {
	snap := c.Snapshot()
	if snap.SessionID == "" {
		return "", fmt.Errorf("primaryhttp: no active session to mint token from")
	}

	endpoint := fmt.Sprintf("%s/v1/sessions/%s/tokens/%s",
		c.baseURL, url.PathEscape(snap.SessionID), url.PathEscape(template))
	payload, status, err := c.postJSON(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("primaryhttp: mint token: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("primaryhttp: token endpoint returned status %d", status)
	}
	token := readString(payload["jwt"])
	if token == "" {
		return "", fmt.Errorf("primaryhttp: token endpoint returned empty jwt")
	}
	return token, nil
}

// FetchIdentity loads the external identity for the current session's user.
func (c *Client) FetchIdentity(ctx context.Context) (*domain.ExternalIdentity, error) {
	snap := c.Snapshot()
	if snap.UserID == "" {
		return nil, fmt.Errorf("primaryhttp: no authenticated user")
	}

	payload, status, err := c.getJSON(ctx, c.baseURL+"/v1/users/"+url.PathEscape(snap.UserID))
	if err != nil {
		return nil, fmt.Errorf("primaryhttp: fetch identity: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("primaryhttp: identity endpoint returned status %d", status)
	}
	return normalizeIdentity(snap.UserID, payload), nil
}

// SignOut revokes the current provider session and clears the snapshot.
func (c *Client) SignOut(ctx context.Context) error {
	snap := c.Snapshot()
	if snap.SessionID != "" {
		endpoint := c.baseURL + "/v1/sessions/" + url.PathEscape(snap.SessionID) + "/revoke"
		if _, status, err := c.postJSON(ctx, endpoint); err != nil {
			return fmt.Errorf("primaryhttp: revoke session: %w", err)
		} else if status >= http.StatusBadRequest && status != http.StatusNotFound {
			return fmt.Errorf("primaryhttp: revoke endpoint returned status %d", status)
		}
	}

	c.mu.Lock()
	c.snap = federation.PrimarySnapshot{Loaded: true}
	c.mu.Unlock()
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string) (map[string]any, int, error) {
	return c.doJSON(ctx, http.MethodGet, endpoint)
}

func (c *Client) postJSON(ctx context.Context, endpoint string) (map[string]any, int, error) {
	return c.doJSON(ctx, http.MethodPost, endpoint)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string) (map[string]any, int, error) {
	requestCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes+1))
	if readErr != nil {
		return nil, res.StatusCode, fmt.Errorf("read response: %w", readErr)
	}
	if int64(len(body)) > maxResponseBytes {
		return nil, res.StatusCode, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}

	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, res.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return payload, res.StatusCode, nil
}

func normalizeIdentity(userID string, payload map[string]any) *domain.ExternalIdentity {
	name := readString(payload["name"])
	if name == "" {
		name = strings.TrimSpace(strings.Join([]string{
			readString(payload["first_name"]),
			readString(payload["last_name"]),
		}, " "))
	}
	return &domain.ExternalIdentity{
		ProviderUserID: userID,
		DisplayName:    name,
		Email:          readString(payload["email"]),
		AvatarURL:      readString(payload["image_url"]),
		Raw:            payload,
	}
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

var _ federation.PrimaryProvider = (*Client)(nil)
