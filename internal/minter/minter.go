// Package minter implements the Ephemeral Token Minter: exchanges the
// server-held long-lived upstream secret plus a whitelisted session config
// for a short-lived upstream credential.
package minter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/relay/internal/types"
)

// Minter mints an ephemeral upstream credential scoped to a session config.
type Minter interface {
	Mint(ctx context.Context, cfg types.SessionConfig) (types.EphemeralCredential, error)
}

// HTTPMinter calls the upstream sessions endpoint over HTTPS.
type HTTPMinter struct {
	client          *resty.Client
	sessionsURL     string
	apiKey          string
	protocolVersion string
}

// New builds an HTTPMinter pointed at the upstream sessions endpoint.
func New(baseURL, apiKey, protocolVersion string) *HTTPMinter {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(0)
	return &HTTPMinter{
		client:          client,
		sessionsURL:     baseURL + "/realtime/sessions",
		apiKey:          apiKey,
		protocolVersion: protocolVersion,
	}
}

type mintResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// Mint strips cfg to the whitelisted fields, POSTs it to the upstream
// sessions endpoint, and returns the resulting short-lived credential.
// Non-2xx responses fail with MintFailed; there is no internal retry.
func (m *HTTPMinter) Mint(ctx context.Context, cfg types.SessionConfig) (types.EphemeralCredential, error) {
	payload := cfg.Sanitize()

	var result mintResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+m.apiKey).
		SetHeader("OpenAI-Beta", m.protocolVersion).
		SetBody(payload).
		SetResult(&result).
		Post(m.sessionsURL)
	if err != nil {
		return types.EphemeralCredential{}, &types.MintFailed{Reason: err.Error()}
	}
	if resp.IsError() {
		return types.EphemeralCredential{}, &types.MintFailed{
			Reason: fmt.Sprintf("upstream returned %d: %s", resp.StatusCode(), resp.String()),
		}
	}
	if result.ClientSecret.Value == "" {
		return types.EphemeralCredential{}, &types.MintFailed{Reason: "upstream response missing client_secret.value"}
	}

	cred := types.EphemeralCredential{Value: result.ClientSecret.Value}
	if result.ClientSecret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(result.ClientSecret.ExpiresAt, 0)
	}
	return cred, nil
}
