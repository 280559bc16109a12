package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/iblai/go-mentor-session/token"
)

var _ token.Refresher = (*Refresher)(nil)

// RefreshTokenSource supplies the stored refresh token.
type RefreshTokenSource func(ctx context.Context) (string, error)

// Refresher obtains fresh credentials via the refresh-token grant against
// the platform's token endpoint.
type Refresher struct {
	conf    *oauth2.Config
	source  RefreshTokenSource
	http    *http.Client
	nowTime func() time.Time
}

// RefresherOption modifies a Refresher.
type RefresherOption func(*Refresher)

// WithRefresherHTTPClient overrides the underlying HTTP client.
func WithRefresherHTTPClient(hc *http.Client) RefresherOption {
	return func(r *Refresher) {
		if hc != nil {
			r.http = hc
		}
	}
}

// NewRefresher creates a Refresher for a token endpoint.
func NewRefresher(tokenURL, clientID, clientSecret string, source RefreshTokenSource, options ...RefresherOption) *Refresher {
	r := &Refresher{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		},
		source:  source,
		http:    &http.Client{Timeout: 30 * time.Second},
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Refresh exchanges the stored refresh token for a new credential.
func (r *Refresher) Refresh(ctx context.Context) (*token.Pair, error) {
	rt, err := r.source(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Refresh] loading refresh token")
	}
	if rt == "" {
		return nil, errors.New("[Refresh] no refresh token available")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.http)
	tok, err := r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return nil, errors.Wrap(err, "[Refresh] token endpoint")
	}
	return r.pairFromToken(tok), nil
}

// RefreshForTenant performs the refresh-token grant scoped to a tenant. The
// tenant parameter is outside what oauth2.TokenSource can carry, so the form
// is posted directly.
func (r *Refresher) RefreshForTenant(ctx context.Context, tenantKey string) (*token.Pair, error) {
	rt, err := r.source(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshForTenant] loading refresh token")
	}
	if rt == "" {
		return nil, errors.New("[RefreshForTenant] no refresh token available")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {rt},
		"client_id":     {r.conf.ClientID},
		"tenant":        {tenantKey},
	}
	if r.conf.ClientSecret != "" {
		form.Set("client_secret", r.conf.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.conf.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshForTenant] building request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshForTenant] token endpoint")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("[RefreshForTenant] status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int64  `json:"expires_in"`
		SessionExpiresIn int64  `json:"session_expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "[RefreshForTenant] decoding response")
	}
	now := r.nowTime()
	pair := &token.Pair{
		Token:            out.AccessToken,
		ExpiresAt:        now.Add(time.Duration(out.ExpiresIn) * time.Second),
		SessionExpiresAt: now.Add(time.Duration(out.ExpiresIn) * time.Second),
	}
	if out.SessionExpiresIn > 0 {
		pair.SessionExpiresAt = now.Add(time.Duration(out.SessionExpiresIn) * time.Second)
	}
	return pair, nil
}

// pairFromToken maps an oauth2 token onto the credential pair. A
// session_expires_in extra, when present, drives the finer session expiry;
// otherwise both timestamps track the token expiry.
func (r *Refresher) pairFromToken(tok *oauth2.Token) *token.Pair {
	pair := &token.Pair{
		Token:            tok.AccessToken,
		ExpiresAt:        tok.Expiry,
		SessionExpiresAt: tok.Expiry,
	}
	if v, ok := tok.Extra("session_expires_in").(float64); ok && v > 0 {
		pair.SessionExpiresAt = r.nowTime().Add(time.Duration(v) * time.Second)
	}
	return pair
}
