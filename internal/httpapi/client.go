// Package httpapi is the default REST backing for the service contracts the
// resolvers consume. It covers exactly the endpoints resolution needs; the
// platform's full data-layer surface is a separate concern.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/internal/utils"
	"github.com/iblai/go-mentor-session/mentors"
	"github.com/iblai/go-mentor-session/tenants"
)

var (
	_ tenants.Service            = (*Client)(nil)
	_ tenants.DomainResolver     = (*Client)(nil)
	_ mentors.Service            = (*Client)(nil)
	_ mentors.PermissionsService = (*Client)(nil)
)

// BearerSource supplies the current access token for outgoing requests.
type BearerSource func(ctx context.Context) (string, error)

// Client talks to the platform REST API.
type Client struct {
	base   string
	http   *http.Client
	bearer BearerSource
	logger zerolog.Logger
}

// ClientOption modifies the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client for the given API base URL. The bearer source
// may be nil for unauthenticated use.
func NewClient(baseURL string, bearer BearerSource, options ...ClientOption) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		bearer: bearer,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// metadataDTO is the wire shape of tenant metadata; the default mentor
// arrives as flat fields, not a nested object.
type metadataDTO struct {
	DefaultMentorID   string         `json:"default_mentor"`
	DefaultMentorName string         `json:"default_mentor_name"`
	Advertising       bool           `json:"advertising"`
	ActiveApp         string         `json:"active_app"`
	Extra             map[string]any `json:"extra"`
}

func (c *Client) Metadata(ctx context.Context, tenantKey string) (*tenants.Metadata, error) {
	var dto metadataDTO
	path := fmt.Sprintf("/api/core/orgs/%s/metadata", url.PathEscape(tenantKey))
	if err := c.get(ctx, path, &dto); err != nil {
		return nil, errors.Wrap(err, "[Metadata]")
	}
	meta := &tenants.Metadata{
		Advertising: dto.Advertising,
		ActiveApp:   dto.ActiveApp,
		Extra:       dto.Extra,
	}
	if dto.DefaultMentorID != "" {
		meta.DefaultMentor = utils.Ptr(tenants.MentorRef{
			ID:   dto.DefaultMentorID,
			Name: dto.DefaultMentorName,
		})
	}
	return meta, nil
}

func (c *Client) Join(ctx context.Context, tenantKey string) error {
	path := fmt.Sprintf("/api/core/orgs/%s/join", url.PathEscape(tenantKey))
	if err := c.post(ctx, path, nil); err != nil {
		return errors.Wrap(err, "[Join]")
	}
	return nil
}

func (c *Client) Subscriptions(ctx context.Context) ([]tenants.Subscription, error) {
	var subs []tenants.Subscription
	if err := c.get(ctx, "/api/core/users/subscriptions", &subs); err != nil {
		return nil, errors.Wrap(err, "[Subscriptions]")
	}
	return subs, nil
}

func (c *Client) TenantForHost(ctx context.Context, host string) (string, error) {
	var out struct {
		Tenant string `json:"tenant"`
	}
	path := "/api/core/domains?host=" + url.QueryEscape(host)
	err := c.get(ctx, path, &out)
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[TenantForHost]")
	}
	return out.Tenant, nil
}

func (c *Client) Starred(ctx context.Context, tenantKey string) ([]mentors.Mentor, error) {
	return c.mentorList(ctx, tenantKey, "starred")
}

func (c *Client) Recent(ctx context.Context, tenantKey string) ([]mentors.Mentor, error) {
	return c.mentorList(ctx, tenantKey, "recent")
}

func (c *Client) Featured(ctx context.Context, tenantKey string, orderedByRecent bool) ([]mentors.Mentor, error) {
	suffix := "featured"
	if orderedByRecent {
		suffix = "featured?order=recent"
	}
	return c.mentorList(ctx, tenantKey, suffix)
}

func (c *Client) NonFeatured(ctx context.Context, tenantKey string) ([]mentors.Mentor, error) {
	return c.mentorList(ctx, tenantKey, "others")
}

func (c *Client) Settings(ctx context.Context, tenantKey, mentorID string) (*mentors.Mentor, error) {
	var m mentors.Mentor
	path := fmt.Sprintf("/api/ai/mentors/%s/settings/%s", url.PathEscape(tenantKey), url.PathEscape(mentorID))
	err := c.get(ctx, path, &m)
	if isNotFound(err) {
		return nil, mentors.ErrMentorNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Settings]")
	}
	return &m, nil
}

func (c *Client) Seed(ctx context.Context, tenantKey string) error {
	path := fmt.Sprintf("/api/ai/mentors/%s/seed", url.PathEscape(tenantKey))
	if err := c.post(ctx, path, nil); err != nil {
		return errors.Wrap(err, "[Seed]")
	}
	return nil
}

func (c *Client) MentorPermissions(ctx context.Context, internalID int64) ([]string, error) {
	var perms []string
	path := fmt.Sprintf("/api/rbac/mentors/%d/permissions", internalID)
	if err := c.get(ctx, path, &perms); err != nil {
		return nil, errors.Wrap(err, "[MentorPermissions]")
	}
	return perms, nil
}

func (c *Client) mentorList(ctx context.Context, tenantKey, suffix string) ([]mentors.Mentor, error) {
	var list []mentors.Mentor
	path := fmt.Sprintf("/api/ai/mentors/%s/%s", url.PathEscape(tenantKey), suffix)
	if err := c.get(ctx, path, &list); err != nil {
		return nil, errors.Wrapf(err, "[mentorList] %s", suffix)
	}
	return list, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, out)
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodPost, path, out)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	if c.bearer != nil {
		tok, err := c.bearer(ctx)
		if err != nil {
			return errors.Wrap(err, "loading bearer token")
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	c.logger.Debug().Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("api request")

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}

var errNotFound = errors.New("not found")

func isNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}
