// Package cookies defines the cross-subdomain cookie collaborator. Cookies
// are scoped to the parent domain (one label above the host) so that every
// application sharing that domain observes the same logical session.
package cookies

import (
	"encoding/json"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Cookie names used by the session pipeline. Values are URL-encoded JSON,
// except the logout stamp which is a plain unix-millisecond integer.
const (
	NameIdentity      = "mentor_user"
	NameCurrentTenant = "mentor_tenant"
	NameTenantList    = "mentor_tenants"
	NameLogoutStamp   = "mentor_logged_out"
)

// Cookie carries the attributes the pipeline sets. Cross-site applicability
// requires SameSite=None together with Secure, so implementations must
// honor both flags.
type Cookie struct {
	Name         string
	Value        string
	Domain       string
	Path         string
	Expires      time.Time
	Secure       bool
	SameSiteNone bool
}

// Jar is the browser-provided (or embedder-provided) cookie store.
type Jar interface {
	Get(name string) (value string, found bool)
	Set(c Cookie)
	Delete(name, domain, path string)
}

// ParentDomain returns the domain one label above host, the scope shared by
// sibling applications ("mentor.example.com" -> "example.com"). Hosts with
// fewer than three labels, IP addresses and localhost are returned as-is.
func ParentDomain(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return host
	}
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return host
	}
	return strings.Join(labels[1:], ".")
}

// Encode serializes v as URL-escaped JSON, the format every application on
// the shared domain writes.
func Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "[Encode] marshalling cookie value")
	}
	return url.QueryEscape(string(raw)), nil
}

// EncodeRaw URL-escapes an already-serialized JSON document.
func EncodeRaw(raw string) string {
	return url.QueryEscape(raw)
}

// Decode reverses Encode into out.
func Decode(value string, out any) error {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return errors.Wrap(err, "[Decode] unescaping cookie value")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.Wrap(err, "[Decode] unmarshalling cookie value")
	}
	return nil
}

// DecodeRaw reverses EncodeRaw, returning the serialized JSON document.
func DecodeRaw(value string) (string, error) {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return "", errors.Wrap(err, "[DecodeRaw] unescaping cookie value")
	}
	return raw, nil
}
