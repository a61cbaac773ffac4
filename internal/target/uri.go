// Package target normalizes remote endpoints into the stable identity used
// as the key for every credential lookup.
package target

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidURI is returned when a raw target cannot be turned into a URI.
var ErrInvalidURI = errors.New("invalid target uri")

// defaultPorts are dropped during normalization so that https://host and
// https://host:443 identify the same target.
var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
}

// URI is the normalized identity of a remote endpoint. It is a value type
// and is never mutated after Normalize returns it.
type URI struct {
	// Scheme is the lower-cased URI scheme, e.g. "https".
	Scheme string
	// Host is the lower-cased host name without port.
	Host string
	// Port is the explicit non-default port, or 0.
	Port int
	// Path is the path without leading or trailing slashes, or "".
	Path string
}

// Normalize parses rawURL into a URI. Absolute URIs are accepted as-is; a
// bare host (optionally with port and path) is promoted to HTTPS. No network
// access happens here.
func Normalize(rawURL string) (URI, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return URI{}, fmt.Errorf("%w: empty", ErrInvalidURI)
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, fmt.Errorf("%w: %q: %v", ErrInvalidURI, rawURL, err)
	}

	return fromURL(u, rawURL)
}

// FromParts builds a URI from the protocol/host/path fields git sends on
// the credential protocol. host may carry a port.
func FromParts(protocol, host, path string) (URI, error) {
	if protocol == "" {
		protocol = "https"
	}
	raw := protocol + "://" + host
	if path != "" {
		raw += "/" + strings.TrimPrefix(path, "/")
	}
	return Normalize(raw)
}

func fromURL(u *url.URL, original string) (URI, error) {
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return URI{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidURI, original)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return URI{}, fmt.Errorf("%w: %q has no host", ErrInvalidURI, original)
	}

	port := 0
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return URI{}, fmt.Errorf("%w: %q has invalid port %q", ErrInvalidURI, original, p)
		}
		if defaultPorts[scheme] != n {
			port = n
		}
	}

	return URI{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   strings.Trim(u.Path, "/"),
	}, nil
}

// HostPort returns host or host:port.
func (u URI) HostPort() string {
	if u.Port == 0 {
		return u.Host
	}
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// Base returns the URI without its path.
func (u URI) Base() URI {
	u.Path = ""
	return u
}

// String returns the full URI including the path.
func (u URI) String() string {
	s := u.Scheme + "://" + u.HostPort()
	if u.Path != "" {
		s += "/" + u.Path
	}
	return s
}

// Key returns the identity string of the URI. Unless pathSensitive is set,
// only scheme, host and port take part.
func (u URI) Key(pathSensitive bool) string {
	if pathSensitive {
		return u.String()
	}
	return u.Base().String()
}

// Equal reports whether u and other identify the same target.
func (u URI) Equal(other URI, pathSensitive bool) bool {
	return u.Key(pathSensitive) == other.Key(pathSensitive)
}

// IsZero reports whether u is the zero URI.
func (u URI) IsZero() bool {
	return u == URI{}
}

// URL returns the URI as a *url.URL for building requests.
func (u URI) URL() *url.URL {
	out := &url.URL{Scheme: u.Scheme, Host: u.HostPort()}
	if u.Path != "" {
		out.Path = "/" + u.Path
	}
	return out
}

// Join returns the base URL of u with the given path appended, e.g.
// target.Join("_apis/connectionData").
func (u URI) Join(elem string) string {
	base := u.URL()
	return strings.TrimSuffix(base.String(), "/") + "/" + strings.TrimPrefix(elem, "/")
}
