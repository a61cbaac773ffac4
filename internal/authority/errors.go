package authority

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrValidationFailed means the provider rejected a credential.
	ErrValidationFailed = errors.New("credential validation failed")

	// ErrProviderUnavailable means the provider could not be reached or
	// answered with a server error.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// ProviderError is a failed exchange with an identity provider.
type ProviderError struct {
	Provider string // e.g. "devops", "github"
	Endpoint string
	Status   int // HTTP status, 0 for transport failures
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s returned status %d: %v", e.Provider, e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches ErrProviderUnavailable for transport failures and 5xx
// answers, and ErrValidationFailed for 401/403.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProviderUnavailable:
		return e.Status == 0 || e.Status >= 500
	case ErrValidationFailed:
		return e.Status == 401 || e.Status == 403
	}
	return false
}

// ConnectionErrorType categorizes transport failures for logging.
type ConnectionErrorType int

const (
	ConnectionErrorUnknown ConnectionErrorType = iota
	ConnectionErrorTLS
	ConnectionErrorNetwork
	ConnectionErrorTimeout
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "network error"
	case ConnectionErrorTimeout:
		return "connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "connection error"
	}
}

// ClassifyConnectionError returns the category of a transport error.
func ClassifyConnectionError(err error) ConnectionErrorType {
	if err == nil {
		return ConnectionErrorUnknown
	}

	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) ||
		strings.Contains(err.Error(), "x509:") || strings.Contains(err.Error(), "tls:") {
		return ConnectionErrorTLS
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectionErrorDNS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ConnectionErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnectionErrorTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "no route to host", "network is unreachable", "connection reset", "eof"} {
		if strings.Contains(msg, p) {
			return ConnectionErrorNetwork
		}
	}
	return ConnectionErrorUnknown
}

// transportError wraps a failed HTTP round trip as a ProviderError.
func transportError(provider, endpoint string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Endpoint: endpoint,
		Err:      fmt.Errorf("%s: %w", ClassifyConnectionError(err), err),
	}
}
