package authority

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Is(t *testing.T) {
	tests := []struct {
		status      int
		unavailable bool
		rejected    bool
	}{
		{0, true, false},
		{401, false, true},
		{403, false, true},
		{404, false, false},
		{500, true, false},
		{503, true, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &ProviderError{Provider: "devops", Endpoint: "https://x", Status: tt.status, Err: errors.New("boom")})
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrProviderUnavailable))
			assert.Equal(t, tt.rejected, errors.Is(err, ErrValidationFailed))
		})
	}
}

func TestProviderError_Error(t *testing.T) {
	err := &ProviderError{Provider: "github", Endpoint: "https://api.github.com/user", Status: 401, Err: errors.New("bad")}
	assert.Equal(t, "github: https://api.github.com/user returned status 401: bad", err.Error())

	err = &ProviderError{Provider: "github", Endpoint: "https://api.github.com/user", Err: errors.New("refused")}
	assert.Equal(t, "github: https://api.github.com/user: refused", err.Error())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectionErrorType
	}{
		{"nil", nil, ConnectionErrorUnknown},
		{"tls", errors.New("tls: failed to verify certificate"), ConnectionErrorTLS},
		{"x509", errors.New("x509: certificate signed by unknown authority"), ConnectionErrorTLS},
		{"dns", &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, ConnectionErrorDNS},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), ConnectionErrorTimeout},
		{"net timeout", timeoutErr{}, ConnectionErrorTimeout},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ConnectionErrorNetwork},
		{"eof", errors.New("unexpected EOF"), ConnectionErrorNetwork},
		{"other", errors.New("something"), ConnectionErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyConnectionError(tt.err))
		})
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	err := transportError("devops", "https://dev.azure.com", errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "network error")
}
