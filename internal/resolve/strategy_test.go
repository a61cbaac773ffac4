package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credmgr/internal/secret"
)

func fixed(name string, r Result, ran *[]string) Strategy {
	return Func(name, func(context.Context) Result {
		*ran = append(*ran, name)
		return r
	})
}

func TestRun_FirstSuccessWins(t *testing.T) {
	var ran []string
	chain := []Strategy{
		fixed("a", Skipped(), &ran),
		fixed("b", Failed(errors.New("boom")), &ran),
		fixed("c", Succeeded(secret.NewCredential("u", "p")), &ran),
		fixed("d", Succeeded(secret.NewCredential("x", "y")), &ran),
	}

	cred, trace, err := Run(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, secret.NewCredential("u", "p"), cred)
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, "a=skip b=fail c=success", trace.String())
	assert.False(t, trace.Ran("a"))
	assert.True(t, trace.Ran("b"))
	assert.False(t, trace.Ran("d"))
}

func TestRun_Exhausted(t *testing.T) {
	var ran []string
	_, trace, err := Run(context.Background(), []Strategy{
		fixed("a", Failed(nil), &ran),
		fixed("b", Skipped(), &ran),
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.Len(t, trace, 2)

	_, _, err = Run(context.Background(), []Strategy{
		fixed("a", Failed(errors.New("provider down")), &ran),
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.Contains(t, err.Error(), "provider down")

	_, _, err = Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestRun_VaultFaultIsFatal(t *testing.T) {
	var ran []string
	vaultErr := &secret.VaultError{Op: "read", Key: "git:https://example.com", Err: errors.New("locked")}

	_, _, err := Run(context.Background(), []Strategy{
		fixed("a", Failed(vaultErr), &ran),
		fixed("b", Succeeded(secret.NewCredential("u", "p")), &ran),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)

	var ve *secret.VaultError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"a"}, ran)
}

func TestRun_CancelledContext(t *testing.T) {
	var ran []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Run(ctx, []Strategy{fixed("a", Succeeded(secret.Credential{}), &ran)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "fail", Fail.String())
}
