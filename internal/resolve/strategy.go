package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"credmgr/internal/secret"
	"credmgr/pkg/logging"
)

// ErrNotAcquired is the single terminal outcome of a resolution that
// produced no credential.
var ErrNotAcquired = errors.New("no credential acquired")

// errNothingProduced marks a strategy whose action ran but yielded nothing.
var errNothingProduced = errors.New("nothing produced")

// Outcome is the tri-state result of one strategy.
type Outcome int

const (
	Fail Outcome = iota
	Skip
	Success
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Skip:
		return "skip"
	default:
		return "fail"
	}
}

// Result is what a strategy reports.
type Result struct {
	Outcome    Outcome
	Credential secret.Credential
	Err        error
}

// Succeeded reports a credential.
func Succeeded(c secret.Credential) Result { return Result{Outcome: Success, Credential: c} }

// Skipped reports a strategy excluded by policy.
func Skipped() Result { return Result{Outcome: Skip} }

// Failed reports a strategy that ran and did not produce a usable
// credential. err may be nil.
func Failed(err error) Result { return Result{Outcome: Fail, Err: err} }

// Strategy is one acquisition method.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context) Result
}

type funcStrategy struct {
	name string
	fn   func(ctx context.Context) Result
}

func (s funcStrategy) Name() string                       { return s.name }
func (s funcStrategy) Attempt(ctx context.Context) Result { return s.fn(ctx) }

// Func adapts a function to a Strategy.
func Func(name string, fn func(ctx context.Context) Result) Strategy {
	return funcStrategy{name: name, fn: fn}
}

// Attempt records one evaluated strategy.
type Attempt struct {
	Strategy string
	Outcome  Outcome
	Err      error
}

// Trace lists the strategies Run evaluated, in order.
type Trace []Attempt

// String renders the trace as "cached=fail refresh=success".
func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, a := range t {
		parts[i] = a.Strategy + "=" + a.Outcome.String()
	}
	return strings.Join(parts, " ")
}

// Ran reports whether the named strategy was attempted, i.e. not skipped.
func (t Trace) Ran(name string) bool {
	for _, a := range t {
		if a.Strategy == name && a.Outcome != Skip {
			return true
		}
	}
	return false
}

// Run evaluates chain left to right and returns the first successful
// credential. Strategies are never run concurrently and never retried.
// Failures move on to the next strategy; only a vault fault or a done
// context stops the chain with that error. When every strategy fails or
// is skipped, the error wraps ErrNotAcquired.
func Run(ctx context.Context, chain []Strategy) (secret.Credential, Trace, error) {
	trace := make(Trace, 0, len(chain))
	var lastErr error

	for _, s := range chain {
		if err := ctx.Err(); err != nil {
			return secret.Credential{}, trace, err
		}

		r := s.Attempt(ctx)
		trace = append(trace, Attempt{Strategy: s.Name(), Outcome: r.Outcome, Err: r.Err})

		switch r.Outcome {
		case Success:
			logging.Debug("Resolve", "Strategy %s succeeded", s.Name())
			return r.Credential, trace, nil
		case Skip:
			logging.Debug("Resolve", "Strategy %s skipped by policy", s.Name())
		case Fail:
			var vaultErr *secret.VaultError
			if errors.As(r.Err, &vaultErr) {
				return secret.Credential{}, trace, r.Err
			}
			if r.Err != nil {
				logging.Debug("Resolve", "Strategy %s failed: %v", s.Name(), r.Err)
				lastErr = r.Err
			} else {
				logging.Debug("Resolve", "Strategy %s failed", s.Name())
			}
		}
	}

	if lastErr != nil {
		return secret.Credential{}, trace, fmt.Errorf("%w: %v", ErrNotAcquired, lastErr)
	}
	return secret.Credential{}, trace, ErrNotAcquired
}
