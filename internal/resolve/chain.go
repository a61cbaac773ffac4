package resolve

import (
	"context"
	"fmt"

	"credmgr/internal/authority"
	"credmgr/internal/config"
	"credmgr/internal/target"
)

// Strategy names, as they appear in traces and logs.
const (
	StrategyCached         = "cached"
	StrategyPrompt         = "prompt"
	StrategyRefresh        = "refresh"
	StrategyNoninteractive = "noninteractive"
	StrategyInteractive    = "interactive"
	StrategyIntegrated     = "integrated"
)

// Policy is the part of an operation that shapes a chain.
type Policy struct {
	Interactivity config.Interactivity
	Validate      bool
}

// skipRule decides from the interactivity policy whether a step runs.
type skipRule func(config.Interactivity) bool

func skipWhenAlways(i config.Interactivity) bool { return i == config.InteractivityAlways }
func skipWhenNever(i config.Interactivity) bool  { return i == config.InteractivityNever }
func neverSkip(config.Interactivity) bool        { return false }

// step builds a strategy that runs act and, when act produced material,
// reads the credential back from the authority and validates it if the
// policy asks for it.
func step(name string, a authority.Authority, t target.URI, p Policy, skip skipRule, act func(context.Context) (bool, error)) Strategy {
	return Func(name, func(ctx context.Context) Result {
		if skip(p.Interactivity) {
			return Skipped()
		}

		ok, err := act(ctx)
		if err != nil {
			return Failed(err)
		}
		if !ok {
			return Failed(errNothingProduced)
		}

		cred, err := a.GetCredentials(t)
		if err != nil {
			return Failed(err)
		}

		if p.Validate && !a.ValidateCredentials(ctx, t, cred) {
			return Failed(authority.ErrValidationFailed)
		}
		return Succeeded(cred)
	})
}

func cached(context.Context) (bool, error) { return true, nil }

// Chain returns the ordered strategies for v.
func Chain(v authority.Variant, t target.URI, p Policy) ([]Strategy, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	switch v.Kind {
	case authority.KindBasic:
		a := v.Basic
		return []Strategy{
			step(StrategyCached, a, t, p, neverSkip, cached),
			step(StrategyPrompt, a, t, p, skipWhenNever, func(ctx context.Context) (bool, error) {
				return a.PromptCredentials(ctx, t)
			}),
		}, nil

	case authority.KindAzureDirectory, authority.KindMicrosoftAccount:
		a := v.OAuth
		return []Strategy{
			step(StrategyCached, a, t, p, skipWhenAlways, cached),
			// the interactive step follows, so refresh never falls back to it
			step(StrategyRefresh, a, t, p, skipWhenAlways, func(ctx context.Context) (bool, error) {
				return a.RefreshCredentials(ctx, t, false)
			}),
			step(StrategyNoninteractive, a, t, p, skipWhenAlways, func(ctx context.Context) (bool, error) {
				return a.NoninteractiveLogon(ctx, t)
			}),
			step(StrategyInteractive, a, t, p, skipWhenNever, func(ctx context.Context) (bool, error) {
				return a.InteractiveLogon(ctx, t)
			}),
		}, nil

	case authority.KindGitHub:
		a := v.SourceHost
		return []Strategy{
			step(StrategyCached, a, t, p, skipWhenAlways, cached),
			step(StrategyInteractive, a, t, p, skipWhenNever, func(ctx context.Context) (bool, error) {
				if _, err := a.InteractiveLogon(ctx, t); err != nil {
					return false, err
				}
				return true, nil
			}),
		}, nil

	case authority.KindIntegrated:
		return []Strategy{
			step(StrategyIntegrated, v.Integrated, t, p, neverSkip, cached),
		}, nil

	case config.AuthorityAuto:
		return nil, fmt.Errorf("authority kind must be resolved before building a chain")
	}
	return nil, fmt.Errorf("unknown authority kind %d", v.Kind)
}
