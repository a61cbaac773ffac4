package resolve

import (
	"context"

	"credmgr/internal/authority"
	"credmgr/internal/config"
	"credmgr/internal/secret"
	"credmgr/pkg/logging"
)

// Binder detects and constructs authorities. authority.Factory is the
// production implementation.
type Binder interface {
	Detect(ctx context.Context, op *config.Operation) config.Detection
	New(op *config.Operation, det config.Detection) (authority.Variant, error)
}

// Engine exposes the three operations the CLI needs.
type Engine struct {
	binder Binder
}

// NewEngine returns an engine over binder.
func NewEngine(binder Binder) *Engine {
	return &Engine{binder: binder}
}

// Select returns the authority for op: the configured kind, or the
// detected one. Detection runs at most once per operation.
func (e *Engine) Select(ctx context.Context, op *config.Operation) (authority.Variant, error) {
	det := config.Detection{Kind: op.Authority}
	if op.Authority == config.AuthorityAuto {
		if memo, ok := op.Detected(); ok {
			det = memo
		} else {
			det = e.binder.Detect(ctx, op)
			op.RememberDetection(det)
		}
	}

	v, err := e.binder.New(op, det)
	if err != nil {
		return authority.Variant{}, err
	}
	if err := v.Validate(); err != nil {
		return authority.Variant{}, err
	}
	return v, nil
}

// Resolve produces a credential for op.Target, or an error wrapping
// ErrNotAcquired. Other errors are fatal: a vault fault or a failure to
// construct the authority.
func (e *Engine) Resolve(ctx context.Context, op *config.Operation) (secret.Credential, error) {
	v, err := e.Select(ctx, op)
	if err != nil {
		return secret.Credential{}, err
	}

	chain, err := Chain(v, op.Target, Policy{
		Interactivity: op.Interactivity,
		Validate:      op.ValidateCredentials,
	})
	if err != nil {
		return secret.Credential{}, err
	}

	cred, trace, err := Run(ctx, chain)

	event := logging.AuditEvent{
		Action:    "credential_resolved",
		Outcome:   "success",
		Namespace: op.Namespace,
		Target:    op.Target.String(),
		Kind:      v.Kind.String(),
	}
	if err != nil {
		event.Outcome = "failure"
		event.Error = err
	}
	logging.Audit(event)
	logging.Debug("Resolve", "Resolution of %s via %s: %s", op.Target, v.Kind, trace)

	return cred, err
}

// Store writes cred for op.Target through the selected authority.
func (e *Engine) Store(ctx context.Context, op *config.Operation, cred secret.Credential) error {
	if cred.IsEmpty() {
		logging.Debug("Resolve", "Ignoring empty credential for %s", op.Target)
		return nil
	}
	v, err := e.Select(ctx, op)
	if err != nil {
		return err
	}
	return v.Authority().SetCredentials(op.Target, cred)
}

// Erase removes everything the selected authority stores for op.Target,
// unless the operation preserves credentials.
func (e *Engine) Erase(ctx context.Context, op *config.Operation) error {
	if op.PreserveCredentials {
		logging.Info("Resolve", "Keeping stored credentials for %s (preserve is set)", op.Target)
		return nil
	}
	v, err := e.Select(ctx, op)
	if err != nil {
		return err
	}
	return v.Authority().DeleteCredentials(op.Target)
}
