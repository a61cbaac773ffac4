package logging

import (
	"log/slog"
)

// AuditEvent describes a security-relevant action on stored secret material.
// Secret values never appear in an AuditEvent; only where they live.
type AuditEvent struct {
	// Action is what happened, e.g. "secret_stored", "secret_deleted".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// Namespace is the secret store namespace.
	Namespace string
	// Target is the converted target name used as the store key.
	Target string
	// Kind is the kind of secret material (credential, access, refresh, ...).
	Kind string
	// Error holds the failure reason, if any.
	Error error
}

// Audit logs a security audit event at INFO level with a SECURITY_AUDIT
// prefix so log aggregation can filter on it.
func Audit(e AuditEvent) {
	attrs := []any{
		"event", e.Action,
		"outcome", e.Outcome,
		"namespace", e.Namespace,
		"target", e.Target,
	}
	if e.Kind != "" {
		attrs = append(attrs, "kind", e.Kind)
	}
	if e.Error != nil {
		attrs = append(attrs, "error", e.Error.Error())
	}

	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("SECURITY_AUDIT: "+e.Action, attrs...)
}
