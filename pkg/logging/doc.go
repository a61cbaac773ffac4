// Package logging provides the structured logging used across credmgr.
//
// It is a thin layer over Go's slog package: every entry carries a subsystem
// attribute, and level filtering happens in the handler.
//
// # Output
//
// git reads a credential helper's stdout, so logs never go there. By default
// only warnings and errors reach stderr. Tracing is switched on with the
// GCM_TRACE environment variable or the credential.trace git setting:
//
//	GCM_TRACE=1                  # debug output on stderr
//	GCM_TRACE=/tmp/credmgr.log   # debug output appended to a file
//
// # Usage
//
//	closeFn, err := logging.InitFromTrace(os.Getenv("GCM_TRACE"), os.Stderr)
//	defer closeFn()
//
//	logging.Debug("Resolve", "trying strategy %s", name)
//	logging.Error("SecretStore", err, "failed to write %s", key)
//
// # Audit Logging
//
// Writes and deletes of secret material are reported with Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:    "secret_deleted",
//	    Outcome:   "success",
//	    Namespace: "git",
//	    Target:    "https://example.com",
//	})
//
// Audit events never contain secret values.
package logging
