package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"credmgr/internal/authority"
	"credmgr/internal/config"
	"credmgr/internal/gitcred"
	"credmgr/internal/oauth"
	"credmgr/internal/prompt"
	"credmgr/internal/resolve"
	"credmgr/internal/secret"
	"credmgr/pkg/logging"
)

// session is everything one helper invocation works with.
type session struct {
	op      *config.Operation
	lookup  config.Lookup
	factory *authority.Factory
	engine  *resolve.Engine
	close   func() error
}

// openSession configures logging, resolves the settings for rawURL and
// binds the engine to the vault the settings name.
func (env *environment) openSession(cmd *cobra.Command, rawURL string) (*session, error) {
	closeTrace, err := logging.InitFromTrace(env.getenv("GCM_TRACE"), env.stderr)
	if err != nil {
		// a bad trace setting must not break git
		logging.Warn("CLI", "%v", err)
	}

	lookup, err := config.NewLookup(config.Sources{
		Getenv:     env.getenv,
		DisableGit: env.noGitConfig,
		ConfigPath: env.configPath,
	})
	if err != nil {
		_ = closeTrace()
		return nil, err
	}

	op, err := config.NewOperation(lookup, env.getenv, rawURL)
	if err != nil {
		_ = closeTrace()
		return nil, err
	}

	// git config may name a trace file the environment did not
	if env.getenv("GCM_TRACE") == "" {
		if v, ok := lookup.Get(config.SectionCredential, op.Target, config.KeyWriteLog); ok && v != "" {
			_ = closeTrace()
			if closeTrace, err = logging.InitFromTrace(v, env.stderr); err != nil {
				logging.Warn("CLI", "%v", err)
			}
		}
	}

	vault := env.vault
	if vault == nil {
		vault, err = secret.OpenVault(op.CredentialStore, env.storeDir)
		if err != nil {
			_ = closeTrace()
			return nil, &secret.VaultError{Op: "open", Err: err}
		}
	}

	factory := &authority.Factory{
		Vault:    vault,
		Prompter: env.prompter,
		Present: func(modal bool) oauth.URLPresenter {
			return prompt.URLPresenter(modal, env.stderr)
		},
		Progress:      prompt.Progress(env.stderr),
		SessionID:     uuid.New(),
		AuthorityHost: env.authorityHost,
		HTTPClient:    env.httpClient,
	}

	return &session{
		op:      op,
		lookup:  lookup,
		factory: factory,
		engine:  resolve.NewEngine(factory),
		close:   closeTrace,
	}, nil
}

// readRecord reads git's request from stdin and returns it with its URL.
func (env *environment) readRecord() (gitcred.Record, string, error) {
	rec, err := gitcred.Read(env.stdin)
	if err != nil {
		return gitcred.Record{}, "", err
	}
	rawURL, err := rec.TargetURL()
	if err != nil {
		return gitcred.Record{}, "", err
	}
	return rec, rawURL, nil
}
