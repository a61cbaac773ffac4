package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"credmgr/internal/authority"
	"credmgr/internal/config"
	"credmgr/internal/gitcred"
	"credmgr/internal/prompt"
	"credmgr/internal/resolve"
	"credmgr/internal/secret"
	"credmgr/internal/target"
)

// Exit codes. git only distinguishes zero from non-zero; the finer codes
// are for scripts and tests.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (bad arguments, bad configuration).
	ExitCodeError = 1
	// ExitCodeNotAcquired indicates no credential could be produced; git
	// moves on to the next helper.
	ExitCodeNotAcquired = 2
	// ExitCodeFatal indicates an unusable secret store or target URL.
	ExitCodeFatal = 3
)

// environment holds what the commands need from the outside world, so
// tests can run them against fakes.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// vault replaces the backend named by credentialStore.
	vault secret.Vault
	// prompter defaults to the terminal.
	prompter authority.Prompter
	// httpClient replaces the proxy-aware client.
	httpClient *http.Client
	// authorityHost overrides the DevOps login service.
	authorityHost string
	// loadDotenv merges GCM_ENV_FILE into the process environment.
	loadDotenv bool

	// flags
	configPath  string
	storeDir    string
	noGitConfig bool
}

func defaultEnvironment() *environment {
	return &environment{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		getenv:     os.Getenv,
		prompter:   prompt.NewConsole(),
		loadDotenv: true,
	}
}

// rootCmd is the helper git runs as credential.helper=credmgr.
// It is assigned in init to break the static initialization cycle
// rootCmd -> newRootCmd -> newVersionCmd -> GetVersion -> rootCmd.
var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd(defaultEnvironment())
}

func newRootCmd(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:   "git-credential-credmgr",
		Short: "Git credential helper for OAuth-backed and basic-auth remotes",
		Long: `git-credential-credmgr answers git's credential requests. It keeps
secrets in the system keyring (or a file vault), refreshes OAuth tokens for
DevOps organizations, creates GitHub tokens, and only prompts when nothing
stored or refreshable works.

Configure it with:

  git config --global credential.helper credmgr`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		// errors are reported by Execute so that "not acquired" stays quiet
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(env.stdout)
			cmd.SetErr(env.stderr)
			if env.loadDotenv {
				if err := config.LoadEnvFile(env.getenv("GCM_ENV_FILE")); err != nil {
					return err
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&env.configPath, "config", "", "config file (default is $HOME/.config/credmgr/config.yaml)")
	root.PersistentFlags().StringVar(&env.storeDir, "store-dir", "", "directory of the file vault (default is $HOME/"+secret.DefaultStorageDir+")")
	root.PersistentFlags().BoolVar(&env.noGitConfig, "no-git-config", false, "do not read settings from git config")

	root.AddCommand(newGetCmd(env))
	root.AddCommand(newStoreCmd(env))
	root.AddCommand(newEraseCmd(env))
	root.AddCommand(newStatusCmd(env))
	root.AddCommand(newVersionCmd())
	return root
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
	authority.UserAgent = "credmgr/" + v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code from getExitCode on
// failure. This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "git-credential-credmgr version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(getExitCode(err))
	}
}

// reportError prints err for the user. A missing credential is not an
// error from git's point of view and is not printed.
func reportError(w io.Writer, err error) {
	if errors.Is(err, resolve.ErrNotAcquired) {
		return
	}
	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(w, "fatal: %s\n", cfgErr.DetailedError())
		return
	}
	fmt.Fprintf(w, "fatal: %v\n", err)
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if errors.Is(err, resolve.ErrNotAcquired) {
		return ExitCodeNotAcquired
	}

	var vaultErr *secret.VaultError
	if errors.As(err, &vaultErr) {
		return ExitCodeFatal
	}
	if errors.Is(err, target.ErrInvalidURI) || errors.Is(err, gitcred.ErrMalformed) {
		return ExitCodeFatal
	}

	// Default to general error
	return ExitCodeError
}
