package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"credmgr/internal/gitcred"
	"credmgr/internal/resolve"
	"credmgr/internal/secret"
	"credmgr/pkg/logging"
)

func newGetCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Return a credential for the remote described on stdin",
		Long: `Reads a credential description from stdin and prints the username and
password git should use. Exits with code 2 and prints nothing when no
credential could be acquired, so git falls through to the next helper.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, rawURL, err := env.readRecord()
			if err != nil {
				return err
			}
			s, err := env.openSession(cmd, rawURL)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			cred, err := s.engine.Resolve(cmd.Context(), s.op)
			if err != nil {
				if errors.Is(err, resolve.ErrNotAcquired) {
					logging.Debug("CLI", "No credential for %s: %v", s.op.Target, err)
				}
				return err
			}
			if cred.IsEmpty() {
				// integrated authentication: git lets the HTTP stack negotiate
				return nil
			}

			rec.Username = cred.Username
			rec.Password = cred.Password
			rec.URL = ""
			return gitcred.Write(env.stdout, rec)
		},
	}
}

func newStoreCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:     "store",
		Aliases: []string{"approve"},
		Short:   "Store a credential git reports as working",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, rawURL, err := env.readRecord()
			if err != nil {
				return err
			}
			s, err := env.openSession(cmd, rawURL)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			return s.engine.Store(cmd.Context(), s.op, secret.NewCredential(rec.Username, rec.Password))
		},
	}
}

func newEraseCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:     "erase",
		Aliases: []string{"reject"},
		Short:   "Erase the stored secrets of a remote git reports as rejected",
		Long: `Removes the credential and every token stored for the remote described
on stdin. Nothing is removed when credential.preserve is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rawURL, err := env.readRecord()
			if err != nil {
				return err
			}
			s, err := env.openSession(cmd, rawURL)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			return s.engine.Erase(cmd.Context(), s.op)
		},
	}
}
