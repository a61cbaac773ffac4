package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"credmgr/internal/config"
	"credmgr/internal/token"
)

func newStatusCmd(env *environment) *cobra.Command {
	var detect bool

	cmd := &cobra.Command{
		Use:   "status <url>",
		Short: "Show the settings and store keys used for a remote",
		Long: `Prints the resolved settings for the remote URL and the keys its secrets
are stored under. Secrets are never read. With --detect the authority is
auto-detected, which may contact the remote.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			op := s.op
			authorityText := op.Authority.String()
			if detect && op.Authority == config.AuthorityAuto {
				det := s.factory.Detect(cmd.Context(), op)
				authorityText = fmt.Sprintf("%s (detected %s)", authorityText, det.Kind)
			}

			proxy := "-"
			if op.Proxy != nil {
				proxy = op.Proxy.Redacted()
			}
			duration := "-"
			if op.TokenDuration > 0 {
				duration = op.TokenDuration.String()
			}
			storeName := op.CredentialStore
			if storeName == "" {
				storeName = "auto"
			}

			settings := table.NewWriter()
			settings.SetStyle(table.StyleRounded)
			settings.AppendHeader(table.Row{text.FgHiCyan.Sprint("SETTING"), text.FgHiCyan.Sprint("VALUE")})
			settings.AppendRows([]table.Row{
				{"target", op.Target.String()},
				{"authority", authorityText},
				{"interactive", op.Interactivity.String()},
				{"validate", op.ValidateCredentials},
				{"modalPrompt", op.UseModalUI},
				{"namespace", op.Namespace},
				{"useHttpPath", op.UseHTTPPath},
				{"preserve", op.PreserveCredentials},
				{"tokenDuration", duration},
				{"credentialStore", storeName},
				{"httpProxy", proxy},
			})
			fmt.Fprintln(cmd.OutOrStdout(), settings.Render())

			store := s.factory.Store(op)
			keys := table.NewWriter()
			keys.SetStyle(table.StyleRounded)
			keys.AppendHeader(table.Row{text.FgHiCyan.Sprint("ENTRY"), text.FgHiCyan.Sprint("STORE KEY")})
			keys.AppendRow(table.Row{"credential", store.CredentialKey(op.Target)})
			for _, tt := range token.Types {
				if tt == token.TypeTest {
					continue
				}
				keys.AppendRow(table.Row{tt.String() + " token", store.TokenKey(op.Target, tt)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), keys.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&detect, "detect", false, "auto-detect the authority")
	return cmd
}
