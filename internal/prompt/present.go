package prompt

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"credmgr/internal/authority"
	"credmgr/internal/oauth"
	"credmgr/pkg/logging"
)

// openBrowser is swapped in tests.
var openBrowser = oauth.OpenBrowser

// URLPresenter returns how authorization URLs reach the user. In modal
// mode the browser is opened and the URL is printed only when that fails;
// otherwise the URL is printed for the user to open.
func URLPresenter(modal bool, w io.Writer) oauth.URLPresenter {
	return func(authURL string) error {
		if modal {
			err := openBrowser(authURL)
			if err == nil {
				fmt.Fprintln(w, "A browser window has been opened to complete sign-in.")
				return nil
			}
			logging.Warn("Prompt", "Could not open a browser: %v", err)
		}
		fmt.Fprintf(w, "To sign in, open this URL in a browser:\n\n  %s\n\n", text.FgCyan.Sprint(authURL))
		return nil
	}
}

// Progress returns a ProgressFunc that spins on w while a logon is
// pending.
func Progress(w io.Writer) authority.ProgressFunc {
	return func(msg string) func() {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		s.Suffix = " " + msg
		s.Start()
		return s.Stop
	}
}
