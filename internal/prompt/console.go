package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"credmgr/internal/secret"
	"credmgr/internal/target"
)

var (
	// ErrCancelled is returned when the user aborts a prompt with Ctrl+C
	// or Ctrl+D.
	ErrCancelled = errors.New("prompt cancelled by user")

	// ErrNoTerminal is returned when there is no terminal to prompt on.
	ErrNoTerminal = errors.New("no terminal available for prompting")
)

// ttyPath is the controlling terminal.
const ttyPath = "/dev/tty"

// lineReader reads one line of user input at a time.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Close() error
}

// Console prompts on the controlling terminal.
type Console struct {
	open func() (lineReader, error)
	out  io.Writer
}

// NewConsole returns a Console that writes messages to stderr and reads
// from the controlling terminal.
func NewConsole() *Console {
	return &Console{open: openTerminal, out: os.Stderr}
}

// PromptForCredentials asks for a username and a masked password. An
// empty username returns the empty credential.
func (c *Console) PromptForCredentials(ctx context.Context, t target.URI, message string) (secret.Credential, error) {
	var cred secret.Credential
	err := c.session(ctx, func(r lineReader) error {
		if message != "" {
			fmt.Fprintln(c.out, message)
		}

		user, err := r.ReadLine(fmt.Sprintf("Username for '%s': ", t.Base()))
		if err != nil {
			return err
		}
		user = strings.TrimSpace(user)
		if user == "" {
			return nil
		}

		withUser := t.Base().URL()
		withUser.User = url.User(user)
		pass, err := r.ReadPassword(fmt.Sprintf("Password for '%s': ", withUser))
		if err != nil {
			return err
		}
		cred = secret.NewCredential(user, pass)
		return nil
	})
	return cred, err
}

// PromptForAuthCode asks for a second-factor code. kind is "sms" or
// "app".
func (c *Console) PromptForAuthCode(ctx context.Context, t target.URI, kind string) (string, error) {
	var code string
	err := c.session(ctx, func(r lineReader) error {
		switch kind {
		case "sms":
			fmt.Fprintf(c.out, "%s sent an authentication code to your phone.\n", t.Host)
		default:
			fmt.Fprintf(c.out, "%s requires the code from your authenticator app.\n", t.Host)
		}
		line, err := r.ReadLine("Authentication code: ")
		if err != nil {
			return err
		}
		code = strings.TrimSpace(line)
		return nil
	})
	return code, err
}

// session opens the terminal, runs fn, and gives up when ctx is done.
func (c *Console) session(ctx context.Context, fn func(lineReader) error) error {
	r, err := c.open()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn(r) }()

	select {
	case err = <-done:
		_ = r.Close()
	case <-ctx.Done():
		// unblocks the pending read
		_ = r.Close()
		return ctx.Err()
	}
	return translate(err)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

// terminal is a lineReader over readline on the controlling terminal.
type terminal struct {
	tty *os.File
	rl  *readline.Instance
}

func openTerminal() (lineReader, error) {
	tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTerminal, err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Stdin:           tty,
		Stdout:          tty,
		Stderr:          tty,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		FuncIsTerminal:  func() bool { return readline.IsTerminal(int(tty.Fd())) },
	})
	if err != nil {
		_ = tty.Close()
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return &terminal{tty: tty, rl: rl}, nil
}

func (t *terminal) ReadLine(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	return t.rl.Readline()
}

func (t *terminal) ReadPassword(prompt string) (string, error) {
	b, err := t.rl.ReadPassword(prompt)
	return string(b), err
}

func (t *terminal) Close() error {
	err := t.rl.Close()
	if cerr := t.tty.Close(); err == nil {
		err = cerr
	}
	return err
}
