package config

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"credmgr/internal/target"
	"credmgr/pkg/logging"
)

// Lookup resolves a setting for a target. Implementations return false when
// they have no value; they never fail.
type Lookup interface {
	Get(section string, t target.URI, key string) (string, bool)
}

// Chain consults each Lookup in order and returns the first hit.
type Chain []Lookup

// Get implements Lookup.
func (c Chain) Get(section string, t target.URI, key string) (string, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if v, ok := l.Get(section, t, key); ok {
			return v, true
		}
	}
	return "", false
}

// MapLookup is a fixed set of settings keyed "section.key". Tests and the
// built-in defaults use it.
type MapLookup map[string]string

// Get implements Lookup.
func (m MapLookup) Get(section string, _ target.URI, key string) (string, bool) {
	v, ok := m[section+"."+key]
	return v, ok
}

// gitConfigTimeout bounds a single git config invocation.
const gitConfigTimeout = 5 * time.Second

// GitRunner runs git with args and returns its trimmed stdout.
type GitRunner func(ctx context.Context, args ...string) (string, error)

// GitConfigLookup resolves settings with `git config --get-urlmatch`, which
// applies git's own URL matching rules to credential.<url>.<key> entries.
type GitConfigLookup struct {
	run GitRunner
}

// NewGitConfigLookup returns a GitConfigLookup; a nil runner executes git.
func NewGitConfigLookup(run GitRunner) *GitConfigLookup {
	if run == nil {
		run = execGit
	}
	return &GitConfigLookup{run: run}
}

// Get implements Lookup.
func (g *GitConfigLookup) Get(section string, t target.URI, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), gitConfigTimeout)
	defer cancel()

	out, err := g.run(ctx, "config", "--get-urlmatch", section+"."+key, t.String())
	if err != nil {
		// exit status 1 means "not set"
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			logging.Debug("Config", "git config lookup for %s.%s failed: %v", section, key, err)
		}
		return "", false
	}
	if out == "" {
		return "", false
	}
	return out, true
}

func execGit(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
