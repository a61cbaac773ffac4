// Package gitcred reads and writes the key=value records of the git
// credential helper protocol.
package gitcred

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformed is returned for records git would never send.
var ErrMalformed = errors.New("malformed credential record")

// Record is one credential description exchanged with git. Attributes the
// helper does not use are dropped.
type Record struct {
	Protocol string
	Host     string
	Path     string
	Username string
	Password string
	// URL is sent by newer git versions in place of the parts above.
	URL string
}

// Read parses a record terminated by a blank line or end of input.
func Read(r io.Reader) (Record, error) {
	var rec Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			return Record{}, fmt.Errorf("%w: line %q has no key", ErrMalformed, line)
		}
		if strings.ContainsRune(value, 0) {
			return Record{}, fmt.Errorf("%w: NUL in %s", ErrMalformed, key)
		}

		switch key {
		case "protocol":
			rec.Protocol = value
		case "host":
			rec.Host = value
		case "path":
			rec.Path = value
		case "username":
			rec.Username = value
		case "password":
			rec.Password = value
		case "url":
			rec.URL = value
		}
	}
	if err := sc.Err(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Write emits the non-empty fields of rec in git's order, without the
// terminating blank line.
func Write(w io.Writer, rec Record) error {
	fields := []struct{ key, value string }{
		{"protocol", rec.Protocol},
		{"host", rec.Host},
		{"path", rec.Path},
		{"username", rec.Username},
		{"password", rec.Password},
	}
	var b strings.Builder
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if strings.ContainsAny(f.value, "\n\x00") {
			return fmt.Errorf("%w: %s contains a newline", ErrMalformed, f.key)
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(f.value)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// TargetURL returns the remote URL the record describes.
func (r Record) TargetURL() (string, error) {
	if r.URL != "" {
		return r.URL, nil
	}
	if r.Protocol == "" || r.Host == "" {
		return "", fmt.Errorf("%w: protocol and host are required", ErrMalformed)
	}
	u := r.Protocol + "://" + r.Host
	if p := strings.TrimPrefix(r.Path, "/"); p != "" {
		u += "/" + p
	}
	return u, nil
}
