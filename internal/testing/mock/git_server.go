package mock

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// DefaultRepoPath is the repository a GitServer hosts when none is given.
const DefaultRepoPath = "/team/repo.git"

// GitServer is a smart-HTTP git remote that only checks basic auth on
// the ref advertisement. Like real hosts it answers 404 for the ref
// advertisement of anything but its repositories, the host root included.
type GitServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	accounts map[string]string
	repos    map[string]bool
	probes   int
}

// NewGitServer starts a GitServer accepting the given username/password
// pairs and hosting repos (DefaultRepoPath when empty).
func NewGitServer(accounts map[string]string, repos ...string) *GitServer {
	if len(repos) == 0 {
		repos = []string{DefaultRepoPath}
	}
	s := &GitServer{accounts: accounts, repos: make(map[string]bool, len(repos))}
	for _, r := range repos {
		s.repos["/"+strings.Trim(r, "/")] = true
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the server URL.
func (s *GitServer) URL() string { return s.srv.URL }

// Close shuts the server down.
func (s *GitServer) Close() { s.srv.Close() }

// RepoURL returns the URL of the repository at path.
func (s *GitServer) RepoURL(path string) string {
	return s.srv.URL + "/" + strings.Trim(path, "/")
}

// Probes returns how many ref advertisements were requested, hosted or not.
func (s *GitServer) Probes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probes
}

func (s *GitServer) handle(w http.ResponseWriter, r *http.Request) {
	repo, ok := strings.CutSuffix(r.URL.Path, "/info/refs")
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.probes++
	hosted := s.repos[repo]
	s.mu.Unlock()
	if !hosted {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	user, pass, ok := r.BasicAuth()
	want, known := s.accounts[user]
	s.mu.Unlock()

	if !ok || !known || want != pass {
		w.Header().Set("WWW-Authenticate", `Basic realm="git"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/x-"+r.URL.Query().Get("service")+"-advertisement")
	_, _ = w.Write([]byte("001e# service=git-upload-pack\n0000"))
}
