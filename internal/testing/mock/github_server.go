package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// GitHubUser is an account of a GitHubServer.
type GitHubUser struct {
	Password string
	// OTPKind is "sms" or "app" for accounts with two-factor auth.
	OTPKind string
	// OTP is the code accepted for the second factor.
	OTP string
}

// GitHubServer fakes the GitHub REST API: POST /authorizations and
// GET /user.
type GitHubServer struct {
	srv *httptest.Server

	mu             sync.Mutex
	users          map[string]GitHubUser
	tokens         map[string]string // token -> login
	authorizations int
	userCalls      int
	scopes         [][]string
}

// NewGitHubServer starts a GitHubServer with the given accounts.
func NewGitHubServer(users map[string]GitHubUser) *GitHubServer {
	s := &GitHubServer{users: users, tokens: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorizations", s.handleAuthorizations)
	mux.HandleFunc("/user", s.handleUser)
	s.srv = httptest.NewServer(mux)
	return s
}

// URL returns the API base URL.
func (s *GitHubServer) URL() string { return s.srv.URL }

// Close shuts the server down.
func (s *GitHubServer) Close() { s.srv.Close() }

// Authorizations returns how many authorization requests were made.
func (s *GitHubServer) Authorizations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorizations
}

// Scopes returns the scopes of every successful authorization.
func (s *GitHubServer) Scopes() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.scopes...)
}

// UserCalls returns how many GET /user requests were made.
func (s *GitHubServer) UserCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userCalls
}

func (s *GitHubServer) handleAuthorizations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorizations++

	login, pass, ok := r.BasicAuth()
	user, known := s.users[login]
	if !ok || !known || user.Password != pass {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	if user.OTPKind != "" && r.Header.Get("X-GitHub-OTP") != user.OTP {
		w.Header().Set("X-GitHub-OTP", "required; "+user.OTPKind)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Must specify two-factor authentication OTP code."})
		return
	}

	var req struct {
		Scopes []string `json:"scopes"`
		Note   string   `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": err.Error()})
		return
	}

	tok := opaqueToken("gho_")
	s.tokens[tok] = login
	s.scopes = append(s.scopes, req.Scopes)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":  tok,
		"scopes": req.Scopes,
		"note":   req.Note,
	})
}

func (s *GitHubServer) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userCalls++

	login, tok, ok := r.BasicAuth()
	if !ok || s.tokens[tok] != login {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Requires authentication"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"login": login})
}
