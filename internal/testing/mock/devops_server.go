package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// DevOpsConfig configures a DevOpsServer.
type DevOpsConfig struct {
	// Tenant is sent in X-VSS-ResourceTenant on unauthenticated answers;
	// empty omits the header.
	Tenant string
	// AuthorizationURI is sent as a Bearer challenge on unauthenticated
	// answers; empty sends none.
	AuthorizationURI string
	// AcceptBearer decides which access tokens may create personal
	// tokens; nil accepts any non-empty token.
	AcceptBearer func(string) bool
	// NoLocationService makes the location service answer 404 so
	// clients fall back to the organization URL.
	NoLocationService bool
}

// PersonalTokenRecord is a personal token the server issued.
type PersonalTokenRecord struct {
	Token       string
	Scope       string
	DisplayName string
	Compact     bool
	ValidTo     *time.Time
}

// DevOpsCounters counts requests by endpoint.
type DevOpsCounters struct {
	Probes          int
	Validations     int
	LocationLookups int
	TokenCreations  int
	SessionIDs      []string
}

// DevOpsServer is a fake DevOps organization served from the root path.
type DevOpsServer struct {
	cfg DevOpsConfig
	srv *httptest.Server

	mu       sync.Mutex
	valid    map[string]bool
	issued   []PersonalTokenRecord
	counters DevOpsCounters
}

// NewDevOpsServer starts a DevOpsServer. Close it when done.
func NewDevOpsServer(cfg DevOpsConfig) *DevOpsServer {
	s := &DevOpsServer{cfg: cfg, valid: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/connectionData", s.handleConnectionData)
	mux.HandleFunc("/_apis/ServiceDefinitions/LocationService2/", s.handleLocation)
	mux.HandleFunc("/vssps/_apis/token/sessiontokens", s.handleSessionToken)
	mux.HandleFunc("/_apis/token/sessiontokens", s.handleSessionToken)
	s.srv = httptest.NewServer(mux)
	return s
}

// URL returns the organization URL.
func (s *DevOpsServer) URL() string { return s.srv.URL }

// Close shuts the server down.
func (s *DevOpsServer) Close() { s.srv.Close() }

// AddPersonalToken makes tok a valid personal token.
func (s *DevOpsServer) AddPersonalToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid[tok] = true
}

// Revoke invalidates tok.
func (s *DevOpsServer) Revoke(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.valid, tok)
}

// Issued returns the personal tokens created so far.
func (s *DevOpsServer) Issued() []PersonalTokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PersonalTokenRecord(nil), s.issued...)
}

// Counters returns a snapshot of the request counters.
func (s *DevOpsServer) Counters() DevOpsCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counters
	c.SessionIDs = append([]string(nil), s.counters.SessionIDs...)
	return c
}

func (s *DevOpsServer) record(r *http.Request) {
	if id := r.Header.Get("X-TFS-Session"); id != "" {
		s.counters.SessionIDs = append(s.counters.SessionIDs, id)
	}
}

func (s *DevOpsServer) handleConnectionData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r)

	_, pass, ok := r.BasicAuth()
	if !ok {
		s.counters.Probes++
	} else {
		s.counters.Validations++
	}

	if ok && s.valid[pass] {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"authenticatedUser": map[string]string{"providerDisplayName": "Test User"},
		})
		return
	}

	if s.cfg.Tenant != "" {
		w.Header().Set("X-VSS-ResourceTenant", s.cfg.Tenant)
	}
	if s.cfg.AuthorizationURI != "" {
		w.Header().Add("WWW-Authenticate", "Bearer authorization_uri="+s.cfg.AuthorizationURI)
		w.Header().Add("WWW-Authenticate", `Basic realm="`+s.srv.URL+`/"`)
	}
	w.WriteHeader(http.StatusUnauthorized)
}

func (s *DevOpsServer) bearerOK(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	tok := strings.TrimPrefix(auth, "Bearer ")
	if s.cfg.AcceptBearer != nil {
		return s.cfg.AcceptBearer(tok)
	}
	return tok != ""
}

func (s *DevOpsServer) handleLocation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.counters.LocationLookups++
	s.record(r)
	s.mu.Unlock()

	if s.cfg.NoLocationService {
		http.NotFound(w, r)
		return
	}
	if !s.bearerOK(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"locationMappings": []map[string]string{
			{"accessMappingMoniker": "HostGuidAccessMapping", "location": s.srv.URL + "/vssps/"},
		},
	})
}

func (s *DevOpsServer) handleSessionToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.bearerOK(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req struct {
		DisplayName string     `json:"displayName"`
		Scope       string     `json:"scope"`
		ValidTo     *time.Time `json:"validTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := PersonalTokenRecord{
		Token:       opaqueToken("pat-"),
		Scope:       req.Scope,
		DisplayName: req.DisplayName,
		Compact:     r.URL.Query().Get("tokentype") == "compact",
		ValidTo:     req.ValidTo,
	}

	s.mu.Lock()
	s.counters.TokenCreations++
	s.record(r)
	s.valid[rec.Token] = true
	s.issued = append(s.issued, rec)
	s.mu.Unlock()

	resp := map[string]interface{}{
		"token": rec.Token,
		"scope": rec.Scope,
	}
	if rec.ValidTo != nil {
		resp["validTo"] = rec.ValidTo.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}
