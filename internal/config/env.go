package config

import (
	"os"

	"github.com/joho/godotenv"

	"credmgr/internal/target"
	"credmgr/pkg/logging"
)

// envOverrides maps setting keys, per section, to the environment variables
// that override them. Earlier variables win.
var envOverrides = map[string]map[string][]string{
	SectionCredential: {
		KeyAuthority:          {"GCM_AUTHORITY"},
		KeyInteractive:        {"GCM_INTERACTIVE"},
		KeyValidate:           {"GCM_VALIDATE"},
		KeyModalPrompt:        {"GCM_MODAL_PROMPT"},
		KeyNamespace:          {"GCM_NAMESPACE"},
		KeyPreserve:           {"GCM_PRESERVE"},
		KeyUseHTTPPath:        {"GCM_HTTP_PATH"},
		KeyHTTPProxy:          {"GCM_HTTP_PROXY"},
		KeyTokenDuration:      {"GCM_TOKEN_DURATION"},
		KeyCredentialStore:    {"GCM_CREDENTIAL_STORE"},
		KeyFederatedTokenFile: {"GCM_FEDERATED_TOKEN_FILE", "AZURE_FEDERATED_TOKEN_FILE"},
		KeyWriteLog:           {"GCM_TRACE"},
		KeyOAuthClientID:      {"GCM_OAUTH_CLIENT_ID"},
		KeyGitHubAPI:          {"GCM_GITHUB_API_URL"},
	},
	SectionHTTP: {
		KeyProxy: {"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"},
	},
}

// EnvLookup resolves the documented subset of settings from environment
// variables. It ignores the target.
type EnvLookup struct {
	getenv func(string) string
}

// NewEnvLookup returns an EnvLookup reading getenv; nil means os.Getenv.
func NewEnvLookup(getenv func(string) string) *EnvLookup {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &EnvLookup{getenv: getenv}
}

// Get implements Lookup.
func (e *EnvLookup) Get(section string, _ target.URI, key string) (string, bool) {
	for _, name := range envOverrides[section][key] {
		if v := e.getenv(name); v != "" {
			return v, true
		}
	}
	return "", false
}

// Getenv exposes the underlying environment reader.
func (e *EnvLookup) Getenv(name string) string {
	return e.getenv(name)
}

// LoadEnvFile merges a dotenv file into the process environment without
// overwriting variables that are already set. A missing path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Debug("Config", "No env file at %s", path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return NewConfigurationError(path, "env", "parse", err.Error())
	}
	logging.Debug("Config", "Loaded environment overrides from %s", path)
	return nil
}
