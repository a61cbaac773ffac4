package authority

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"credmgr/internal/config"
	"credmgr/internal/oauth"
	"credmgr/internal/secret"
)

// Factory binds authorities to the collaborators of one invocation.
type Factory struct {
	Vault    secret.Vault
	Prompter Prompter
	// Present returns the URL presenter for the modal or console mode.
	Present  func(modal bool) oauth.URLPresenter
	Progress ProgressFunc

	// SessionID correlates the invocation's DevOps requests.
	SessionID uuid.UUID
	// AuthorityHost overrides the DevOps login service.
	AuthorityHost string
	// HTTPClient overrides the proxy-aware client built per operation.
	HTTPClient *http.Client
}

// Store returns the secret store for op's namespace and path policy.
func (f *Factory) Store(op *config.Operation) *secret.Store {
	return secret.NewStore(f.Vault, op.Namespace, op.UseHTTPPath)
}

// HTTP returns the HTTP client for op.
func (f *Factory) HTTP(op *config.Operation) *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return NewHTTPClient(op.Proxy, f.SessionID)
}

// Detector returns the auto-detector for op.
func (f *Factory) Detector(op *config.Operation) *Detector {
	return NewDefaultDetector(f.HTTP(op), f.Store(op))
}

// New builds the variant of kind det.Kind for op.
func (f *Factory) New(op *config.Operation, det config.Detection) (Variant, error) {
	store := f.Store(op)
	httpClient := f.HTTP(op)

	switch det.Kind {
	case KindBasic:
		return BasicVariant(NewBasic(store, httpClient, f.Prompter)), nil

	case KindAzureDirectory, KindMicrosoftAccount:
		var present oauth.URLPresenter
		if f.Present != nil {
			present = f.Present(op.UseModalUI)
		}
		d, err := NewDevOps(DevOpsOptions{
			Kind:               det.Kind,
			TenantID:           det.TenantID,
			Store:              store,
			HTTPClient:         httpClient,
			OAuth:              oauth.NewClient(oauth.WithHTTPClient(httpClient)),
			AuthorityHost:      f.AuthorityHost,
			ClientID:           op.OAuthClientID,
			TokenDuration:      op.TokenDuration,
			FederatedTokenFile: op.FederatedTokenFile,
			Present:            present,
			Progress:           f.Progress,
		})
		if err != nil {
			return Variant{}, err
		}
		return OAuthVariant(d), nil

	case KindGitHub:
		g, err := NewGitHub(GitHubOptions{
			Store:      store,
			HTTPClient: httpClient,
			Prompter:   f.Prompter,
			APIURL:     op.GitHubAPIURL,
		})
		if err != nil {
			return Variant{}, err
		}
		return SourceHostVariant(g), nil

	case KindIntegrated:
		return IntegratedVariant(NewIntegrated()), nil

	case config.AuthorityAuto:
		return Variant{}, fmt.Errorf("authority kind must be resolved before binding")
	}
	return Variant{}, fmt.Errorf("unknown authority kind %d", det.Kind)
}

// Detect runs auto-detection for op.
func (f *Factory) Detect(ctx context.Context, op *config.Operation) config.Detection {
	return f.Detector(op).Detect(ctx, op)
}
