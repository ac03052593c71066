// Package azurekeyvault provides the Azure Key Vault configuration source.
// Secret names use "--" as the hierarchy separator and map to flat
// colon-delimited keys; JSON secret payloads can be flattened into nested
// keys. Raw payloads are held in protected memory between fetch and
// processing.
package azurekeyvault

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	flexkit "github.com/saruyev/flexkit"
	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/internal/flatten"
	"github.com/saruyev/flexkit/internal/secure"
	"github.com/saruyev/flexkit/logging"
	"github.com/saruyev/flexkit/sources/internal/azureauth"
)

// SourceName identifies this source in errors, logs and metrics.
const SourceName = "azure.keyvault"

// ClientAPI defines the Key Vault operations the source uses.
// This allows for mocking in tests; fakes can construct the pager with
// runtime.NewPager.
type ClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

// Config holds Key Vault source configuration.
type Config struct {
	// VaultURL is the vault endpoint, e.g. https://my-vault.vault.azure.net/. Required.
	VaultURL string

	// Names lists secrets to fetch explicitly. Empty means every enabled
	// secret in the vault.
	Names []string

	// Credential selection. All empty uses the default chain (environment,
	// managed identity, Azure CLI).
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	// UserAssignedID selects a user-assigned managed identity by client ID.
	UserAssignedID string

	// Options carries the shared fetch options.
	Options flexkit.SourceOptions
}

// Source implements flexkit.Source for Azure Key Vault.
type Source struct {
	client ClientAPI
	logger *logging.Logger
	cfg    Config
}

// Option is a functional option for configuring the source.
type Option func(*Source)

// WithClient sets a custom Key Vault client (for testing).
func WithClient(client ClientAPI) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithDiagnostics sets the diagnostic logger.
func WithDiagnostics(logger *logging.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a Key Vault source.
func New(cfg Config, opts ...Option) (*Source, error) {
	if cfg.VaultURL == "" {
		return nil, fkerrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if _, err := url.ParseRequestURI(cfg.VaultURL); err != nil {
		return nil, fkerrors.ConfigError{
			Field:      "vault_url",
			Value:      cfg.VaultURL,
			Message:    "Invalid vault_url format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}

	s := &Source{
		logger: logging.New(false, false),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cred, err := azureauth.Credential(azureauth.Options{
			TenantID:           cfg.TenantID,
			ClientID:           cfg.ClientID,
			ClientSecret:       cfg.ClientSecret,
			UseManagedIdentity: cfg.UseManagedIdentity,
			UserAssignedID:     cfg.UserAssignedID,
		})
		if err != nil {
			return nil, err
		}
		client, err := azsecrets.NewClient(cfg.VaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

// Name implements flexkit.Source.
func (s *Source) Name() string {
	return SourceName
}

// Options implements flexkit.Source.
func (s *Source) Options() flexkit.SourceOptions {
	return s.cfg.Options
}

// Load fetches the configured secrets, or every enabled secret when no
// explicit names are configured.
func (s *Source) Load(ctx context.Context) (map[string]string, error) {
	names := s.cfg.Names
	if len(names) == 0 {
		discovered, err := s.listNames(ctx)
		if err != nil {
			return nil, err
		}
		names = discovered
	}

	out := make(map[string]string)
	for _, name := range names {
		if err := s.fetch(ctx, name, out); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("Loaded %d keys from vault %s", len(out), s.cfg.VaultURL)
	return out, nil
}

func (s *Source) listNames(ctx context.Context) ([]string, error) {
	var names []string
	pager := s.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fkerrors.UserError{
				Message:    "Failed to list Key Vault secrets",
				Details:    err.Error(),
				Suggestion: errorSuggestion(err),
				Err:        err,
			}
		}
		for _, props := range page.Value {
			if props == nil || props.ID == nil {
				continue
			}
			if props.Attributes != nil && props.Attributes.Enabled != nil && !*props.Attributes.Enabled {
				continue
			}
			names = append(names, props.ID.Name())
		}
	}
	return names, nil
}

// fetch retrieves one secret and maps it onto flat keys. The raw payload
// lives in a protected buffer until processing finishes.
func (s *Source) fetch(ctx context.Context, name string, out map[string]string) error {
	s.logger.Debug("Accessing Key Vault secret %s", logging.Secret(name))

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return fkerrors.UserError{
			Message:    fmt.Sprintf("Failed to access secret: %s", name),
			Details:    err.Error(),
			Suggestion: errorSuggestion(err),
			Err:        err,
		}
	}
	if resp.Value == nil {
		return fmt.Errorf("secret %q has no value", name)
	}

	payload := secure.NewPayload([]byte(*resp.Value))
	defer payload.Destroy()

	key := s.flatKey(name)
	return payload.With(func(data []byte) error {
		if s.cfg.Options.ShouldProcessJSON(name) && flatten.IsJSON(data) {
			for k, v := range flatten.Flatten(data, key) {
				out[s.cfg.Options.ProcessKey(k)] = v
			}
			return nil
		}
		out[s.cfg.Options.ProcessKey(key)] = string(data)
		return nil
	})
}

// flatKey converts a secret name to a flat key. Key Vault forbids colons in
// secret names, so hierarchical names use "--" as the separator.
func (s *Source) flatKey(name string) string {
	return strings.ReplaceAll(name, "--", flatten.Delimiter)
}

// errorSuggestion provides helpful suggestions based on Key Vault errors
func errorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "access denied"):
		return "Check Key Vault access policies: 'Get' and 'List' permissions are required for secrets"
	case strings.Contains(errStr, "secretnotfound") || strings.Contains(errStr, "404"):
		return "Verify the secret name exists in the Key Vault. Secret names are case-sensitive"
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401"):
		return "Check authentication: verify managed identity, service principal, or Azure CLI login"
	case strings.Contains(errStr, "throttled") || strings.Contains(errStr, "429"):
		return "Request was throttled. Increase the reload interval or reduce request rate"
	case strings.Contains(errStr, "tenant"):
		return "Check that the tenant ID is correct and the application is registered"
	default:
		return "Check Azure credentials, Key Vault URL, and access policies"
	}
}
