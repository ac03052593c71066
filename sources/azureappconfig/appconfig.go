// Package azureappconfig provides the Azure App Configuration source.
// Settings are selected by key and label filters and mapped to flat
// colon-delimited keys; settings with a JSON content type (or matching the
// JSON processing options) are flattened into nested keys.
package azureappconfig

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azappconfig"

	flexkit "github.com/saruyev/flexkit"
	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/internal/flatten"
	"github.com/saruyev/flexkit/logging"
	"github.com/saruyev/flexkit/sources/internal/azureauth"
)

// SourceName identifies this source in errors, logs and metrics.
const SourceName = "azure.appconfig"

// jsonContentType marks settings whose values are JSON documents.
const jsonContentType = "application/json"

// ClientAPI defines the App Configuration operations the source uses.
// This allows for mocking in tests; fakes can construct the pager with
// runtime.NewPager.
type ClientAPI interface {
	NewListSettingsPager(selector azappconfig.SettingSelector, options *azappconfig.ListSettingsOptions) *runtime.Pager[azappconfig.ListSettingsPageResponse]
}

// Config holds App Configuration source configuration.
type Config struct {
	// Endpoint is the store endpoint, e.g. https://my-store.azconfig.io.
	// Either Endpoint or ConnectionString is required.
	Endpoint string

	// ConnectionString authenticates with an access key instead of Azure AD.
	ConnectionString string

	// KeyFilter narrows the settings to fetch, e.g. "myapp/*". Empty fetches
	// every setting.
	KeyFilter string

	// LabelFilter selects a label, e.g. "production". Empty selects settings
	// with no label.
	LabelFilter string

	// TrimPrefix is removed from setting keys before they become flat keys.
	TrimPrefix string

	// Credential selection, ignored when ConnectionString is set. All empty
	// uses the default chain (environment, managed identity, Azure CLI).
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	// UserAssignedID selects a user-assigned managed identity by client ID.
	UserAssignedID string

	// Options carries the shared fetch options.
	Options flexkit.SourceOptions
}

// Source implements flexkit.Source for Azure App Configuration.
type Source struct {
	client ClientAPI
	logger *logging.Logger
	cfg    Config
}

// Option is a functional option for configuring the source.
type Option func(*Source)

// WithClient sets a custom App Configuration client (for testing).
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

// New creates an App Configuration source.
func New(cfg Config, opts ...Option) (*Source, error) {
	if cfg.Endpoint == "" && cfg.ConnectionString == "" {
		return nil, fkerrors.ConfigError{
			Field:      "endpoint",
			Message:    "endpoint or connection_string is required for App Configuration",
			Suggestion: "Provide the store endpoint (e.g., https://my-store.azconfig.io) or a connection string",
		}
	}
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fkerrors.ConfigError{
				Field:      "endpoint",
				Value:      cfg.Endpoint,
				Message:    "Invalid endpoint format",
				Suggestion: "Use format: https://store-name.azconfig.io",
			}
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
		client, err := newClient(cfg)
		if err != nil {
			return nil, err
		}
		s.client = client
	}

	return s, nil
}

func newClient(cfg Config) (*azappconfig.Client, error) {
	if cfg.ConnectionString != "" {
		client, err := azappconfig.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create App Configuration client: %w", err)
		}
		return client, nil
	}

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
	client, err := azappconfig.NewClient(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create App Configuration client: %w", err)
	}
	return client, nil
}

// Name implements flexkit.Source.
func (s *Source) Name() string {
	return SourceName
}

// Options implements flexkit.Source.
func (s *Source) Options() flexkit.SourceOptions {
	return s.cfg.Options
}

// Load fetches every setting matching the key and label filters.
func (s *Source) Load(ctx context.Context) (map[string]string, error) {
	selector := azappconfig.SettingSelector{}
	if s.cfg.KeyFilter != "" {
		selector.KeyFilter = &s.cfg.KeyFilter
	}
	if s.cfg.LabelFilter != "" {
		selector.LabelFilter = &s.cfg.LabelFilter
	}

	out := make(map[string]string)
	pager := s.client.NewListSettingsPager(selector, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fkerrors.UserError{
				Message:    "Failed to list App Configuration settings",
				Details:    err.Error(),
				Suggestion: errorSuggestion(err),
				Err:        err,
			}
		}
		for _, setting := range page.Settings {
			if setting.Key == nil {
				continue
			}
			value := ""
			if setting.Value != nil {
				value = *setting.Value
			}
			s.store(out, *setting.Key, value, setting.ContentType)
		}
	}

	s.logger.Debug("Loaded %d keys from App Configuration", len(out))
	return out, nil
}

// store maps one setting onto flat keys, flattening JSON values when the
// content type or the source options ask for it.
func (s *Source) store(out map[string]string, name, value string, contentType *string) {
	key := s.flatKey(name)
	isJSONType := contentType != nil && strings.HasPrefix(*contentType, jsonContentType)
	if (isJSONType || s.cfg.Options.ShouldProcessJSON(name)) && flatten.IsJSON([]byte(value)) {
		for k, v := range flatten.Flatten([]byte(value), key) {
			out[s.cfg.Options.ProcessKey(k)] = v
		}
		return
	}
	out[s.cfg.Options.ProcessKey(key)] = value
}

// flatKey converts a setting key to a flat key: the configured prefix is
// stripped and path separators become colons.
func (s *Source) flatKey(name string) string {
	key := strings.TrimPrefix(name, s.cfg.TrimPrefix)
	key = strings.Trim(key, "/")
	return strings.ReplaceAll(key, "/", flatten.Delimiter)
}

// errorSuggestion provides helpful suggestions based on App Configuration errors
func errorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "403"):
		return "Check RBAC: the 'App Configuration Data Reader' role is required"
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401"):
		return "Check authentication: verify the connection string or Azure AD credentials"
	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "dns"):
		return "Verify the store endpoint. It should look like https://store-name.azconfig.io"
	case strings.Contains(errStr, "throttled") || strings.Contains(errStr, "429"):
		return "Request was throttled. Increase the reload interval or reduce request rate"
	default:
		return "Check Azure credentials, the store endpoint, and RBAC assignments"
	}
}
