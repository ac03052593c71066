// Package awssecrets provides the AWS Secrets Manager configuration source.
// Secrets are fetched by explicit name or discovered by name prefix, mapped
// to flat colon-delimited keys, and JSON secret payloads can be flattened
// into nested keys. Raw payloads are held in protected memory between fetch
// and processing.
package awssecrets

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	flexkit "github.com/saruyev/flexkit"
	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/internal/flatten"
	"github.com/saruyev/flexkit/internal/secure"
	"github.com/saruyev/flexkit/logging"
	"github.com/saruyev/flexkit/sources/internal/awscfg"
)

// SourceName identifies this source in errors, logs and metrics.
const SourceName = "aws.secretsmanager"

// ClientAPI defines the Secrets Manager operations the source uses.
// This allows for mocking in tests.
type ClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// Config holds Secrets Manager source configuration.
type Config struct {
	// Names lists secrets to fetch explicitly.
	Names []string

	// NamePrefix discovers additional secrets whose names begin with the
	// prefix. Either Names or NamePrefix must be set.
	NamePrefix string

	Region  string
	Profile string
	// AssumeRole is an IAM role ARN assumed before fetching.
	AssumeRole string
	// Endpoint overrides the service endpoint (LocalStack or testing).
	Endpoint string

	// Options carries the shared fetch options.
	Options flexkit.SourceOptions
}

// Source implements flexkit.Source for Secrets Manager.
type Source struct {
	client ClientAPI
	logger *logging.Logger
	cfg    Config
}

// Option is a functional option for configuring the source.
type Option func(*Source)

// WithClient sets a custom Secrets Manager client (for testing).
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

// New creates a Secrets Manager source.
func New(cfg Config, opts ...Option) (*Source, error) {
	if len(cfg.Names) == 0 && cfg.NamePrefix == "" {
		return nil, fkerrors.ConfigError{
			Field:      "names",
			Message:    "at least one secret name or a name prefix is required",
			Suggestion: "List the secrets to load, or set a name prefix to discover them",
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
		awsCfg, err := awscfg.Load(context.Background(), awscfg.Options{
			Region:     cfg.Region,
			Profile:    cfg.Profile,
			AssumeRole: cfg.AssumeRole,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Secrets Manager client: %w", err)
		}
		var clientOpts []func(*secretsmanager.Options)
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		s.client = secretsmanager.NewFromConfig(awsCfg, clientOpts...)
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

// Load fetches every configured and discovered secret.
func (s *Source) Load(ctx context.Context) (map[string]string, error) {
	names, err := s.secretNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, name := range names {
		if err := s.fetch(ctx, name, out); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("Loaded %d keys from %d secrets", len(out), len(names))
	return out, nil
}

// secretNames combines the explicit list with prefix discovery, dropping
// duplicates while keeping order.
func (s *Source) secretNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.cfg.Names))
	seen := make(map[string]struct{}, len(s.cfg.Names))
	for _, name := range s.cfg.Names {
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	if s.cfg.NamePrefix == "" {
		return names, nil
	}

	input := &secretsmanager.ListSecretsInput{
		Filters: []types.Filter{{
			Key:    types.FilterNameStringTypeName,
			Values: []string{s.cfg.NamePrefix},
		}},
	}
	paginator := secretsmanager.NewListSecretsPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fkerrors.UserError{
				Message:    fmt.Sprintf("Failed to list secrets with prefix %s", s.cfg.NamePrefix),
				Details:    err.Error(),
				Suggestion: errorSuggestion(err),
				Err:        err,
			}
		}
		for _, entry := range page.SecretList {
			if entry.Name == nil {
				continue
			}
			if _, dup := seen[*entry.Name]; !dup {
				seen[*entry.Name] = struct{}{}
				names = append(names, *entry.Name)
			}
		}
	}

	return names, nil
}

// fetch retrieves one secret and maps it onto flat keys. The raw payload
// lives in a protected buffer until processing finishes.
func (s *Source) fetch(ctx context.Context, name string, out map[string]string) error {
	s.logger.Debug("Fetching secret %s", logging.Secret(name))

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return fkerrors.UserError{
			Message:    fmt.Sprintf("Failed to get secret %s", name),
			Details:    err.Error(),
			Suggestion: errorSuggestion(err),
			Err:        err,
		}
	}

	var raw []byte
	switch {
	case result.SecretString != nil:
		raw = []byte(*result.SecretString)
	case result.SecretBinary != nil:
		// Binary payloads cannot be flat string values; store base64 text.
		raw = []byte(base64.StdEncoding.EncodeToString(result.SecretBinary))
	default:
		return fmt.Errorf("secret %q has no value", name)
	}

	payload := secure.NewPayload(raw)
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

// flatKey converts a secret name to a flat key: path separators and hyphens
// become colons.
func (s *Source) flatKey(name string) string {
	key := strings.Trim(name, "/")
	key = strings.ReplaceAll(key, "/", flatten.Delimiter)
	return strings.ReplaceAll(key, "-", flatten.Delimiter)
}

// errorSuggestion provides helpful suggestions based on Secrets Manager errors
func errorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "accessdenied"):
		return "Check IAM permissions: secretsmanager:GetSecretValue and secretsmanager:ListSecrets"
	case strings.Contains(errStr, "resourcenotfound"):
		return "Verify the secret name and region, or mark the source optional"
	case strings.Contains(errStr, "decryptionfailure"):
		return "The KMS key for this secret may not exist or you lack kms:Decrypt permission"
	case strings.Contains(errStr, "throttl"):
		return "Request was throttled. Increase the reload interval or reduce request rate"
	default:
		return "Check AWS credentials, region, and IAM permissions for Secrets Manager"
	}
}
