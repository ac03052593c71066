// Package awsparams provides the AWS Systems Manager Parameter Store
// configuration source. Parameters under a path prefix are fetched
// recursively and mapped to flat colon-delimited keys; values containing
// JSON documents can optionally be flattened into nested keys.
package awsparams

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	flexkit "github.com/saruyev/flexkit"
	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/internal/flatten"
	"github.com/saruyev/flexkit/logging"
	"github.com/saruyev/flexkit/sources/internal/awscfg"
)

// SourceName identifies this source in errors, logs and metrics.
const SourceName = "aws.parameterstore"

// ClientAPI defines the SSM operations the source uses.
// This allows for mocking in tests.
type ClientAPI interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// Config holds Parameter Store source configuration.
type Config struct {
	// Path is the parameter hierarchy to fetch, e.g. "/myapp/". Required.
	Path string

	Region  string
	Profile string
	// AssumeRole is an IAM role ARN assumed before fetching.
	AssumeRole string

	// SkipDecryption disables SecureString decryption (enabled by default).
	SkipDecryption bool

	// Options carries the shared fetch options (optional flag, reload
	// interval, JSON processing, key processor).
	Options flexkit.SourceOptions
}

// Source implements flexkit.Source for Parameter Store.
type Source struct {
	client ClientAPI
	logger *logging.Logger
	cfg    Config
}

// Option is a functional option for configuring the source.
type Option func(*Source)

// WithClient sets a custom SSM client (for testing).
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

// New creates a Parameter Store source.
func New(cfg Config, opts ...Option) (*Source, error) {
	if cfg.Path == "" {
		return nil, fkerrors.ConfigError{
			Field:      "path",
			Message:    "path is required for Parameter Store",
			Suggestion: "Provide the parameter hierarchy, e.g. /myapp/",
		}
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return nil, fkerrors.ConfigError{
			Field:      "path",
			Value:      cfg.Path,
			Message:    "path must start with '/'",
			Suggestion: "SSM parameter hierarchies are absolute, e.g. /prod/myapp/",
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
			return nil, fmt.Errorf("failed to create SSM client: %w", err)
		}
		s.client = ssm.NewFromConfig(awsCfg)
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

// Load fetches every parameter under the configured path.
func (s *Source) Load(ctx context.Context) (map[string]string, error) {
	s.logger.Debug("Fetching parameters under %s", logging.Secret(s.cfg.Path))

	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(s.cfg.Path),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(!s.cfg.SkipDecryption),
	}

	out := make(map[string]string)
	paginator := ssm.NewGetParametersByPathPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fkerrors.UserError{
				Message:    fmt.Sprintf("Failed to get parameters under %s", s.cfg.Path),
				Details:    err.Error(),
				Suggestion: errorSuggestion(err),
				Err:        err,
			}
		}
		for _, param := range page.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			s.store(out, *param.Name, *param.Value)
		}
	}

	s.logger.Debug("Loaded %d keys from %s", len(out), s.cfg.Path)
	return out, nil
}

// store maps one parameter onto flat keys, flattening JSON values when the
// source options ask for it.
func (s *Source) store(out map[string]string, name, value string) {
	key := s.flatKey(name)
	if s.cfg.Options.ShouldProcessJSON(name) && flatten.IsJSON([]byte(value)) {
		for k, v := range flatten.Flatten([]byte(value), key) {
			out[s.cfg.Options.ProcessKey(k)] = v
		}
		return
	}
	out[s.cfg.Options.ProcessKey(key)] = value
}

// flatKey converts a parameter name to a flat key: the configured path
// prefix is stripped and remaining separators become colons.
func (s *Source) flatKey(name string) string {
	key := strings.TrimPrefix(name, s.cfg.Path)
	key = strings.Trim(key, "/")
	return strings.ReplaceAll(key, "/", flatten.Delimiter)
}

// errorSuggestion provides helpful suggestions based on SSM errors
func errorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "accessdenied"):
		return "Check IAM permissions: ssm:GetParametersByPath and kms:Decrypt (for SecureString)"
	case strings.Contains(errStr, "parameternotfound"):
		return "Verify the parameter path. SSM parameters are case-sensitive"
	case strings.Contains(errStr, "invalidkeyid"):
		return "The KMS key for this SecureString parameter may not exist or you lack kms:Decrypt permission"
	case strings.Contains(errStr, "throttl"):
		return "Request was throttled. Increase the reload interval or reduce request rate"
	case strings.Contains(errStr, "region"):
		return "Check that you're using the correct AWS region where the parameters are stored"
	default:
		return "Check AWS credentials, region, and IAM permissions for SSM Parameter Store"
	}
}
