// Package awscfg loads AWS SDK configuration shared by the Parameter Store
// and Secrets Manager sources: region/profile selection, static credentials
// for LocalStack-style testing, and role assumption via STS.
package awscfg

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Options selects how the AWS SDK authenticates.
type Options struct {
	Region  string
	Profile string

	// Static credentials, used for LocalStack or testing.
	AccessKeyID     string
	SecretAccessKey string

	// AssumeRole is an IAM role ARN assumed via STS on top of the base
	// credentials.
	AssumeRole      string
	RoleSessionName string
}

// Load builds an aws.Config from the options.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error

	if opts.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if opts.AssumeRole != "" {
		stsClient := sts.NewFromConfig(cfg)
		assumed := stscreds.NewAssumeRoleProvider(stsClient, opts.AssumeRole, func(o *stscreds.AssumeRoleOptions) {
			if opts.RoleSessionName != "" {
				o.RoleSessionName = opts.RoleSessionName
			}
		})
		cfg.Credentials = aws.NewCredentialsCache(assumed)
	}

	return cfg, nil
}
