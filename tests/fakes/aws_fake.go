package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// FakeSSMClient is an in-memory Parameter Store for GetParametersByPath.
type FakeSSMClient struct {
	// Parameters maps parameter names to values
	Parameters map[string]string
	// Err, when set, fails every call
	Err error
	// PageSize splits results into pages when > 0 (exercises pagination)
	PageSize int
	// Calls counts GetParametersByPath invocations
	Calls int
	// GetParametersByPathFunc allows custom behavior
	GetParametersByPathFunc func(ctx context.Context, params *ssm.GetParametersByPathInput) (*ssm.GetParametersByPathOutput, error)
}

// NewFakeSSMClient creates an empty fake SSM client.
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{Parameters: make(map[string]string)}
}

// AddParameter adds a parameter to the fake store.
func (f *FakeSSMClient) AddParameter(name, value string) {
	f.Parameters[name] = value
}

// GetParametersByPath mocks the GetParametersByPath operation, honoring the
// path prefix and NextToken-based pagination.
func (f *FakeSSMClient) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	f.Calls++
	if f.GetParametersByPathFunc != nil {
		return f.GetParametersByPathFunc(ctx, params)
	}
	if f.Err != nil {
		return nil, f.Err
	}

	path := aws.ToString(params.Path)
	var names []string
	for name := range f.Parameters {
		if strings.HasPrefix(name, path) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	start := 0
	if params.NextToken != nil {
		fmt.Sscanf(*params.NextToken, "%d", &start)
	}
	end := len(names)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}

	out := &ssm.GetParametersByPathOutput{}
	for _, name := range names[start:end] {
		out.Parameters = append(out.Parameters, ssmtypes.Parameter{
			Name:  aws.String(name),
			Type:  ssmtypes.ParameterTypeSecureString,
			Value: aws.String(f.Parameters[name]),
		})
	}
	if end < len(names) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

// FakeSecretsManagerClient is an in-memory Secrets Manager.
type FakeSecretsManagerClient struct {
	// Secrets maps secret names to string values
	Secrets map[string]string
	// BinarySecrets maps secret names to binary values
	BinarySecrets map[string][]byte
	// Errors maps secret names to errors to return from GetSecretValue
	Errors map[string]error
	// ListErr, when set, fails ListSecrets
	ListErr error
}

// NewFakeSecretsManagerClient creates an empty fake Secrets Manager client.
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets:       make(map[string]string),
		BinarySecrets: make(map[string][]byte),
		Errors:        make(map[string]error),
	}
}

// AddSecretString adds a string secret.
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.Secrets[name] = value
}

// AddSecretBinary adds a binary secret.
func (f *FakeSecretsManagerClient) AddSecretBinary(name string, value []byte) {
	f.BinarySecrets[name] = value
}

// AddError configures an error for a specific secret.
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// GetSecretValue mocks the GetSecretValue operation.
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	if value, exists := f.Secrets[name]; exists {
		return &secretsmanager.GetSecretValueOutput{
			Name:         params.SecretId,
			SecretString: aws.String(value),
		}, nil
	}
	if value, exists := f.BinarySecrets[name]; exists {
		return &secretsmanager.GetSecretValueOutput{
			Name:         params.SecretId,
			SecretBinary: value,
		}, nil
	}
	return nil, &smtypes.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", name)),
	}
}

// ListSecrets mocks the ListSecrets operation, honoring name filters.
func (f *FakeSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	prefix := ""
	for _, filter := range params.Filters {
		if filter.Key == smtypes.FilterNameStringTypeName && len(filter.Values) > 0 {
			prefix = filter.Values[0]
		}
	}

	var names []string
	for name := range f.Secrets {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	for name := range f.BinarySecrets {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := &secretsmanager.ListSecretsOutput{}
	for _, name := range names {
		out.SecretList = append(out.SecretList, smtypes.SecretListEntry{
			Name: aws.String(name),
		})
	}
	return out, nil
}
