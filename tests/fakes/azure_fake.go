package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azappconfig"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeKeyVaultClient is an in-memory Azure Key Vault.
type FakeKeyVaultClient struct {
	// Secrets maps secret names to values
	Secrets map[string]string
	// Disabled marks secrets that exist but are disabled
	Disabled map[string]bool
	// Errors maps secret names to errors to return from GetSecret
	Errors map[string]error
	// ListErr, when set, fails the list pager
	ListErr error
}

// NewFakeKeyVaultClient creates an empty fake Key Vault client.
func NewFakeKeyVaultClient() *FakeKeyVaultClient {
	return &FakeKeyVaultClient{
		Secrets:  make(map[string]string),
		Disabled: make(map[string]bool),
		Errors:   make(map[string]error),
	}
}

// AddSecretString adds an enabled secret.
func (f *FakeKeyVaultClient) AddSecretString(name, value string) {
	f.Secrets[name] = value
}

// AddDisabledSecret adds a secret that listing must skip.
func (f *FakeKeyVaultClient) AddDisabledSecret(name, value string) {
	f.Secrets[name] = value
	f.Disabled[name] = true
}

// AddError configures an error for a specific secret.
func (f *FakeKeyVaultClient) AddError(name string, err error) {
	f.Errors[name] = err
}

func keyVaultID(name string) *azsecrets.ID {
	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s", name))
	return &id
}

// GetSecret mocks the GetSecret operation.
func (f *FakeKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}
	value, exists := f.Secrets[name]
	if !exists {
		return azsecrets.GetSecretResponse{}, &azcore.ResponseError{
			StatusCode: 404,
			ErrorCode:  "SecretNotFound",
		}
	}
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    keyVaultID(name),
			Value: to.Ptr(value),
		},
	}, nil
}

// NewListSecretPropertiesPager mocks secret listing with a single page.
func (f *FakeKeyVaultClient) NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse] {
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesResponse]{
		More: func(azsecrets.ListSecretPropertiesResponse) bool {
			return false
		},
		Fetcher: func(ctx context.Context, _ *azsecrets.ListSecretPropertiesResponse) (azsecrets.ListSecretPropertiesResponse, error) {
			if f.ListErr != nil {
				return azsecrets.ListSecretPropertiesResponse{}, f.ListErr
			}

			var names []string
			for name := range f.Secrets {
				names = append(names, name)
			}
			sort.Strings(names)

			var props []*azsecrets.SecretProperties
			for _, name := range names {
				props = append(props, &azsecrets.SecretProperties{
					ID: keyVaultID(name),
					Attributes: &azsecrets.SecretAttributes{
						Enabled: to.Ptr(!f.Disabled[name]),
					},
				})
			}
			return azsecrets.ListSecretPropertiesResponse{
				SecretPropertiesListResult: azsecrets.SecretPropertiesListResult{
					Value: props,
				},
			}, nil
		},
	})
}

// FakeAppConfigClient is an in-memory Azure App Configuration store.
type FakeAppConfigClient struct {
	// Settings holds the store's settings in listing order
	Settings []azappconfig.Setting
	// ListErr, when set, fails the list pager
	ListErr error
}

// NewFakeAppConfigClient creates an empty fake App Configuration client.
func NewFakeAppConfigClient() *FakeAppConfigClient {
	return &FakeAppConfigClient{}
}

// AddSetting adds a setting with no label or content type.
func (f *FakeAppConfigClient) AddSetting(key, value string) {
	f.Settings = append(f.Settings, azappconfig.Setting{
		Key:   to.Ptr(key),
		Value: to.Ptr(value),
	})
}

// AddJSONSetting adds a setting with an application/json content type.
func (f *FakeAppConfigClient) AddJSONSetting(key, value string) {
	f.Settings = append(f.Settings, azappconfig.Setting{
		Key:         to.Ptr(key),
		Value:       to.Ptr(value),
		ContentType: to.Ptr("application/json; charset=utf-8"),
	})
}

// AddLabeledSetting adds a setting under a label.
func (f *FakeAppConfigClient) AddLabeledSetting(key, value, label string) {
	f.Settings = append(f.Settings, azappconfig.Setting{
		Key:   to.Ptr(key),
		Value: to.Ptr(value),
		Label: to.Ptr(label),
	})
}

// NewListSettingsPager mocks setting listing with a single page, honoring
// key and label filters the way the service does ("*" suffix wildcards).
func (f *FakeAppConfigClient) NewListSettingsPager(selector azappconfig.SettingSelector, options *azappconfig.ListSettingsOptions) *runtime.Pager[azappconfig.ListSettingsPageResponse] {
	return runtime.NewPager(runtime.PagingHandler[azappconfig.ListSettingsPageResponse]{
		More: func(azappconfig.ListSettingsPageResponse) bool {
			return false
		},
		Fetcher: func(ctx context.Context, _ *azappconfig.ListSettingsPageResponse) (azappconfig.ListSettingsPageResponse, error) {
			if f.ListErr != nil {
				return azappconfig.ListSettingsPageResponse{}, f.ListErr
			}

			var page azappconfig.ListSettingsPageResponse
			for _, setting := range f.Settings {
				if !matchFilter(selector.KeyFilter, setting.Key) {
					continue
				}
				if !matchLabel(selector.LabelFilter, setting.Label) {
					continue
				}
				page.Settings = append(page.Settings, setting)
			}
			return page, nil
		},
	})
}

func matchFilter(filter *string, key *string) bool {
	if filter == nil || *filter == "" || *filter == "*" {
		return true
	}
	if key == nil {
		return false
	}
	if prefix, ok := strings.CutSuffix(*filter, "*"); ok {
		return strings.HasPrefix(*key, prefix)
	}
	return *key == *filter
}

func matchLabel(filter *string, label *string) bool {
	if filter == nil || *filter == "" {
		// No filter selects settings with no label.
		return label == nil || *label == ""
	}
	return label != nil && *label == *filter
}
