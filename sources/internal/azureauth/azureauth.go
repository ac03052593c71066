// Package azureauth builds the Azure credential shared by the Key Vault and
// App Configuration sources.
package azureauth

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Options selects the Azure authentication method. The zero value uses the
// default credential chain (environment, managed identity, Azure CLI).
type Options struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	UseManagedIdentity bool
	// UserAssignedID selects a user-assigned managed identity by client ID.
	UserAssignedID string
}

// Credential builds a token credential from the options.
func Credential(opts Options) (azcore.TokenCredential, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case opts.UseManagedIdentity:
		if opts.UserAssignedID != "" {
			cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
				ID: azidentity.ClientID(opts.UserAssignedID),
			})
		} else {
			cred, err = azidentity.NewManagedIdentityCredential(nil)
		}
	case opts.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(opts.TenantID, opts.ClientID, opts.ClientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return cred, nil
}
