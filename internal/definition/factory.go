package definition

import (
	"fmt"
	"sort"

	flexkit "github.com/saruyev/flexkit"
	"github.com/saruyev/flexkit/sources/awsparams"
	"github.com/saruyev/flexkit/sources/awssecrets"
	"github.com/saruyev/flexkit/sources/azureappconfig"
	"github.com/saruyev/flexkit/sources/azurekeyvault"
)

// SourceFactory creates a source instance from its definition.
type SourceFactory func(def SourceDefinition) (flexkit.Source, error)

// Registry manages source creation and registration.
type Registry struct {
	factories map[string]SourceFactory
}

// NewRegistry creates a registry with the built-in source types.
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]SourceFactory),
	}

	registry.RegisterFactory("aws.parameterstore", newParameterStoreSource)
	registry.RegisterFactory("aws.secretsmanager", newSecretsManagerSource)
	registry.RegisterFactory("azure.keyvault", newKeyVaultSource)
	registry.RegisterFactory("azure.appconfig", newAppConfigSource)

	return registry
}

// RegisterFactory registers a source factory for a given type.
func (r *Registry) RegisterFactory(sourceType string, factory SourceFactory) {
	r.factories[sourceType] = factory
}

// SupportedTypes returns the registered source types, sorted.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for sourceType := range r.factories {
		types = append(types, sourceType)
	}
	sort.Strings(types)
	return types
}

// CreateSource creates one source from its definition.
func (r *Registry) CreateSource(def SourceDefinition) (flexkit.Source, error) {
	factory, exists := r.factories[def.Type]
	if !exists {
		return nil, fmt.Errorf("unknown source type: %s", def.Type)
	}
	return factory(def)
}

// BuildSources creates every source in definition order.
func (r *Registry) BuildSources(def *Definition) ([]flexkit.Source, error) {
	sources := make([]flexkit.Source, 0, len(def.Sources))
	for _, srcDef := range def.Sources {
		src, err := r.CreateSource(srcDef)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// sourceOptions maps the shared definition fields onto source options.
func sourceOptions(def SourceDefinition) (flexkit.SourceOptions, error) {
	interval, err := def.ReloadDuration()
	if err != nil {
		return flexkit.SourceOptions{}, err
	}
	return flexkit.SourceOptions{
		Optional:       def.Optional,
		ReloadInterval: interval,
		ProcessJSON:    def.ProcessJSON,
		JSONFilters:    def.JSONFilters,
	}, nil
}

func newParameterStoreSource(def SourceDefinition) (flexkit.Source, error) {
	opts, err := sourceOptions(def)
	if err != nil {
		return nil, err
	}
	return awsparams.New(awsparams.Config{
		Path:           def.String("path"),
		Region:         def.String("region"),
		Profile:        def.String("profile"),
		AssumeRole:     def.String("assume_role"),
		SkipDecryption: def.Bool("skip_decryption"),
		Options:        opts,
	})
}

func newSecretsManagerSource(def SourceDefinition) (flexkit.Source, error) {
	opts, err := sourceOptions(def)
	if err != nil {
		return nil, err
	}
	return awssecrets.New(awssecrets.Config{
		Names:      def.StringSlice("names"),
		NamePrefix: def.String("name_prefix"),
		Region:     def.String("region"),
		Profile:    def.String("profile"),
		AssumeRole: def.String("assume_role"),
		Endpoint:   def.String("endpoint"),
		Options:    opts,
	})
}

func newKeyVaultSource(def SourceDefinition) (flexkit.Source, error) {
	opts, err := sourceOptions(def)
	if err != nil {
		return nil, err
	}
	return azurekeyvault.New(azurekeyvault.Config{
		VaultURL:           def.String("vault_url"),
		Names:              def.StringSlice("names"),
		TenantID:           def.String("tenant_id"),
		ClientID:           def.String("client_id"),
		ClientSecret:       def.String("client_secret"),
		UseManagedIdentity: def.Bool("use_managed_identity"),
		UserAssignedID:     def.String("user_assigned_id"),
		Options:            opts,
	})
}

func newAppConfigSource(def SourceDefinition) (flexkit.Source, error) {
	opts, err := sourceOptions(def)
	if err != nil {
		return nil, err
	}
	return azureappconfig.New(azureappconfig.Config{
		Endpoint:           def.String("endpoint"),
		ConnectionString:   def.String("connection_string"),
		KeyFilter:          def.String("key_filter"),
		LabelFilter:        def.String("label_filter"),
		TrimPrefix:         def.String("trim_prefix"),
		TenantID:           def.String("tenant_id"),
		ClientID:           def.String("client_id"),
		ClientSecret:       def.String("client_secret"),
		UseManagedIdentity: def.Bool("use_managed_identity"),
		UserAssignedID:     def.String("user_assigned_id"),
		Options:            opts,
	})
}
