package definition

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fkerrors "github.com/saruyev/flexkit/internal/errors"
)

const sampleYAML = `
version: 1
sources:
  - type: aws.parameterstore
    path: /myapp/
    region: eu-west-1
    optional: true
    reload_interval: 5m
    process_json: true
    json_filters:
      - database
  - type: azure.keyvault
    vault_url: https://my-vault.vault.azure.net/
    tenant_id: 72f988bf-86f1-41af-91ab-2d7cd011db47
    client_id: 11111111-2222-3333-4444-555555555555
    client_secret: not-a-real-secret
    names:
      - database--password
`

func TestParse(t *testing.T) {
	t.Parallel()

	def, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 1, def.Version)
	require.Len(t, def.Sources, 2)

	params := def.Sources[0]
	assert.Equal(t, "aws.parameterstore", params.Type)
	assert.Equal(t, "/myapp/", params.String("path"))
	assert.Equal(t, "eu-west-1", params.String("region"))
	assert.True(t, params.Optional)
	assert.True(t, params.ProcessJSON)
	assert.Equal(t, []string{"database"}, params.JSONFilters)

	interval, err := params.ReloadDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)

	vault := def.Sources[1]
	assert.Equal(t, "azure.keyvault", vault.Type)
	assert.Equal(t, "https://my-vault.vault.azure.net/", vault.String("vault_url"))
	assert.Equal(t, []string{"database--password"}, vault.StringSlice("names"))
}

func TestParseRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing version", yaml: "sources:\n  - type: aws.parameterstore\n"},
		{name: "unsupported version", yaml: "version: 2\nsources:\n  - type: aws.parameterstore\n"},
		{name: "no sources", yaml: "version: 1\nsources: []\n"},
		{name: "source without type", yaml: "version: 1\nsources:\n  - path: /x/\n"},
		{name: "not yaml", yaml: "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			var cfgErr fkerrors.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestParseRejectsBadReloadInterval(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("version: 1\nsources:\n  - type: aws.parameterstore\n    reload_interval: soon\n"))
	require.Error(t, err)
	var cfgErr fkerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "reload_interval", cfgErr.Field)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	var cfgErr fkerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "path", cfgErr.Field)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flexkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, def.Sources, 2)
}

func TestRegistryBuildSources(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	assert.Equal(t, []string{
		"aws.parameterstore",
		"aws.secretsmanager",
		"azure.appconfig",
		"azure.keyvault",
	}, registry.SupportedTypes())

	def, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	sources, err := registry.BuildSources(def)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "aws.parameterstore", sources[0].Name())
	assert.True(t, sources[0].Options().Optional)
	assert.Equal(t, 5*time.Minute, sources[0].Options().ReloadInterval)
	assert.Equal(t, "azure.keyvault", sources[1].Name())
}

func TestRegistryUnknownType(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().CreateSource(SourceDefinition{Type: "consul"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")
}
