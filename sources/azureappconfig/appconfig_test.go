package azureappconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/tests/fakes"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing endpoint", cfg: Config{}},
		{name: "invalid endpoint", cfg: Config{Endpoint: "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg, WithClient(fakes.NewFakeAppConfigClient()))
			require.Error(t, err)
			var cfgErr fkerrors.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadFlatKeys(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAppConfigClient()
	client.AddSetting("myapp/database/host", "db.example.com")
	client.AddSetting("myapp/database/port", "5432")

	src, err := New(Config{Endpoint: "https://test.azconfig.io"}, WithClient(client))
	require.NoError(t, err)
	assert.Equal(t, SourceName, src.Name())

	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"myapp:database:host": "db.example.com",
		"myapp:database:port": "5432",
	}, data)
}

func TestLoadKeyFilter(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAppConfigClient()
	client.AddSetting("myapp/keep", "yes")
	client.AddSetting("other/skip", "no")

	src, err := New(Config{
		Endpoint:   "https://test.azconfig.io",
		KeyFilter:  "myapp/*",
		TrimPrefix: "myapp/",
	}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"keep": "yes"}, data)
}

func TestLoadLabelFilter(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAppConfigClient()
	client.AddLabeledSetting("timeout", "30", "production")
	client.AddLabeledSetting("timeout", "5", "staging")
	client.AddSetting("unlabeled", "x")

	src, err := New(Config{
		Endpoint:    "https://test.azconfig.io",
		LabelFilter: "production",
	}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"timeout": "30"}, data)
}

func TestLoadNoLabelSelectsUnlabeled(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAppConfigClient()
	client.AddLabeledSetting("timeout", "30", "production")
	client.AddSetting("timeout", "10")

	src, err := New(Config{Endpoint: "https://test.azconfig.io"}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"timeout": "10"}, data)
}

func TestLoadFlattensJSONContentType(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAppConfigClient()
	client.AddJSONSetting("database", `{"host":"db.example.com","ssl":true}`)
	// No JSON content type and no ProcessJSON: stays verbatim.
	client.AddSetting("raw", `{"keep":"verbatim"}`)

	src, err := New(Config{Endpoint: "https://test.azconfig.io"}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"database:host": "db.example.com",
		"database:ssl":  "true",
		"raw":           `{"keep":"verbatim"}`,
	}, data)
}

func TestLoadListError(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAppConfigClient()
	client.ListErr = assert.AnError

	src, err := New(Config{Endpoint: "https://test.azconfig.io"}, WithClient(client))
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	require.Error(t, err)

	var userErr fkerrors.UserError
	assert.ErrorAs(t, err, &userErr)
}
