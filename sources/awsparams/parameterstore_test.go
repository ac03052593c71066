package awsparams

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flexkit "github.com/saruyev/flexkit"
	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/tests/fakes"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing path", cfg: Config{}},
		{name: "relative path", cfg: Config{Path: "myapp/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg, WithClient(fakes.NewFakeSSMClient()))
			require.Error(t, err)
			var cfgErr fkerrors.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "path", cfgErr.Field)
		})
	}
}

func TestLoadFlatKeys(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.AddParameter("/myapp/database/host", "db.example.com")
	client.AddParameter("/myapp/database/port", "5432")
	client.AddParameter("/myapp/api-key", "s3cret")
	client.AddParameter("/otherapp/ignored", "nope")

	src, err := New(Config{Path: "/myapp/"}, WithClient(client))
	require.NoError(t, err)
	assert.Equal(t, SourceName, src.Name())

	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"database:host": "db.example.com",
		"database:port": "5432",
		"api-key":       "s3cret",
	}, data)
}

func TestLoadPaginates(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.PageSize = 1
	client.AddParameter("/app/a", "1")
	client.AddParameter("/app/b", "2")
	client.AddParameter("/app/c", "3")

	src, err := New(Config{Path: "/app/"}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, data, 3)
	assert.GreaterOrEqual(t, client.Calls, 3)
}

func TestLoadFlattensJSON(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.AddParameter("/app/database", `{"host":"db.example.com","port":5432,"ssl":true}`)
	client.AddParameter("/app/motd", "hello world")

	src, err := New(Config{
		Path:    "/app/",
		Options: flexkit.SourceOptions{ProcessJSON: true},
	}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"database:host": "db.example.com",
		"database:port": "5432",
		"database:ssl":  "true",
		"motd":          "hello world",
	}, data)
}

func TestLoadJSONFilters(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.AddParameter("/app/database", `{"host":"db"}`)
	client.AddParameter("/app/raw", `{"keep":"verbatim"}`)

	src, err := New(Config{
		Path: "/app/",
		Options: flexkit.SourceOptions{
			ProcessJSON: true,
			JSONFilters: []string{"database"},
		},
	}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "db", data["database:host"])
	assert.Equal(t, `{"keep":"verbatim"}`, data["raw"])
}

func TestLoadKeyProcessor(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.AddParameter("/app/Database/Host", "db")

	src, err := New(Config{
		Path: "/app/",
		Options: flexkit.SourceOptions{
			KeyProcessor: func(key string) string { return "prefix:" + key },
		},
	}, WithClient(client))
	require.NoError(t, err)

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "db", data["prefix:Database:Host"])
}

func TestLoadError(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.Err = errors.New("AccessDeniedException: not authorized")

	src, err := New(Config{Path: "/app/"}, WithClient(client))
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	require.Error(t, err)

	var userErr fkerrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Suggestion, "IAM permissions")
}
