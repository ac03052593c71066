package flexkit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flexkit "github.com/saruyev/flexkit"
	fkerrors "github.com/saruyev/flexkit/internal/errors"
)

// stubSource is an in-memory Source for builder tests.
type stubSource struct {
	name    string
	options flexkit.SourceOptions

	mu    sync.Mutex
	data  map[string]string
	err   error
	loads int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Options() flexkit.SourceOptions { return s.options }

func (s *stubSource) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out, nil
}

func (s *stubSource) set(data map[string]string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.err = err
}

func (s *stubSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func TestBuildMergesLastWins(t *testing.T) {
	t.Parallel()

	base := &stubSource{name: "base", data: map[string]string{
		"app:name": "flexkit",
		"db:host":  "localhost",
	}}
	override := &stubSource{name: "override", data: map[string]string{
		"db:host": "db.prod.internal",
		"db:port": "5432",
	}}

	cfg, err := flexkit.NewBuilder().Add(base).Add(override).Build(context.Background())
	require.NoError(t, err)
	defer cfg.Close()

	assert.Equal(t, "flexkit", cfg.GetString("app:name", ""))
	assert.Equal(t, "db.prod.internal", cfg.GetString("db:host", ""))
	assert.Equal(t, 5432, cfg.GetInt("db:port", 0))
	assert.Equal(t, []string{"app:name", "db:host", "db:port"}, cfg.Keys())
}

func TestBuildRequiredSourceFailureAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("AccessDenied: no ssm:GetParametersByPath")
	failing := &stubSource{name: "aws.parameterstore", err: boom}

	cfg, err := flexkit.NewBuilder().Add(failing).Build(context.Background())
	require.Error(t, err)
	assert.Nil(t, cfg)

	require.ErrorIs(t, err, boom)
	var userErr fkerrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, err.Error(), "building configuration")
}

func TestBuildOptionalSourceFailureContinues(t *testing.T) {
	t.Parallel()

	var callbackErr error
	failing := &stubSource{
		name: "azure.keyvault",
		err:  errors.New("403 Forbidden"),
		options: flexkit.SourceOptions{
			Optional:    true,
			OnLoadError: func(err error) { callbackErr = err },
		},
	}
	working := &stubSource{name: "base", data: map[string]string{"a": "1"}}

	cfg, err := flexkit.NewBuilder().Add(failing).Add(working).Build(context.Background())
	require.NoError(t, err)
	defer cfg.Close()

	assert.Equal(t, "1", cfg.GetString("a", ""))
	require.Error(t, callbackErr)
	assert.Contains(t, callbackErr.Error(), "azure.keyvault")
}

func TestTypedGetters(t *testing.T) {
	t.Parallel()

	src := &stubSource{name: "base", data: map[string]string{
		"port":    "8080",
		"debug":   "true",
		"timeout": "2m30s",
		"garbage": "not-a-number",
	}}

	cfg, err := flexkit.NewBuilder().Add(src).Build(context.Background())
	require.NoError(t, err)
	defer cfg.Close()

	assert.Equal(t, 8080, cfg.GetInt("port", 0))
	assert.True(t, cfg.GetBool("debug", false))
	assert.Equal(t, 150*time.Second, cfg.GetDuration("timeout", 0))

	assert.Equal(t, 42, cfg.GetInt("garbage", 42))
	assert.Equal(t, 7, cfg.GetInt("missing", 7))
	assert.False(t, cfg.GetBool("missing", false))
}

func TestSectionNavigation(t *testing.T) {
	t.Parallel()

	src := &stubSource{name: "base", data: map[string]string{
		"app:db:host":     "localhost",
		"app:db:port":     "5432",
		"app:cache:host":  "redis",
		"app:cache:ttl":   "30s",
		"unrelated:value": "x",
	}}

	cfg, err := flexkit.NewBuilder().Add(src).Build(context.Background())
	require.NoError(t, err)
	defer cfg.Close()

	app := cfg.Section("app")
	assert.Equal(t, []string{"cache", "db"}, app.Keys())

	db := app.Section("db")
	assert.Equal(t, "localhost", db.GetString("host", ""))
	assert.Equal(t, 5432, db.GetInt("port", 0))

	_, ok := db.Get("missing")
	assert.False(t, ok)
}

func TestReloadPicksUpChanges(t *testing.T) {
	t.Parallel()

	src := &stubSource{
		name:    "reloading",
		data:    map[string]string{"flag": "before"},
		options: flexkit.SourceOptions{ReloadInterval: 10 * time.Millisecond},
	}

	cfg, err := flexkit.NewBuilder().Add(src).Build(context.Background())
	require.NoError(t, err)
	defer cfg.Close()

	assert.Equal(t, "before", cfg.GetString("flag", ""))

	src.set(map[string]string{"flag": "after"}, nil)

	require.Eventually(t, func() bool {
		return cfg.GetString("flag", "") == "after"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReloadFailureKeepsPriorData(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var callbackErrs []error

	src := &stubSource{
		name: "reloading",
		data: map[string]string{"flag": "stable"},
		options: flexkit.SourceOptions{
			ReloadInterval: 10 * time.Millisecond,
			OnLoadError: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				callbackErrs = append(callbackErrs, err)
			},
		},
	}

	cfg, err := flexkit.NewBuilder().Add(src).Build(context.Background())
	require.NoError(t, err)
	defer cfg.Close()

	src.set(nil, errors.New("ThrottlingException"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(callbackErrs) > 0
	}, 2*time.Second, 5*time.Millisecond)

	// Prior snapshot survives failed reloads.
	assert.Equal(t, "stable", cfg.GetString("flag", ""))
}

func TestCloseStopsReloads(t *testing.T) {
	t.Parallel()

	src := &stubSource{
		name:    "reloading",
		data:    map[string]string{"a": "1"},
		options: flexkit.SourceOptions{ReloadInterval: 5 * time.Millisecond},
	}

	cfg, err := flexkit.NewBuilder().Add(src).Build(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return src.loadCount() > 1
	}, 2*time.Second, time.Millisecond)

	cfg.Close()
	after := src.loadCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, src.loadCount())

	// Close is idempotent.
	cfg.Close()
}

func TestShouldProcessJSON(t *testing.T) {
	t.Parallel()

	opts := flexkit.SourceOptions{ProcessJSON: true, JSONFilters: []string{"/app/json/"}}
	assert.True(t, opts.ShouldProcessJSON("/app/json/settings"))
	assert.False(t, opts.ShouldProcessJSON("/app/plain/value"))

	all := flexkit.SourceOptions{ProcessJSON: true}
	assert.True(t, all.ShouldProcessJSON("anything"))

	off := flexkit.SourceOptions{}
	assert.False(t, off.ShouldProcessJSON("anything"))
}
