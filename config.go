package flexkit

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/internal/flatten"
	"github.com/saruyev/flexkit/internal/metrics"
)

// provider owns the loaded table of one source. The table is an immutable
// snapshot replaced wholesale on every successful load, so concurrent
// readers see either the previous or the next table, never a mix.
type provider struct {
	source Source
	data   atomic.Pointer[map[string]string]
}

func newProvider(source Source) *provider {
	p := &provider{source: source}
	empty := map[string]string{}
	p.data.Store(&empty)
	return p
}

func (p *provider) load(ctx context.Context) error {
	start := time.Now()
	data, err := p.source.Load(ctx)
	metrics.RecordLoad(p.source.Name(), err, time.Since(start))
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]string{}
	}
	p.data.Store(&data)
	return nil
}

func (p *provider) snapshot() map[string]string {
	return *p.data.Load()
}

// FlexConfig is the merged configuration produced by Builder.Build. All
// read methods are safe for concurrent use with background reloads.
type FlexConfig struct {
	providers []*provider
	merged    atomic.Pointer[map[string]string]

	logger    interface{ Warn(string, ...interface{}) }
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// remerge rebuilds the merged snapshot from every provider table in append
// order and swaps it in atomically.
func (c *FlexConfig) remerge() {
	merged := make(map[string]string)
	for _, p := range c.providers {
		for k, v := range p.snapshot() {
			merged[k] = v
		}
	}
	c.merged.Store(&merged)
}

func (c *FlexConfig) startReloaders() {
	for _, p := range c.providers {
		interval := p.source.Options().ReloadInterval
		if interval <= 0 {
			continue
		}
		c.wg.Add(1)
		go c.reloadLoop(p, interval)
	}
}

func (c *FlexConfig) reloadLoop(p *provider, interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			err := p.load(context.Background())
			metrics.RecordReload(p.source.Name(), err)
			if err != nil {
				c.logger.Warn("reload of %s failed: %v", p.source.Name(), err)
				if cb := p.source.Options().OnLoadError; cb != nil {
					cb(fkerrors.SourceError(p.source.Name(), "reload", err))
				}
				continue
			}
			c.remerge()
		}
	}
}

// Close stops all reload goroutines. Safe to call multiple times.
func (c *FlexConfig) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()
}

func (c *FlexConfig) table() map[string]string {
	if t := c.merged.Load(); t != nil {
		return *t
	}
	return nil
}

// Get returns the value for a flat colon-delimited key.
func (c *FlexConfig) Get(key string) (string, bool) {
	v, ok := c.table()[key]
	return v, ok
}

// GetString returns the value for key, or def when absent.
func (c *FlexConfig) GetString(key, def string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// GetInt returns the value for key parsed as an integer, or def when absent
// or unparseable.
func (c *FlexConfig) GetInt(key string, def int) int {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// GetBool returns the value for key parsed as a boolean, or def when absent
// or unparseable.
func (c *FlexConfig) GetBool(key string, def bool) bool {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// GetDuration returns the value for key parsed as a Go duration, or def
// when absent or unparseable.
func (c *FlexConfig) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// Keys returns every flat key in the merged table, sorted.
func (c *FlexConfig) Keys() []string {
	table := c.table()
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Section returns a view rooted at prefix. Lookups on the section prepend
// "prefix:" to every key, replacing dynamic-style hierarchical navigation
// with an explicit path API.
func (c *FlexConfig) Section(prefix string) *Section {
	return &Section{cfg: c, prefix: prefix}
}

// Section is a prefix-rooted view of a FlexConfig.
type Section struct {
	cfg    *FlexConfig
	prefix string
}

func (s *Section) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + flatten.Delimiter + k
}

// Get returns the value for a key relative to the section root.
func (s *Section) Get(key string) (string, bool) {
	return s.cfg.Get(s.key(key))
}

// GetString returns the value for a relative key, or def when absent.
func (s *Section) GetString(key, def string) string {
	return s.cfg.GetString(s.key(key), def)
}

// GetInt returns the relative key parsed as an integer, or def.
func (s *Section) GetInt(key string, def int) int {
	return s.cfg.GetInt(s.key(key), def)
}

// GetBool returns the relative key parsed as a boolean, or def.
func (s *Section) GetBool(key string, def bool) bool {
	return s.cfg.GetBool(s.key(key), def)
}

// Section returns a child section.
func (s *Section) Section(prefix string) *Section {
	return &Section{cfg: s.cfg, prefix: s.key(prefix)}
}

// Keys returns the distinct immediate child segments under the section
// root, sorted.
func (s *Section) Keys() []string {
	prefix := ""
	if s.prefix != "" {
		prefix = s.prefix + flatten.Delimiter
	}

	seen := make(map[string]struct{})
	for key := range s.cfg.table() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if rest == "" {
			continue
		}
		segment, _, _ := strings.Cut(rest, flatten.Delimiter)
		seen[segment] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
