package registry

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TLDConfig is the queryable configuration for one TLD. Entries come
// from the IANA bootstrap (RDAP servers only) merged with the critical
// overlay (RDAP plus WHOIS server and not-found pattern).
type TLDConfig struct {
	TLD              string   `json:"tld" yaml:"tld"`
	RDAPServers      []string `json:"rdapServers" yaml:"rdapServers"`
	WhoisServer      string   `json:"whoisServer,omitempty" yaml:"whoisServer"`
	AvailablePattern string   `json:"availablePattern,omitempty" yaml:"availablePattern"`
	DisplayName      string   `json:"displayName" yaml:"displayName"`
	Enabled          bool     `json:"enabled" yaml:"enabled"`
}

type Options struct {
	CachePath    string
	BootstrapURL string

	// StartupTimeout bounds the synchronous refresh during Initialize
	// so a slow bootstrap source cannot stall process start.
	StartupTimeout time.Duration
	RefreshTimeout time.Duration

	// StaleAfter is the cache age that forces a refresh at startup.
	StaleAfter      time.Duration
	RefreshInterval time.Duration

	// Overlay defaults to CriticalTLDs().
	Overlay []TLDConfig

	Logger *slog.Logger
}

// Registry owns the TLD -> RDAP server mapping and its on-disk cache.
// Construct with New, call Initialize once, then share freely; all
// methods are safe for concurrent use.
type Registry struct {
	opts Options
	http *http.Client
	log  *slog.Logger

	mu          sync.RWMutex
	serverMap   map[string][]string
	overlay     map[string]TLDConfig
	configs     []TLDConfig
	lastRefresh time.Time

	refreshing atomic.Bool

	statMu     sync.Mutex
	rdapTotal  int
	rdapErrors int
}

// Error-rate trigger: more than 30% failures over more than 10 RDAP
// attempts, at most once per 24h.
const (
	errorRateMinSamples = 10
	errorRatePercent    = 30
	errorRateMinGap     = 24 * time.Hour
)

func New(opts Options) *Registry {
	if opts.BootstrapURL == "" {
		opts.BootstrapURL = DefaultBootstrapURL
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 5 * time.Second
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * 24 * time.Hour
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 7 * 24 * time.Hour
	}
	if opts.Overlay == nil {
		opts.Overlay = CriticalTLDs()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	overlay := make(map[string]TLDConfig, len(opts.Overlay))
	for _, c := range opts.Overlay {
		overlay[c.TLD] = c
	}

	return &Registry{
		opts:      opts,
		http:      &http.Client{},
		log:       opts.Logger,
		serverMap: make(map[string][]string),
		overlay:   overlay,
	}
}

// Initialize loads the persisted cache, applies the critical overlay
// and refreshes from the bootstrap source when the cache is missing or
// stale. It never fails: the overlay guarantees a usable baseline even
// when disk and network are both unavailable.
func (r *Registry) Initialize(ctx context.Context) {
	loaded := false
	if snap, err := readSnapshot(r.opts.CachePath); err == nil {
		r.mu.Lock()
		r.serverMap = snap.ServerMap
		r.lastRefresh = snap.time()
		r.mu.Unlock()
		loaded = true
		r.log.Debug("registry cache loaded", "tlds", len(snap.ServerMap), "age", time.Since(snap.time()).Round(time.Minute))
	} else {
		r.log.Debug("registry cache unavailable", "err", err)
	}

	r.mu.Lock()
	r.applyOverlayLocked()
	r.rebuildConfigsLocked()
	stale := !loaded || time.Since(r.lastRefresh) > r.opts.StaleAfter
	r.mu.Unlock()

	if stale {
		if !r.Refresh(ctx, true) {
			r.log.Warn("startup refresh failed, using overlay/cached data")
		}
	}
}

// Refresh fetches the bootstrap registry and replaces the server map.
// Concurrent calls collapse to one; the loser returns false without
// waiting. Failure leaves prior state untouched.
func (r *Registry) Refresh(ctx context.Context, startup bool) bool {
	if !r.refreshing.CompareAndSwap(false, true) {
		return false
	}
	defer r.refreshing.Store(false)

	timeout := r.opts.RefreshTimeout
	if startup {
		timeout = r.opts.StartupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fetched, err := fetchBootstrap(ctx, r.http, r.opts.BootstrapURL)
	if err != nil {
		r.log.Warn("bootstrap refresh failed", "url", r.opts.BootstrapURL, "err", err)
		return false
	}

	now := time.Now()
	r.mu.Lock()
	r.serverMap = fetched
	r.applyOverlayLocked()
	r.lastRefresh = now
	r.rebuildConfigsLocked()
	snap := &snapshot{Timestamp: now.UnixMilli(), ServerMap: r.copyServerMapLocked()}
	r.mu.Unlock()

	if err := writeSnapshot(r.opts.CachePath, snap); err != nil {
		r.log.Warn("registry cache write failed", "path", r.opts.CachePath, "err", err)
	}
	r.log.Info("registry refreshed", "tlds", len(fetched))
	return true
}

// StartPeriodicRefresh runs Refresh on a ticker until ctx is canceled.
func (r *Registry) StartPeriodicRefresh(ctx context.Context) {
	go func() {
		t := time.NewTicker(r.opts.RefreshInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Refresh(ctx, false)
			}
		}
	}()
}

// RecordRDAPOutcome feeds resolver health back into registry
// freshness: a sustained RDAP error rate suggests the server list has
// rotted, so an out-of-band refresh is kicked off.
func (r *Registry) RecordRDAPOutcome(success bool) {
	r.statMu.Lock()
	r.rdapTotal++
	if !success {
		r.rdapErrors++
	}
	trigger := r.rdapTotal > errorRateMinSamples &&
		r.rdapErrors*100 > r.rdapTotal*errorRatePercent &&
		time.Since(r.LastRefresh()) >= errorRateMinGap
	if trigger {
		// Fresh sample window for the next decision.
		r.rdapTotal, r.rdapErrors = 0, 0
	}
	r.statMu.Unlock()

	if trigger {
		r.log.Info("rdap error rate high, scheduling refresh")
		go r.Refresh(context.Background(), false)
	}
}

// ServersForTLD returns the RDAP base URLs for a TLD in preference
// order, or nil when none are known.
func (r *Registry) ServersForTLD(tld string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	servers := r.serverMap[tld]
	if len(servers) == 0 {
		return nil
	}
	return append([]string(nil), servers...)
}

// WhoisForTLD returns the WHOIS fallback server and its "available"
// pattern. Both empty when the TLD has no WHOIS configuration.
func (r *Registry) WhoisForTLD(tld string) (server, pattern string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.overlay[tld]
	if !ok {
		return "", ""
	}
	return c.WhoisServer, c.AvailablePattern
}

// EnabledConfigs returns the current enabled TLD view, sorted by TLD.
// The slice is a copy; repeated calls without a refresh in between
// return identical lists.
func (r *Registry) EnabledConfigs() []TLDConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TLDConfig(nil), r.configs...)
}

// LastRefresh reports the instant of the last successful refresh (or
// the cache timestamp when running on cached data).
func (r *Registry) LastRefresh() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRefresh
}

// applyOverlayLocked inserts overlay servers for any critical TLD the
// current map is missing or has emptied out.
func (r *Registry) applyOverlayLocked() {
	for tld, c := range r.overlay {
		if len(r.serverMap[tld]) == 0 && len(c.RDAPServers) > 0 {
			r.serverMap[tld] = append([]string(nil), c.RDAPServers...)
		}
	}
}

func (r *Registry) rebuildConfigsLocked() {
	configs := make([]TLDConfig, 0, len(r.serverMap))
	for tld, servers := range r.serverMap {
		c := TLDConfig{
			TLD:         tld,
			RDAPServers: append([]string(nil), servers...),
			DisplayName: "." + tld,
		}
		if o, ok := r.overlay[tld]; ok {
			c.WhoisServer = o.WhoisServer
			c.AvailablePattern = o.AvailablePattern
			if o.DisplayName != "" {
				c.DisplayName = o.DisplayName
			}
		}
		// A TLD with neither RDAP nor WHOIS servers cannot be queried.
		c.Enabled = len(c.RDAPServers) > 0 || c.WhoisServer != ""
		if !c.Enabled {
			continue
		}
		configs = append(configs, c)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].TLD < configs[j].TLD })
	r.configs = configs
}

func (r *Registry) copyServerMapLocked() map[string][]string {
	m := make(map[string][]string, len(r.serverMap))
	for tld, servers := range r.serverMap {
		m[tld] = append([]string(nil), servers...)
	}
	return m
}
