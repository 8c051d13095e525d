package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseBootstrap(t *testing.T) {
	t.Parallel()

	m, err := parseBootstrap([]byte(`{
  "services": [
    [["com"], ["https://rdap.example/"]],
    [["de","io"], ["https://rdap.one/","https://rdap.two/"]],
    [["*.bank"], ["https://rdap.bank.example/"]],
    [["*.*"], ["https://rdap.bad.example/"]]
  ]
}`))
	if err != nil {
		t.Fatalf("parseBootstrap: %v", err)
	}

	if got := m["com"]; len(got) != 1 || got[0] != "https://rdap.example/" {
		t.Fatalf("com=%v", got)
	}
	if got := m["io"]; len(got) != 2 {
		t.Fatalf("io=%v", got)
	}
	// Wildcard prefix is stripped to the leaf label.
	if got := m["bank"]; len(got) != 1 {
		t.Fatalf("bank=%v", got)
	}
	// Still-wildcarded patterns are discarded.
	if _, ok := m["*"]; ok {
		t.Fatalf("non-leaf wildcard should be dropped: %v", m)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	want := map[string][]string{"com": {"https://rdap.example/"}}
	if err := writeSnapshot(path, &snapshot{Timestamp: time.Now().UnixMilli(), ServerMap: want}); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}

	got, err := readSnapshot(path)
	if err != nil {
		t.Fatalf("readSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got.ServerMap, want) {
		t.Fatalf("ServerMap=%v, want %v", got.ServerMap, want)
	}
}

func TestReadSnapshot_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readSnapshot(path); err == nil {
		t.Fatalf("expected error for corrupt cache")
	}
}

func TestInitialize_OverlayOnly(t *testing.T) {
	t.Parallel()

	// No cache, unreachable bootstrap: the overlay alone must yield a
	// usable configuration.
	r := New(Options{
		CachePath:      filepath.Join(t.TempDir(), "registry.json"),
		BootstrapURL:   "http://127.0.0.1:0/dns.json",
		StartupTimeout: 200 * time.Millisecond,
	})
	r.Initialize(context.Background())

	if got := r.ServersForTLD("com"); len(got) == 0 {
		t.Fatalf("overlay should provide servers for com")
	}
	server, pattern := r.WhoisForTLD("com")
	if server == "" || pattern == "" {
		t.Fatalf("overlay should provide whois config for com, got %q/%q", server, pattern)
	}

	configs := r.EnabledConfigs()
	if len(configs) != len(CriticalTLDs()) {
		t.Fatalf("enabled configs=%d, want %d", len(configs), len(CriticalTLDs()))
	}
	for _, c := range configs {
		if len(c.RDAPServers) == 0 && c.WhoisServer == "" {
			t.Fatalf("unqueryable TLD %q in enabled set", c.TLD)
		}
	}
}

func TestInitialize_StaleCacheTriggersRefresh(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"services": [][][]string{{{"com"}, {"https://rdap.fresh.example/"}}},
		})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "registry.json")
	old := time.Now().Add(-31 * 24 * time.Hour)
	err := writeSnapshot(path, &snapshot{
		Timestamp: old.UnixMilli(),
		ServerMap: map[string][]string{"com": {"https://rdap.stale.example/"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	r := New(Options{CachePath: path, BootstrapURL: srv.URL})
	r.Initialize(context.Background())

	if hits.Load() == 0 {
		t.Fatalf("stale cache should trigger a startup refresh")
	}
	if got := r.ServersForTLD("com"); len(got) != 1 || got[0] != "https://rdap.fresh.example/" {
		t.Fatalf("com servers=%v, want refreshed list", got)
	}
}

func TestInitialize_FreshCacheSkipsRefresh(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "registry.json")
	err := writeSnapshot(path, &snapshot{
		Timestamp: time.Now().UnixMilli(),
		ServerMap: map[string][]string{"com": {"https://rdap.cached.example/"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	r := New(Options{CachePath: path, BootstrapURL: srv.URL})
	r.Initialize(context.Background())

	if hits.Load() != 0 {
		t.Fatalf("fresh cache should not hit the bootstrap source")
	}
	if got := r.ServersForTLD("com"); len(got) != 1 || got[0] != "https://rdap.cached.example/" {
		t.Fatalf("com servers=%v, want cached list", got)
	}
}

func TestRefresh_FailureKeepsState(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(Options{BootstrapURL: srv.URL})
	r.Initialize(context.Background())
	before := r.EnabledConfigs()

	if ok := r.Refresh(context.Background(), false); ok {
		t.Fatalf("refresh against failing source should report failure")
	}
	if after := r.EnabledConfigs(); !reflect.DeepEqual(before, after) {
		t.Fatalf("failed refresh must leave state untouched")
	}
}

func TestRefresh_ReappliesOverlay(t *testing.T) {
	t.Parallel()

	// Bootstrap drops "com" entirely; the overlay must restore it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"services": [][][]string{{{"dev"}, {"https://rdap.dev.example/"}}},
		})
	}))
	defer srv.Close()

	r := New(Options{CachePath: filepath.Join(t.TempDir(), "registry.json"), BootstrapURL: srv.URL})
	if ok := r.Refresh(context.Background(), false); !ok {
		t.Fatalf("refresh failed")
	}
	if got := r.ServersForTLD("com"); len(got) == 0 {
		t.Fatalf("overlay not re-applied after refresh")
	}
	// Bootstrap data wins where present.
	if got := r.ServersForTLD("dev"); len(got) != 1 || got[0] != "https://rdap.dev.example/" {
		t.Fatalf("dev servers=%v", got)
	}
}

func TestEnabledConfigs_Idempotent(t *testing.T) {
	t.Parallel()

	r := New(Options{BootstrapURL: "http://127.0.0.1:0/", StartupTimeout: 100 * time.Millisecond})
	r.Initialize(context.Background())

	a := r.EnabledConfigs()
	b := r.EnabledConfigs()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("EnabledConfigs not idempotent")
	}
}

func TestRecordRDAPOutcome_TriggersRefresh(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"services": [][][]string{}})
	}))
	defer srv.Close()

	r := New(Options{BootstrapURL: srv.URL})
	// lastRefresh stays zero, so the 24h gap condition holds.
	for i := 0; i < 8; i++ {
		r.RecordRDAPOutcome(true)
	}
	for i := 0; i < 5; i++ {
		r.RecordRDAPOutcome(false)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hits.Load() == 0 {
		t.Fatalf("error rate above threshold should trigger a refresh")
	}
}

func TestRecordRDAPOutcome_BelowThreshold(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	r := New(Options{BootstrapURL: srv.URL})
	for i := 0; i < 20; i++ {
		r.RecordRDAPOutcome(true)
	}
	r.RecordRDAPOutcome(false)

	time.Sleep(50 * time.Millisecond)
	if hits.Load() != 0 {
		t.Fatalf("low error rate must not trigger a refresh")
	}
}
