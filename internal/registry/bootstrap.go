package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBootstrapURL is the IANA RDAP bootstrap registry for DNS.
const DefaultBootstrapURL = "https://data.iana.org/rdap/dns.json"

const maxBootstrapBytes = 10 << 20

type bootstrapJSON struct {
	Services [][][]string `json:"services"`
}

// snapshot is the on-disk cache written after each successful refresh.
// Timestamp is epoch milliseconds.
type snapshot struct {
	Timestamp int64               `json:"timestamp"`
	ServerMap map[string][]string `json:"serverMap"`
}

func (s *snapshot) time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

func fetchBootstrap(ctx context.Context, httpc *http.Client, srcURL string) (map[string][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bootstrap http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBootstrapBytes))
	if err != nil {
		return nil, err
	}
	return parseBootstrap(body)
}

func parseBootstrap(b []byte) (map[string][]string, error) {
	var raw bootstrapJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("bootstrap json: %w", err)
	}

	m := make(map[string][]string, 2048)
	for _, svc := range raw.Services {
		if len(svc) != 2 {
			continue
		}
		patterns, urls := svc[0], svc[1]
		servers := normalizeServers(urls)
		if len(servers) == 0 {
			continue
		}
		for _, p := range patterns {
			tld := strings.ToLower(strings.TrimSpace(p))
			// Wildcard patterns map to their leaf label; anything still
			// wildcarded after stripping is not a concrete TLD.
			tld = strings.TrimPrefix(tld, "*.")
			if tld == "" || strings.Contains(tld, "*") {
				continue
			}
			m[tld] = append([]string(nil), servers...)
		}
	}
	return m, nil
}

func normalizeServers(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := map[string]struct{}{}
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, err := url.Parse(u); err != nil {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func readSnapshot(path string) (*snapshot, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("cache json: %w", err)
	}
	if s.Timestamp <= 0 || len(s.ServerMap) == 0 {
		return nil, fmt.Errorf("cache incomplete")
	}
	return &s, nil
}

// writeSnapshot persists the cache atomically so a crash mid-write
// never leaves a truncated file behind.
func writeSnapshot(path string, s *snapshot) error {
	if path == "" {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "registry-*.json")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(b)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmp.Name())
		if werr != nil {
			return werr
		}
		return cerr
	}
	return os.Rename(tmp.Name(), path)
}
