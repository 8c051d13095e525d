package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/namepilot/namepilot/internal/keyword"
	"github.com/namepilot/namepilot/internal/rdap"
	"github.com/namepilot/namepilot/internal/whois"
)

type Method string

const (
	MethodRDAP          Method = "RDAP"
	MethodWHOIS         Method = "WHOIS"
	MethodWHOISFallback Method = "WHOIS (RDAP fallback)"
	MethodUnknown       Method = "Unknown"
)

var (
	ErrNoKeywords = errors.New("no keywords given")
	ErrNoTLDs     = errors.New("no TLDs given")
)

// RDAPChecker and WHOISChecker are the resolver surfaces the
// orchestrator needs; tests substitute instrumented fakes.
type RDAPChecker interface {
	CheckDomain(ctx context.Context, domain, tld string) rdap.Evidence
}

type WHOISChecker interface {
	CheckDomain(ctx context.Context, domain, server, pattern string) whois.Evidence
}

// TLDSource exposes the per-TLD WHOIS fallback configuration.
type TLDSource interface {
	WhoisForTLD(tld string) (server, pattern string)
}

// Result is the outcome of one candidate domain check. Immutable once
// returned. available=true implies Error empty and no lifecycle data.
type Result struct {
	Domain    string    `json:"domain"`
	TLD       string    `json:"tld"`
	Available bool      `json:"available"`
	CheckedAt time.Time `json:"checked_at"`
	Method    Method    `json:"method"`
	Error     string    `json:"error,omitempty"`

	RDAP             *rdap.Record `json:"rdap,omitempty"`
	RegistrationDate *time.Time   `json:"registration_date,omitempty"`
	ExpirationDate   *time.Time   `json:"expiration_date,omitempty"`
	LastChangedDate  *time.Time   `json:"last_changed_date,omitempty"`
	DomainAgeDays    *int         `json:"domain_age_days,omitempty"`
}

// Stats aggregates one CheckDomains call. Derived from the result
// set; never persisted.
type Stats struct {
	BatchID     string         `json:"batch_id"`
	Total       int            `json:"total"`
	Available   int            `json:"available"`
	Unavailable int            `json:"unavailable"`
	Errored     int            `json:"errored"`
	ByMethod    map[Method]int `json:"by_method"`
	ElapsedMs   int64          `json:"elapsed_ms"`
}

type Report struct {
	Results []Result `json:"results"`
	Stats   Stats    `json:"stats"`
}

type Options struct {
	// BatchSize bounds in-flight checks; BatchDelay paces batches so
	// neither this process nor the remote servers see burst load.
	BatchSize  int
	BatchDelay time.Duration
}

type Checker struct {
	rdap  RDAPChecker
	whois WHOISChecker
	tlds  TLDSource
	opts  Options
	now   func() time.Time
}

func NewChecker(rdapc RDAPChecker, whoisc WHOISChecker, tlds TLDSource, opts Options) *Checker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = 500 * time.Millisecond
	}
	return &Checker{rdap: rdapc, whois: whoisc, tlds: tlds, opts: opts, now: time.Now}
}

// CheckDomains expands keywords x TLDs into candidate domains and
// checks each one, RDAP first with WHOIS as fallback. Only input
// validation fails hard; every per-domain failure comes back as data.
func (c *Checker) CheckDomains(ctx context.Context, keywords, tlds []string) (Report, error) {
	if len(keywords) == 0 {
		return Report{}, ErrNoKeywords
	}
	if len(tlds) == 0 {
		return Report{}, ErrNoTLDs
	}
	start := time.Now()

	labels := keyword.NormalizeList(keywords)
	zones := keyword.NormalizeTLDs(tlds)

	candidates := make([]candidate, 0, len(labels)*len(zones))
	for _, l := range labels {
		for _, z := range zones {
			candidates = append(candidates, candidate{domain: l + "." + z, tld: z})
		}
	}

	results, err := c.run(ctx, candidates)
	if err != nil {
		return Report{}, err
	}
	stats := c.stats(results)
	stats.ElapsedMs = time.Since(start).Milliseconds()
	return Report{Results: results, Stats: stats}, nil
}

// CheckNames checks pre-built fully qualified domains with the same
// batching and fallback pipeline, skipping keyword expansion.
func (c *Checker) CheckNames(ctx context.Context, domains []string) (Report, error) {
	if len(domains) == 0 {
		return Report{}, ErrNoKeywords
	}
	start := time.Now()
	candidates := make([]candidate, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		candidates = append(candidates, candidate{domain: d, tld: lastLabel(d)})
	}

	results, err := c.run(ctx, candidates)
	if err != nil {
		return Report{}, err
	}
	stats := c.stats(results)
	stats.ElapsedMs = time.Since(start).Milliseconds()
	return Report{Results: results, Stats: stats}, nil
}

type candidate struct {
	domain string
	tld    string
}

// run processes candidates in fixed-size batches. Checks inside a
// batch are concurrent; batch N+1 starts only after batch N has fully
// resolved and the pacing delay has elapsed.
func (c *Checker) run(ctx context.Context, candidates []candidate) ([]Result, error) {
	results := make([]Result, len(candidates))

	for start := 0; start < len(candidates); start += c.opts.BatchSize {
		if start > 0 {
			if err := sleepWithContext(ctx, c.opts.BatchDelay); err != nil {
				return nil, err
			}
		}

		end := start + c.opts.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = c.checkOne(ctx, candidates[i])
			}(i)
		}
		wg.Wait()
	}
	return results, nil
}

// checkOne is the per-candidate pipeline: RDAP, then WHOIS when RDAP
// failed and the TLD has a fallback configured. A panic anywhere in
// the flow becomes an Unknown-method result; one candidate can never
// sink the batch.
func (c *Checker) checkOne(ctx context.Context, cand candidate) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{
				Domain:    cand.domain,
				TLD:       cand.tld,
				CheckedAt: c.now(),
				Method:    MethodUnknown,
				Error:     fmt.Sprintf("internal: %v", p),
			}
		}
	}()

	ev := c.rdap.CheckDomain(ctx, cand.domain, cand.tld)
	if ev.Err == nil {
		return c.fromRDAP(cand, ev)
	}

	server, pattern := c.tlds.WhoisForTLD(cand.tld)
	if server == "" || pattern == "" {
		return Result{
			Domain:    cand.domain,
			TLD:       cand.tld,
			CheckedAt: c.now(),
			Method:    MethodRDAP,
			Error:     ev.Err.Error(),
		}
	}

	wev := c.whois.CheckDomain(ctx, cand.domain, server, pattern)
	if wev.Err != nil {
		// Keep the RDAP result, annotated with the fallback failure.
		return Result{
			Domain:    cand.domain,
			TLD:       cand.tld,
			CheckedAt: c.now(),
			Method:    MethodRDAP,
			Error:     ev.Err.Error() + "; whois fallback: " + wev.Err.Error(),
		}
	}

	return Result{
		Domain:    cand.domain,
		TLD:       cand.tld,
		Available: wev.Available,
		CheckedAt: c.now(),
		Method:    MethodWHOISFallback,
	}
}

func (c *Checker) fromRDAP(cand candidate, ev rdap.Evidence) Result {
	res := Result{
		Domain:    cand.domain,
		TLD:       cand.tld,
		Available: ev.Available,
		CheckedAt: c.now(),
		Method:    MethodRDAP,
	}
	if ev.Registered {
		res.RDAP = ev.Record
		res.RegistrationDate = ev.Registration
		res.ExpirationDate = ev.Expiration
		res.LastChangedDate = ev.LastChanged
		if ev.AgeDays >= 0 {
			age := ev.AgeDays
			res.DomainAgeDays = &age
		}
	}
	return res
}

func (c *Checker) stats(results []Result) Stats {
	s := Stats{
		BatchID:  uuid.NewString(),
		Total:    len(results),
		ByMethod: make(map[Method]int, 4),
	}
	for _, r := range results {
		switch {
		case r.Error != "":
			s.Errored++
		case r.Available:
			s.Available++
		default:
			s.Unavailable++
		}
		s.ByMethod[r.Method]++
	}
	return s
}

func lastLabel(domain string) string {
	i := strings.LastIndexByte(domain, '.')
	if i < 0 || i == len(domain)-1 {
		return ""
	}
	return domain[i+1:]
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
