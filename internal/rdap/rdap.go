package rdap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// ServerSource supplies candidate RDAP servers per TLD and absorbs
// outcome telemetry. Satisfied by *registry.Registry.
type ServerSource interface {
	ServersForTLD(tld string) []string
	RecordRDAPOutcome(success bool)
}

type Options struct {
	// Timeout applies per request, not per domain.
	Timeout time.Duration
}

type Resolver struct {
	opts   Options
	http   *http.Client
	source ServerSource
	now    func() time.Time
}

// Event is one entry of an RDAP "events" array.
type Event struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

// Record is the slice of an RDAP domain response this system actually
// reads, plus the raw payload as an escape hatch.
type Record struct {
	LDHName string          `json:"ldhName,omitempty"`
	Status  []string        `json:"status,omitempty"`
	Events  []Event         `json:"events,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Evidence is the outcome of one RDAP domain lookup.
type Evidence struct {
	Available  bool
	Registered bool

	// Populated on a 200 with a parseable body.
	Record       *Record
	Registration *time.Time
	Expiration   *time.Time
	LastChanged  *time.Time
	// AgeDays is whole days since registration, -1 when unknown.
	AgeDays int

	// Err is set only when no server produced a definitive answer.
	Err error
}

func NewResolver(source ServerSource, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Resolver{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		source: source,
		now:    time.Now,
	}
}

// CheckDomain tries the TLD's RDAP servers in registry order. A 404
// means available, a 200 means registered; anything else moves on to
// the next server. Exhausting all servers yields an Evidence with Err
// set and counts against the registry's RDAP health.
func (r *Resolver) CheckDomain(ctx context.Context, domain, tld string) Evidence {
	servers := r.source.ServersForTLD(tld)
	if len(servers) == 0 {
		return Evidence{AgeDays: -1, Err: fmt.Errorf("no RDAP servers for TLD %q", tld)}
	}

	var failures []string
	for _, base := range servers {
		ev, errStr := r.lookupOne(ctx, base, domain)
		if errStr != "" {
			failures = append(failures, errStr)
			continue
		}
		r.source.RecordRDAPOutcome(true)
		return ev
	}

	r.source.RecordRDAPOutcome(false)
	return Evidence{AgeDays: -1, Err: errors.New(strings.Join(failures, "; "))}
}

func (r *Resolver) lookupOne(ctx context.Context, base, domain string) (Evidence, string) {
	lookupURL := strings.TrimRight(base, "/") + "/domain/" + url.PathEscape(domain)

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return Evidence{}, fmt.Sprintf("%s: %v", base, err)
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := r.http.Do(req)
	if err != nil {
		return Evidence{}, fmt.Sprintf("%s: %v", base, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return Evidence{Available: true, AgeDays: -1}, ""
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			// The status code already answered the question.
			return Evidence{Registered: true, AgeDays: -1}, ""
		}
		return r.registered(body), ""
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return Evidence{}, fmt.Sprintf("%s: http %d", base, resp.StatusCode)
	}
}

// registered builds Evidence for a 200 response. An unparseable body
// degrades to "registered, no metadata" rather than an error.
func (r *Resolver) registered(body []byte) Evidence {
	ev := Evidence{Registered: true, AgeDays: -1}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return ev
	}
	rec.Raw = json.RawMessage(body)
	ev.Record = &rec

	for _, e := range rec.Events {
		t, err := parseEventDate(e.Date)
		if err != nil {
			continue
		}
		tt := t
		switch strings.ToLower(e.Action) {
		case "registration":
			ev.Registration = &tt
		case "expiration":
			ev.Expiration = &tt
		case "last changed", "last update":
			ev.LastChanged = &tt
		}
	}

	if ev.Registration != nil {
		if age := int(r.now().Sub(*ev.Registration).Hours() / 24); age >= 0 {
			ev.AgeDays = age
		}
	}
	return ev
}

func parseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05Z0700", s)
}
