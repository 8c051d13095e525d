package whois

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

type Options struct {
	// ResolveTimeout bounds the IPv4 lookup of the WHOIS server name.
	ResolveTimeout time.Duration
	ConnectTimeout time.Duration

	// ReceiveTimeout is the hard bound on waiting for response data,
	// measured from the first read. IdleTimeout closes the response
	// once the server has gone quiet after sending something.
	ReceiveTimeout time.Duration
	IdleTimeout    time.Duration

	// PerServerInterval spaces out queries against the same server.
	PerServerInterval time.Duration
}

type Resolver struct {
	opts     Options
	resolver *net.Resolver
	dialer   *net.Dialer
	port     string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Evidence is the outcome of one WHOIS lookup. Available is the
// single substring test against the per-TLD pattern; WHOIS response
// grammars are not standardized, so nothing smarter is attempted.
type Evidence struct {
	Available bool
	Server    string
	Response  string
	Err       error
}

func NewResolver(opts Options) *Resolver {
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 5 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReceiveTimeout <= 0 {
		opts.ReceiveTimeout = 5 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Second
	}
	if opts.PerServerInterval <= 0 {
		opts.PerServerInterval = 250 * time.Millisecond
	}
	return &Resolver{
		opts:     opts,
		resolver: &net.Resolver{},
		dialer:   &net.Dialer{},
		port:     "43",
		limiters: make(map[string]*rate.Limiter, 32),
	}
}

// CheckDomain queries a WHOIS server over TCP/43 and reports the
// domain available iff the response contains pattern.
func (r *Resolver) CheckDomain(ctx context.Context, domain, server, pattern string) Evidence {
	ev := Evidence{Server: server}

	if server == "" {
		ev.Err = errors.New("no WHOIS server")
		return ev
	}

	if err := r.limiterFor(server).Wait(ctx); err != nil {
		ev.Err = err
		return ev
	}

	addr, err := r.resolveIPv4(ctx, server)
	if err != nil {
		ev.Err = fmt.Errorf("resolve %s: %w", server, err)
		return ev
	}

	dialCtx, cancel := context.WithTimeout(ctx, r.opts.ConnectTimeout)
	defer cancel()
	conn, err := r.dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(addr, r.port))
	if err != nil {
		ev.Err = fmt.Errorf("connect %s: %w", server, err)
		return ev
	}
	defer conn.Close()

	if _, err := io.WriteString(conn, domain+"\r\n"); err != nil {
		ev.Err = fmt.Errorf("write %s: %w", server, err)
		return ev
	}

	body, err := r.receive(conn)
	if err != nil {
		ev.Err = fmt.Errorf("read %s: %w", server, err)
		return ev
	}

	ev.Response = body
	ev.Available = strings.Contains(body, pattern)
	return ev
}

func (r *Resolver) resolveIPv4(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ResolveTimeout)
	defer cancel()
	ips, err := r.resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no IPv4 address")
	}
	return ips[0].String(), nil
}

// receive accumulates the response. The hard deadline bounds the wait
// for the first byte and the whole transfer; once data has arrived,
// the idle timer decides completion: a quiet gap means the server is
// done, since WHOIS has no framing and some servers never close.
func (r *Resolver) receive(conn net.Conn) (string, error) {
	hard := time.Now().Add(r.opts.ReceiveTimeout)
	var buf bytes.Buffer
	chunk := make([]byte, 4096)

	for buf.Len() < maxResponseBytes {
		deadline := hard
		if buf.Len() > 0 {
			if idle := time.Now().Add(r.opts.IdleTimeout); idle.Before(hard) {
				deadline = idle
			}
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return "", err
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			if buf.Len() == 0 {
				return "", fmt.Errorf("no data within %s", r.opts.ReceiveTimeout)
			}
			// Idle gap (or hard bound) with data in hand: complete.
			break
		}
		return "", err
	}
	return buf.String(), nil
}

func (r *Resolver) limiterFor(server string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[server]
	if !ok {
		l = rate.NewLimiter(rate.Every(r.opts.PerServerInterval), 1)
		r.limiters[server] = l
	}
	return l
}
