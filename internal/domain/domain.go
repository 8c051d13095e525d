package domain

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Normalize turns user input into an ASCII domain suitable for
// registry lookups. It accepts URLs and host:port forms and strips
// them down to the bare name; the keyword expansion path does not use
// this (keywords stay plain ASCII), only explicit-domain lookups do.
func Normalize(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = stripPort(s)

	s = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	if err := validate(ascii); err != nil {
		return "", fmt.Errorf("invalid domain %q: %w", input, err)
	}
	return ascii, nil
}

// Split breaks a normalized domain into its label part and TLD.
func Split(d string) (label, tld string) {
	i := strings.LastIndexByte(d, '.')
	if i < 0 || i == len(d)-1 {
		return "", ""
	}
	return d[:i], d[i+1:]
}

// ReadLines collects non-empty trimmed lines, for stdin-fed domain
// lists.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func stripPort(s string) string {
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	// SplitHostPort errors on multi-colon hosts; salvage a trailing
	// numeric port anyway.
	if i := strings.LastIndexByte(s, ':'); i > 0 && i < len(s)-1 {
		if isDigits(s[i+1:]) {
			return s[:i]
		}
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validate is a pragmatic check for registrable names: dotted, length
// bounded, lowercase LDH labels only.
func validate(s string) error {
	if len(s) > 253 {
		return fmt.Errorf("too long")
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return fmt.Errorf("missing TLD")
	}
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return fmt.Errorf("bad label length")
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("label starts or ends with hyphen")
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
				continue
			}
			return fmt.Errorf("bad character %q", c)
		}
	}
	return nil
}
