package main

import (
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/namepilot/namepilot/internal/domain"
)

// readArgsAndStdin merges positional args with piped stdin lines.
func readArgsAndStdin(args []string, stdin *os.File) ([]string, error) {
	var out []string
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}

	if term.IsTerminal(int(stdin.Fd())) {
		// Nothing piped in.
		return out, nil
	}
	lines, err := domain.ReadLines(stdin)
	if err != nil {
		return nil, err
	}
	return append(out, lines...), nil
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
