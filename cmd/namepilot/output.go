package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/namepilot/namepilot/internal/check"
)

type outputFormat int

const (
	formatTable outputFormat = iota
	formatNDJSON
	formatJSON
	formatPlain
)

func resolveFormat(flagVal string, stdout *os.File) outputFormat {
	switch strings.ToLower(strings.TrimSpace(flagVal)) {
	case "table":
		return formatTable
	case "ndjson":
		return formatNDJSON
	case "json":
		return formatJSON
	case "plain":
		return formatPlain
	case "auto", "":
	default:
		// Unknown format: fall back to auto.
	}

	if term.IsTerminal(int(stdout.Fd())) {
		return formatTable
	}
	return formatNDJSON
}

// writeReport renders results per format. JSON emits the whole report
// including stats; the line formats emit results only, with the stats
// summary going to stderr separately.
func writeReport(w io.Writer, format outputFormat, rep check.Report) error {
	switch format {
	case formatJSON:
		return json.NewEncoder(w).Encode(rep)
	case formatNDJSON:
		enc := json.NewEncoder(w)
		for _, r := range rep.Results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case formatPlain:
		for _, r := range rep.Results {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", r.Domain, statusWord(r), r.Method); err != nil {
				return err
			}
		}
		return nil
	case formatTable:
		fallthrough
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DOMAIN\tSTATUS\tMETHOD\tAGE\tDETAIL")
		for _, r := range rep.Results {
			age := ""
			if r.DomainAgeDays != nil {
				age = fmt.Sprintf("%dd", *r.DomainAgeDays)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Domain, statusWord(r), r.Method, age, r.Error)
		}
		return tw.Flush()
	}
}

func statusWord(r check.Result) string {
	switch {
	case r.Error != "":
		return "error"
	case r.Available:
		return "available"
	default:
		return "taken"
	}
}

func printStats(w io.Writer, s check.Stats) {
	methods := make([]string, 0, len(s.ByMethod))
	for m, n := range s.ByMethod {
		methods = append(methods, fmt.Sprintf("%s=%d", m, n))
	}
	sort.Strings(methods)
	fmt.Fprintf(w, "checked %d domains in %dms: %d available, %d taken, %d errors (%s)\n",
		s.Total, s.ElapsedMs, s.Available, s.Unavailable, s.Errored, strings.Join(methods, ", "))
}
