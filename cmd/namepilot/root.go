package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/namepilot/namepilot/internal/check"
	"github.com/namepilot/namepilot/internal/config"
	"github.com/namepilot/namepilot/internal/rdap"
	"github.com/namepilot/namepilot/internal/registry"
	"github.com/namepilot/namepilot/internal/whois"
)

type app struct {
	Version string

	// Global flags.
	VersionFlag bool
	ConfigPath  string
	Format      string
	JSON        bool
	NDJSON      bool
	Plain       bool
	Timeout     time.Duration
	NoWHOIS     bool
	Quiet       bool
	Verbose     bool

	// Derived runtime state, built lazily by setup so that flag and
	// usage errors never touch disk or network.
	cfg       config.Config
	logger    *slog.Logger
	outFormat outputFormat
	reg       *registry.Registry
	checker   *check.Checker
}

func newRootCmd(ver string) *cobra.Command {
	a := &app{Version: ver}

	root := &cobra.Command{
		Use:           "namepilot",
		Short:         "Check domain availability for keyword/TLD combinations",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SetFlagErrorFunc(usageErr)

	pf := root.PersistentFlags()
	pf.BoolVar(&a.VersionFlag, "version", false, "Print version and exit")
	pf.StringVar(&a.ConfigPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&a.Format, "format", "auto", "Output format: auto|table|ndjson|json|plain")
	pf.BoolVar(&a.JSON, "json", false, "Alias for --format json (report with stats)")
	pf.BoolVar(&a.NDJSON, "ndjson", false, "Alias for --format ndjson (one result per line)")
	pf.BoolVar(&a.Plain, "plain", false, "Alias for --format plain (stable tab-separated)")
	pf.DurationVar(&a.Timeout, "timeout", 10*time.Second, "Per-request RDAP timeout")
	pf.BoolVar(&a.NoWHOIS, "no-whois", false, "Disable the WHOIS fallback (RDAP only)")
	pf.BoolVarP(&a.Quiet, "quiet", "q", false, "Suppress non-essential stderr output")
	pf.BoolVarP(&a.Verbose, "verbose", "v", false, "Verbose stderr output (diagnostics)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if a.VersionFlag {
			fmt.Fprintf(os.Stdout, "namepilot %s (%s/%s)\n", a.Version, runtime.GOOS, runtime.GOARCH)
			return errExit0
		}

		formatStr := strings.ToLower(strings.TrimSpace(a.Format))
		aliases := 0
		for _, set := range []bool{a.JSON, a.NDJSON, a.Plain} {
			if set {
				aliases++
			}
		}
		if aliases > 1 {
			return usageErr(cmd, fmt.Errorf("flags are mutually exclusive: --json, --ndjson, --plain"))
		}
		if formatStr != "auto" && formatStr != "" && aliases == 1 {
			return usageErr(cmd, fmt.Errorf("do not combine --format with --json/--ndjson/--plain"))
		}
		switch {
		case a.JSON:
			formatStr = "json"
		case a.NDJSON:
			formatStr = "ndjson"
		case a.Plain:
			formatStr = "plain"
		}
		a.outFormat = resolveFormat(formatStr, os.Stdout)

		cfg := config.Default()
		if a.ConfigPath != "" {
			loaded, err := config.Load(a.ConfigPath)
			if err != nil {
				return usageErr(cmd, fmt.Errorf("config: %w", err))
			}
			cfg = loaded
		}
		a.cfg = config.FromEnv(cfg)

		level := slog.LevelWarn
		if a.Verbose && !a.Quiet {
			level = slog.LevelDebug
		}
		if a.Quiet {
			level = slog.LevelError
		}
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	}

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newLookupCmd(a))
	root.AddCommand(newTLDsCmd(a))
	root.AddCommand(newRefreshCmd(a))

	return root
}

// setup builds the registry and checker. Called by commands that
// actually query, so plain usage errors stay offline.
func (a *app) setup(ctx context.Context) {
	if a.reg != nil {
		return
	}

	a.reg = registry.New(registry.Options{
		CachePath:       a.cfg.CachePath,
		BootstrapURL:    a.cfg.BootstrapURL,
		StaleAfter:      a.cfg.StaleAfter.Std(),
		RefreshInterval: a.cfg.EffectiveRefreshInterval(),
		Overlay:         a.cfg.Overlay(),
		Logger:          a.logger,
	})
	a.reg.Initialize(ctx)

	rdapResolver := rdap.NewResolver(a.reg, rdap.Options{Timeout: a.Timeout})
	whoisResolver := whois.NewResolver(whois.Options{})

	var tlds check.TLDSource = a.reg
	if a.NoWHOIS {
		tlds = noWhois{}
	}

	a.checker = check.NewChecker(rdapResolver, whoisResolver, tlds, check.Options{
		BatchSize:  a.cfg.BatchSize,
		BatchDelay: a.cfg.BatchDelay.Std(),
	})
}

// noWhois hides all WHOIS configuration from the orchestrator.
type noWhois struct{}

func (noWhois) WhoisForTLD(string) (string, string) { return "", "" }
