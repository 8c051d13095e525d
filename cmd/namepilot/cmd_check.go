package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/namepilot/namepilot/internal/check"
)

func newCheckCmd(a *app) *cobra.Command {
	var tldsStr string
	var availableOnly bool

	cmd := &cobra.Command{
		Use:   "check <keyword...>",
		Short: "Expand keywords across TLDs and check availability",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keywords, err := readArgsAndStdin(args, os.Stdin)
			if err != nil {
				return &cliError{Code: 1, Err: fmt.Errorf("failed to read keywords: %w", err), Cmd: cmd}
			}
			tlds := splitCommaList(tldsStr)

			a.setup(cmd.Context())

			rep, err := a.checker.CheckDomains(cmd.Context(), keywords, tlds)
			if err != nil {
				if errors.Is(err, check.ErrNoKeywords) || errors.Is(err, check.ErrNoTLDs) {
					return usageErr(cmd, err)
				}
				return &cliError{Code: 1, Err: err, Cmd: cmd}
			}

			if availableOnly {
				filtered := rep.Results[:0]
				for _, r := range rep.Results {
					if r.Available {
						filtered = append(filtered, r)
					}
				}
				rep.Results = filtered
			}

			if err := writeReport(os.Stdout, a.outFormat, rep); err != nil {
				return &cliError{Code: 1, Err: fmt.Errorf("failed to write output: %w", err), Cmd: cmd}
			}
			if !a.Quiet && a.outFormat != formatJSON {
				printStats(os.Stderr, rep.Stats)
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	cmd.Flags().StringVar(&tldsStr, "tlds", "com,net,org,io", "Comma-separated TLDs to try")
	cmd.Flags().BoolVar(&availableOnly, "available-only", false, "Only output available results")

	return cmd
}
