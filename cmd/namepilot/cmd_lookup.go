package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/namepilot/namepilot/internal/domain"
)

func newLookupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup [domain...]",
		Short: "Check availability for explicit domains (args and/or stdin)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readArgsAndStdin(args, os.Stdin)
			if err != nil {
				return &cliError{Code: 1, Err: fmt.Errorf("failed to read domains: %w", err), Cmd: cmd}
			}
			if len(inputs) == 0 {
				return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
			}

			domains := make([]string, 0, len(inputs))
			for _, in := range inputs {
				ascii, err := domain.Normalize(in)
				if err != nil {
					return usageErr(cmd, fmt.Errorf("%q: %w", in, err))
				}
				domains = append(domains, ascii)
			}

			a.setup(cmd.Context())

			rep, err := a.checker.CheckNames(cmd.Context(), domains)
			if err != nil {
				return &cliError{Code: 1, Err: err, Cmd: cmd}
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
	return cmd
}
