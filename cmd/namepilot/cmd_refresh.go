package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefreshCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Force a registry refresh from the IANA bootstrap source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.setup(cmd.Context())
			if !a.reg.Refresh(cmd.Context(), false) {
				return &cliError{Code: 1, Err: fmt.Errorf("refresh failed; previous registry data kept"), Cmd: cmd}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registry refreshed: %d TLDs enabled\n", len(a.reg.EnabledConfigs()))
			return nil
		},
	}
	cmd.SetFlagErrorFunc(usageErr)
	return cmd
}
