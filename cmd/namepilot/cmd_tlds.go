package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTLDsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tlds",
		Short: "List the TLDs the registry can currently query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.setup(cmd.Context())
			configs := a.reg.EnabledConfigs()

			switch a.outFormat {
			case formatJSON, formatNDJSON:
				enc := json.NewEncoder(os.Stdout)
				if a.outFormat == formatJSON {
					return enc.Encode(configs)
				}
				for _, c := range configs {
					if err := enc.Encode(c); err != nil {
						return err
					}
				}
				return nil
			default:
				tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TLD\tRDAP SERVERS\tWHOIS")
				for _, c := range configs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.DisplayName, strings.Join(c.RDAPServers, ","), c.WhoisServer)
				}
				return tw.Flush()
			}
		},
	}
	cmd.SetFlagErrorFunc(usageErr)
	return cmd
}
