package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/billing-engine/billing"
)

func newNextNumberCmd(global *globalOptions) *cobra.Command {
	var client string
	cmd := &cobra.Command{
		Use:   "next-number",
		Short: "Print the number the next invoice for a client would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := global.load()
			if err != nil {
				return err
			}
			numbering := global.numbering()
			number := numbering.Draft()
			if client != "" {
				number = numbering.Next(b.snap.Directory().ClientName(billing.ClientID(client)), b.snap.Invoices, b.now)
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		},
	}
	cmd.Flags().StringVarP(&client, "client", "c", "", "Client id")
	return cmd
}
