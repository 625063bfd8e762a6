package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Look up ticker symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.marketData(nil)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			res, err := p.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(res) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no symbols match %q\n", query)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tNAME\tEXCHANGE\tTYPE")
			for _, r := range res {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Symbol, r.Shortname, r.Exchange, r.QuoteType)
			}
			return tw.Flush()
		},
	}
}
