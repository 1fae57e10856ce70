package main

import (
	"github.com/spf13/cobra"

	savedcommand "github.com/goliatone/go-saved/command"
)

func newPageCommand(ctx *commandContext) *cobra.Command {
	var cursor string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Show one page of saved items",
		Long:  "Restore the stored session and show one page of saved items. Pass the printed cursor to --cursor for the next page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			seq, err := rt.initialize(cmd.Context(), savedcommand.InitializeSessionMessage{Restore: true})
			if err != nil {
				return err
			}
			event, err := rt.page(cmd.Context(), seq, cursor)
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), event, asJSON)
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "Fetch the page after this cursor")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}
