package id

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/listing"
	"github.com/Paintersrp/listingnotes/internal/state"
)

func NewCmdID(s *state.State) *cobra.Command {
	var origin string

	cmd := &cobra.Command{
		Use:   "id <link...>",
		Short: "Print the listing identifier of each link.",
		Long: heredoc.Doc(`
			Resolves each link against the marketplace origin and prints the listing
			identifier it carries. Links without one are reported and make the
			command fail.
		`),
		Example: heredoc.Doc(`
			listingnotes id /marketplace/item/1234567890/
			listingnotes id "https://www.facebook.com/marketplace/?item_id=42"
		`),
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if origin == "" {
				origin = s.Config.Engine.BaseOrigin
			}
			extractor := listing.NewExtractor(origin)

			failed := 0
			for _, href := range args {
				id, ok := extractor.ID(href)
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "no listing identifier in %q\n", href)
					failed++
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d links had no listing identifier", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "Origin used to resolve relative links")
	return cmd
}
