package notes

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/search"
	"github.com/Paintersrp/listingnotes/internal/state"
)

func newCmdSearch(s *state.State) *cobra.Command {
	var messaged, notMessaged bool

	cmd := &cobra.Command{
		Use:     "search [term...]",
		Aliases: []string{"grep"},
		Short:   "Search notes and identifiers for a term.",
		Example: "listingnotes notes search delivery --messaged",
		RunE: func(cmd *cobra.Command, args []string) error {
			if messaged && notMessaged {
				return fmt.Errorf("--messaged and --not-messaged cannot be combined")
			}

			m, err := s.OpenMirror(cmd.Context(), nil)
			if err != nil {
				return err
			}

			q := search.Query{Term: strings.Join(args, " ")}
			if messaged || notMessaged {
				q.Messaged = &messaged
			}

			for _, r := range search.NewIndex(m.Entries()).Search(q) {
				flag := "-"
				if r.Messaged {
					flag = "messaged"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.ID, flag, r.Snippet)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&messaged, "messaged", false, "Only listings marked as messaged")
	cmd.Flags().BoolVar(&notMessaged, "not-messaged", false, "Only listings not marked as messaged")
	return cmd
}
