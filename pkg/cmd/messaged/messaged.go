package messaged

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/listing"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/state"
)

func NewCmdMessaged(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messaged",
		Aliases: []string{"m"},
		Short:   "List or change the messaged flag of listings.",
		Long: heredoc.Doc(`
			Without a subcommand the identifiers of every listing marked as
			messaged are printed, one per line.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, s)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "Print every listing marked as messaged.",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runList(cmd, s)
			},
		},
		newCmdToggle(s),
		newCmdSet(s, "on", true),
		newCmdSet(s, "off", false),
	)
	return cmd
}

func runList(cmd *cobra.Command, s *state.State) error {
	m, err := s.OpenMirror(cmd.Context(), nil)
	if err != nil {
		return err
	}
	for _, e := range m.Entries() {
		if e.Messaged {
			fmt.Fprintln(cmd.OutOrStdout(), e.ID)
		}
	}
	return nil
}

func newCmdToggle(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id|link>",
		Short: "Flip the messaged flag of one listing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, s, args[0], func(current bool) bool { return !current })
		},
	}
}

func newCmdSet(s *state.State, use string, on bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|link>",
		Short: fmt.Sprintf("Turn the messaged flag of one listing %s.", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, s, args[0], func(bool) bool { return on })
		},
	}
}

func update(cmd *cobra.Command, s *state.State, arg string, next func(bool) bool) error {
	id, ok := listing.NewExtractor(s.Config.Engine.BaseOrigin).Resolve(arg)
	if !ok {
		return fmt.Errorf("%q is not a listing identifier or link", arg)
	}

	m, err := s.OpenMirror(cmd.Context(), nil)
	if err != nil {
		return err
	}

	_, current := m.Get(id)
	on := next(current)
	m.Write(id, mirror.SetMessaged(on))
	if err := m.Flush(cmd.Context()); err != nil {
		return err
	}
	if err := s.PersistError(); err != nil {
		return err
	}

	label := "not messaged"
	if on {
		label = "messaged"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", id, label)
	return nil
}
