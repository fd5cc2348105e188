package notes

import (
	"context"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/listingnotes/internal/listing"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/render"
	"github.com/Paintersrp/listingnotes/internal/state"
)

const defaultWidth = 80

func NewCmdNotes(s *state.State) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"n"},
		Short:   "List and edit listing notes without a page.",
		Long: heredoc.Doc(`
			Works directly against the configured store. Without a subcommand every
			listing with a note or messaged flag is listed.

			Listings can be named by identifier or by link.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, s, plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print tab separated lines instead of rendered markdown")

	cmd.AddCommand(
		newCmdList(s),
		newCmdShow(s),
		newCmdSet(s),
		newCmdClear(s),
		newCmdFind(s),
		newCmdEdit(s),
		newCmdExport(s),
		newCmdSearch(s),
	)
	return cmd
}

func newCmdList(s *state.State) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every listing with a note or messaged flag.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, s, plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print tab separated lines instead of rendered markdown")
	return cmd
}

func runList(cmd *cobra.Command, s *state.State, plain bool) error {
	m, err := s.OpenMirror(cmd.Context(), nil)
	if err != nil {
		return err
	}

	entries := m.Entries()
	if plain {
		fmt.Fprint(cmd.OutOrStdout(), render.Plain(entries))
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notes yet.")
		return nil
	}

	out, err := render.Terminal(render.Markdown(entries, s.Config.Engine.BaseOrigin), terminalWidth())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// resolve maps an identifier or listing link to an identifier.
func resolve(s *state.State, arg string) (string, error) {
	id, ok := listing.NewExtractor(s.Config.Engine.BaseOrigin).Resolve(arg)
	if !ok {
		return "", fmt.Errorf("%q is not a listing identifier or link", arg)
	}
	return id, nil
}

// write applies p and waits until it is stored.
func write(ctx context.Context, s *state.State, m *mirror.Mirror, id string, p mirror.Patch) error {
	m.Write(id, p)
	if err := m.Flush(ctx); err != nil {
		return err
	}
	return s.PersistError()
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
