package notes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/fzf"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/render"
	"github.com/Paintersrp/listingnotes/internal/state"
	"github.com/Paintersrp/listingnotes/internal/tui/textarea"
)

// editNote runs the editor; tests replace it.
var editNote = textarea.Run

func newCmdShow(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|link>",
		Short: "Print the note of one listing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolve(s, args[0])
			if err != nil {
				return err
			}
			m, err := s.OpenMirror(cmd.Context(), nil)
			if err != nil {
				return err
			}

			note, messaged := m.Get(id)
			if note == "" && !messaged {
				return fmt.Errorf("no note for listing %s", id)
			}
			out, err := render.Entry(mirror.Entry{ID: id, Note: note, Messaged: messaged}, terminalWidth())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCmdSet(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:     "set <id|link> <text...>",
		Short:   "Replace the note of one listing.",
		Example: `listingnotes notes set 1234567890 "Asked about delivery"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolve(s, args[0])
			if err != nil {
				return err
			}
			m, err := s.OpenMirror(cmd.Context(), nil)
			if err != nil {
				return err
			}

			note := strings.TrimSpace(strings.Join(args[1:], " "))
			if err := write(cmd.Context(), s, m, id, mirror.SetNote(note)); err != nil {
				return err
			}
			if note == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed note for %s\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved note for %s\n", id)
			return nil
		},
	}
}

func newCmdClear(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:     "clear <id|link>",
		Aliases: []string{"rm"},
		Short:   "Remove the note and messaged flag of one listing.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolve(s, args[0])
			if err != nil {
				return err
			}
			m, err := s.OpenMirror(cmd.Context(), nil)
			if err != nil {
				return err
			}

			empty, off := "", false
			if err := write(cmd.Context(), s, m, id, mirror.Patch{Note: &empty, Messaged: &off}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", id)
			return nil
		},
	}
}

func newCmdFind(s *state.State) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Fuzzy find a listing note and print its link.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.OpenMirror(cmd.Context(), nil)
			if err != nil {
				return err
			}
			entries := m.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes yet.")
				return nil
			}

			finder := fzf.NewFuzzyFinder(entries, "Listing notes")
			entry, err := finder.RunWithQuery(query)
			if errors.Is(err, fzf.ErrNoSelection) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.ListingURL(s.Config.Engine.BaseOrigin, entry.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Initial search query")
	return cmd
}

func newCmdEdit(s *state.State) *cobra.Command {
	var yank bool

	cmd := &cobra.Command{
		Use:   "edit <id|link>",
		Short: "Edit the note of one listing in the terminal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolve(s, args[0])
			if err != nil {
				return err
			}
			m, err := s.OpenMirror(cmd.Context(), nil)
			if err != nil {
				return err
			}

			current, _ := m.Get(id)
			note, saved, err := editNote("Listing "+id, current, yank)
			if err != nil {
				return err
			}
			if !saved {
				return nil
			}
			if err := write(cmd.Context(), s, m, id, mirror.SetNote(strings.TrimSpace(note))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved note for %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yank, "yank", "y", false, "Start from the clipboard contents")
	return cmd
}
