package annotate

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/page"
	"github.com/Paintersrp/listingnotes/internal/state"
	"github.com/Paintersrp/listingnotes/pkg/flags"
)

func NewCmdAnnotate(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "annotate <page.html> [-o out.html]",
		Aliases: []string{"a"},
		Short:   "Attach note widgets to a page snapshot once.",
		Long: heredoc.Doc(`
			Loads the page, attaches a widget to every listing card using the notes
			in the configured store, and writes the annotated page.
		`),
		Example: "listingnotes annotate page.html -o annotated.html",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.HandleOutput(cmd)
			if err != nil {
				return err
			}
			return run(cmd, s, args[0], out)
		},
	}

	flags.AddOutput(cmd)
	return cmd
}

func run(cmd *cobra.Command, s *state.State, pagePath, out string) error {
	doc, err := page.Load(pagePath, dom.Options{})
	if err != nil {
		return err
	}

	lp := s.NewLoop()
	e, err := s.OpenEngine(cmd.Context(), doc, lp)
	if err != nil {
		return err
	}
	lp.Drain()
	e.Stop()

	if out == "" {
		if err := page.Write(doc, cmd.OutOrStdout()); err != nil {
			return err
		}
	} else {
		data, err := page.Render(doc)
		if err != nil {
			return err
		}
		if err := page.WriteFile(out, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "attached %d widgets\n", len(e.Views()))
	return nil
}
