package browse

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/page"
	"github.com/Paintersrp/listingnotes/internal/state"
	"github.com/Paintersrp/listingnotes/internal/tui/browse"
	"github.com/Paintersrp/listingnotes/pkg/flags"
)

func NewCmdBrowse(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "browse <page.html> [-o out.html]",
		Aliases: []string{"b"},
		Short:   "Browse a page's listing cards and edit their notes in the terminal.",
		Long: heredoc.Doc(`
			Opens every annotated card of the page in a list. Edit a note with
			enter, toggle the messaged flag with m, clear a card with ctrl+x and
			follow its link with o. Notes are saved to the configured store as you
			go, and the annotated page is written on exit when -o is given.
		`),
		Example: "listingnotes browse page.html",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.HandleOutput(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), s, args[0], out)
		},
	}

	flags.AddOutput(cmd)
	return cmd
}

func run(ctx context.Context, s *state.State, pagePath, out string) error {
	doc, err := page.Load(pagePath, dom.Options{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lp := s.NewLoop()
	e, err := s.OpenEngine(ctx, doc, lp)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- lp.Run(ctx) }()

	uiErr := browse.Run(e, tea.WithAltScreen())
	cancel()
	<-done
	lp.Drain()
	e.Stop()

	if uiErr != nil {
		return fmt.Errorf("browser failed: %w", uiErr)
	}

	if out != "" {
		data, err := page.Render(doc)
		if err != nil {
			return err
		}
		if err := page.WriteFile(out, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
	}

	if err := e.Mirror().Flush(context.Background()); err != nil {
		return err
	}
	return s.PersistError()
}
