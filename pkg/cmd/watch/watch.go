package watch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/engine"
	"github.com/Paintersrp/listingnotes/internal/page"
	"github.com/Paintersrp/listingnotes/internal/state"
	"github.com/Paintersrp/listingnotes/pkg/flags"
)

func NewCmdWatch(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch <page.html> [--feed dir] [-o out.html]",
		Aliases: []string{"w"},
		Short:   "Keep a page annotated while it changes.",
		Long: heredoc.Doc(`
			Watches the page snapshot and an optional feed directory. Rewriting the
			page replaces its body, and every .html file dropped into the feed is
			appended to the body. New cards get widgets on the next frame, notes
			written by other instances re-render in place, and the annotated page is
			written out whenever it settles.
		`),
		Example: heredoc.Doc(`
			listingnotes watch page.html --feed ./feed -o annotated.html
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.HandleOutput(cmd)
			if err != nil {
				return err
			}
			feed, err := flags.HandleFeed(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, s, args[0], feed, out, cmd.OutOrStdout())
		},
	}

	flags.AddOutput(cmd)
	flags.AddFeed(cmd)
	return cmd
}

func run(ctx context.Context, s *state.State, pagePath, feed, out string, stdout io.Writer) error {
	doc, err := page.Load(pagePath, dom.Options{})
	if err != nil {
		return err
	}

	lp := s.NewLoop()
	e, err := s.OpenEngine(ctx, doc, lp)
	if err != nil {
		return err
	}
	defer e.Stop()

	watcher, err := state.NewPageWatcher(pagePath, feed)
	if err != nil {
		return fmt.Errorf("failed to watch page: %w", err)
	}
	defer watcher.Close()

	logger := s.Logger
	watcher.OnPage(func(path string) {
		lp.Post(func() {
			if err := page.ReplaceBody(doc, path); err != nil {
				logger.Warn("page reload failed", "path", path, "err", err)
				return
			}
			logger.Info("page reloaded", "path", path)
		})
	})
	watcher.OnFeed(func(path string) {
		lp.Post(func() {
			if err := page.AppendFragment(doc, path); err != nil {
				logger.Warn("fragment append failed", "path", path, "err", err)
				return
			}
			logger.Info("fragment appended", "path", path)
		})
	})
	watcher.OnError(func(err error) {
		logger.Warn("watcher error", "err", err)
	})

	w := &writer{engine: e, out: out, stdout: stdout, logger: logger}
	lp.OnIdle(w.flush)

	logger.Info("watching", "page", pagePath, "feed", feed)
	return lp.Run(ctx)
}

// writer emits the annotated page whenever it differs from the last write.
type writer struct {
	engine *engine.Engine
	out    string
	stdout io.Writer
	logger *slog.Logger
	last   []byte
}

func (w *writer) flush() {
	if w.engine.Stats().Scans == 0 {
		return
	}
	data, err := page.Render(w.engine.Document())
	if err != nil {
		w.logger.Warn("render failed", "err", err)
		return
	}
	if bytes.Equal(data, w.last) {
		return
	}
	w.last = data

	if w.out == "" {
		if _, err := w.stdout.Write(append(data, '\n')); err != nil {
			w.logger.Warn("write failed", "err", err)
		}
		return
	}
	if err := page.WriteFile(w.out, data); err != nil {
		w.logger.Warn("write failed", "path", w.out, "err", err)
		return
	}
	w.logger.Debug("page written", "path", w.out, "widgets", len(w.engine.Views()))
}
