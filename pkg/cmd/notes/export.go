package notes

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/state"
	"github.com/Paintersrp/listingnotes/internal/templater"
	"github.com/Paintersrp/listingnotes/pkg/flags"
)

func newCmdExport(s *state.State) *cobra.Command {
	var tmplName string

	cmd := &cobra.Command{
		Use:   "export [-t template] [-o file]",
		Short: "Export every note through a template.",
		Long: heredoc.Doc(`
			Renders all notes with one of the built in templates (markdown, html,
			csv). Templates placed in ~/.listingnotes/templates/<name>.tmpl are
			available by name and take precedence over the built in ones.
		`),
		Example: "listingnotes notes export -t csv -o notes.csv",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.HandleOutput(cmd)
			if err != nil {
				return err
			}

			t, err := templater.NewTemplater(s.Home)
			if err != nil {
				return err
			}
			m, err := s.OpenMirror(cmd.Context(), nil)
			if err != nil {
				return err
			}

			rendered, err := t.Execute(tmplName, s.Config.Engine.BaseOrigin, m.Entries())
			if err != nil {
				return err
			}

			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			}
			if err := os.WriteFile(out, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tmplName, "template", "t", "markdown", "Template to render")
	cmd.Flags().StringP("output", "o", "", "Write the export to this file instead of stdout")
	return cmd
}
