package root

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Paintersrp/listingnotes/internal/constants"
	"github.com/Paintersrp/listingnotes/internal/state"
	"github.com/Paintersrp/listingnotes/pkg/cmd/annotate"
	"github.com/Paintersrp/listingnotes/pkg/cmd/browse"
	"github.com/Paintersrp/listingnotes/pkg/cmd/id"
	"github.com/Paintersrp/listingnotes/pkg/cmd/initialize"
	"github.com/Paintersrp/listingnotes/pkg/cmd/messaged"
	"github.com/Paintersrp/listingnotes/pkg/cmd/notes"
	"github.com/Paintersrp/listingnotes/pkg/cmd/watch"
)

func NewCmdRoot(s *state.State) (*cobra.Command, error) {
	var storeFlag, logLevelFlag string

	cmd := &cobra.Command{
		Use:     "listingnotes",
		Aliases: []string{"ln"},
		Short:   "Private notes and messaged flags on marketplace listing cards.",
		Long: heredoc.Doc(`
			listingnotes attaches a small note widget to every listing card of a
			marketplace page and keeps the notes in sync with a shared store.

			Pages are plain HTML snapshots. Annotate one once, watch it while a feed
			appends new cards, or browse its cards in the terminal.
		`),
		Example: heredoc.Doc(`
			listingnotes annotate page.html -o annotated.html
			listingnotes watch page.html --feed ./feed -o annotated.html
			listingnotes notes set 1234567890 "Asked about delivery"
		`),
		Version:       constants.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("store") {
				viper.Set(state.StoreOverrideKey, storeFlag)
			}
			if cmd.Flags().Changed("log-level") {
				viper.Set(state.LogLevelOverrideKey, logLevelFlag)
			}
			return s.ApplyFlags()
		},
	}

	cmd.PersistentFlags().
		StringVar(
			&storeFlag,
			"store",
			"",
			"Store DSN to use instead of the configured one (file://, sqlite://, postgres://, s3://, memory://)",
		)
	cmd.PersistentFlags().
		StringVar(
			&logLevelFlag,
			"log-level",
			"",
			"Log level override (debug, info, warn, error)",
		)

	cmd.AddCommand(
		initialize.NewCmdInit(s),
		annotate.NewCmdAnnotate(s),
		watch.NewCmdWatch(s),
		browse.NewCmdBrowse(s),
		notes.NewCmdNotes(s),
		messaged.NewCmdMessaged(s),
		id.NewCmdID(s),
	)

	return cmd, nil
}
