package flags

import (
	"github.com/spf13/cobra"
)

func AddOutput(cmd *cobra.Command) {
	cmd.Flags().
		StringP(
			"output",
			"o",
			"",
			"Write the annotated page to this file instead of stdout",
		)
}

func HandleOutput(cmd *cobra.Command) (string, error) {
	return cmd.Flags().GetString("output")
}

func AddFeed(cmd *cobra.Command) {
	cmd.Flags().
		StringP(
			"feed",
			"f",
			"",
			"Directory whose new .html fragments are appended to the page",
		)
}

func HandleFeed(cmd *cobra.Command) (string, error) {
	return cmd.Flags().GetString("feed")
}
