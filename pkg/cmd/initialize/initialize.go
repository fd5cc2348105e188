/*
Copyright © 2024 Ryan Painter paintersrp@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package initialize

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/erikgeiser/promptkit/selection"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/listingnotes/internal/state"
	"github.com/Paintersrp/listingnotes/internal/tui/initialize"
)

func NewCmdInit(s *state.State) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:     "initialize",
		Aliases: []string{"i", "init"},
		Short:   "initialize listingnotes",
		Long: heredoc.Doc(`
			Walks you through choosing the store that holds your notes and writes
			the configuration. Pass --dsn to skip the prompts.
		`),
		Example: heredoc.Doc(`
			listingnotes init
			listingnotes init --dsn sqlite:///home/me/.listingnotes/store.db
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn != "" {
				if err := s.Config.ChangeStore(dsn); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Store set to %s\n", s.Config.Store.DSN)
				return nil
			}
			return run(cmd, s)
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "Store DSN to save without prompting")
	return cmd
}

func run(cmd *cobra.Command, s *state.State) error {
	sel := selection.New("Where should notes be stored?", initialize.Backends)
	sel.Filter = nil
	backend, err := sel.RunPrompt()
	if err != nil {
		return err
	}

	saved, err := initialize.Run(s.Config, backend)
	if err != nil {
		return err
	}
	if saved {
		fmt.Fprintln(cmd.OutOrStdout(), "Initialization complete!")
	}
	return nil
}
