/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package stats

import (
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-alpide/pkg/command"
	"jinr.ru/greenlab/go-alpide/pkg/config"
)

const (
	BoardOptionName = "board"
	ResetOptionName = "reset"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var board string
	var reset bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show decoding statistics of a board",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			if reset {
				return apiClient.ResetStats(board)
			}
			stats, err := apiClient.Stats(board)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(stats)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&board, BoardOptionName, config.DefaultBoardName, "Board name")
	cmd.Flags().BoolVar(&reset, ResetOptionName, false, "Drop the stored statistics")

	return cmd
}
