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

package reg

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-alpide/pkg/config"
)

const (
	BoardOptionName = "board"
	AddrOptionName  = "addr"
	ValueOptionName = "value"
)

// NewCommand creates the reg command group, registers are accessed
// through the API server
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Read and write board registers",
	}
	cmd.AddCommand(NewReadCommand(cfg))
	cmd.AddCommand(NewWriteCommand(cfg))
	return cmd
}
