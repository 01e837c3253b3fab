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

package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-alpide/pkg/command"
	"jinr.ru/greenlab/go-alpide/pkg/config"
)

const (
	AddressOptionName  = "address"
	PortOptionName     = "port"
	ListenOptionName   = "listen"
	BoardOptionName    = "board"
	ReceiverOptionName = "receiver"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var address string
	var port int
	opts := &command.ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.Api.Address = address
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return command.StartServer(ctx, cfg, opts)
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Address to bind. E.g. %s", config.DefaultAPIAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port to bind. E.g. %d", config.DefaultAPIPort))
	cmd.Flags().StringVar(&opts.Listen, ListenOptionName, "", "UDP address to receive events on. No readout if empty")
	cmd.Flags().StringVar(&opts.Board, BoardOptionName, config.DefaultBoardName, "Board the received events come from")
	cmd.Flags().IntVar(&opts.Receiver, ReceiverOptionName, config.DefaultBoardReceiver, "Board receiver index")

	return cmd
}
