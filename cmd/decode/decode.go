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

package decode

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-alpide/pkg/command"
	"jinr.ru/greenlab/go-alpide/pkg/config"
)

const (
	FileOptionName        = "file"
	PcapOptionName        = "pcap"
	PortOptionName        = "port"
	ListenOptionName      = "listen"
	BoardOptionName       = "board"
	FamilyOptionName      = "family"
	FirmwareOptionName    = "fw"
	HeaderTypeOptionName  = "header-type"
	ReceiverOptionName    = "receiver"
	HitsOptionName        = "hits"
	OnlyFlaggedOptionName = "only-flagged"
	PersistOptionName     = "persist"
	DumpOptionName        = "dump"
	MaxEventsOptionName   = "max-events"
)

const decodeExample = `
Decode a raw dump and print all hits
# go-alpide decode --file run.raw --hits

Decode MOSAIC events captured on port 2001 and store the statistics
# go-alpide decode --pcap run.pcap --port 2001 --persist

Decode DAQ board events with an explicit firmware version
# go-alpide decode --file daq.raw --family daq --fw 0x257E0611 --header-type 1
`

func NewCommand(cfg *config.Config) *cobra.Command {
	opts := &command.DecodeOptions{}
	var port uint
	cmd := &cobra.Command{
		Use:     "decode",
		Short:   "Decode raw events into pixel hits",
		Example: decodeExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0xffff {
				return fmt.Errorf("invalid port: %d", port)
			}
			opts.Port = uint16(port)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			stats, err := command.Decode(ctx, cfg, opts, cmd.OutOrStdout())
			if stats != nil && !opts.Hits {
				data, yamlErr := yaml.Marshal(stats)
				if yamlErr != nil {
					return yamlErr
				}
				cmd.OutOrStdout().Write(data)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.File, FileOptionName, "", "Raw event dump to decode")
	cmd.Flags().StringVar(&opts.Pcap, PcapOptionName, "", "Pcap capture to decode UDP payloads from")
	cmd.Flags().UintVar(&port, PortOptionName, 0, "Only decode pcap datagrams sent to this UDP port")
	cmd.Flags().StringVar(&opts.Listen, ListenOptionName, "", "UDP address to receive events on. E.g. :2001")
	cmd.Flags().StringVar(&opts.Board, BoardOptionName, config.DefaultBoardName, "Board name")
	cmd.Flags().StringVar(&opts.Family, FamilyOptionName, "", "Board family overriding the configured one. Must be one of: mosaic, daq.")
	cmd.Flags().StringVar(&opts.FirmwareVersion, FirmwareOptionName, "", "DAQ board firmware version (hexadecimal)")
	cmd.Flags().IntVar(&opts.HeaderType, HeaderTypeOptionName, 0, "DAQ board header type")
	cmd.Flags().IntVar(&opts.Receiver, ReceiverOptionName, config.DefaultBoardReceiver, "Board receiver index")
	cmd.Flags().BoolVar(&opts.Hits, HitsOptionName, false, "Print decoded hits")
	cmd.Flags().BoolVar(&opts.OnlyFlagged, OnlyFlaggedOptionName, false, "Print only flagged hits")
	cmd.Flags().BoolVar(&opts.Persist, PersistOptionName, false, "Add run statistics to the state database")
	cmd.Flags().StringVar(&opts.Dump, DumpOptionName, "", "Store raw events to this file")
	cmd.Flags().IntVar(&opts.MaxEvents, MaxEventsOptionName, 0, "Stop after this many events")

	return cmd
}
