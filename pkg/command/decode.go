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

package command

import (
	"context"
	"errors"
	"io"
	"strconv"

	"jinr.ru/greenlab/go-alpide/pkg/board"
	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/event"
	"jinr.ru/greenlab/go-alpide/pkg/log"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

// DecodeOptions selects the event source and the board the events come from
type DecodeOptions struct {
	File   string
	Pcap   string
	Port   uint16
	Listen string

	Board string
	// Family, FirmwareVersion and HeaderType override the configured board
	Family          string
	FirmwareVersion string
	HeaderType      int
	Receiver        int

	// Hits prints decoded hits to the output, OnlyFlagged restricts them to flagged ones
	Hits        bool
	OnlyFlagged bool
	// Persist adds the statistics of the run to the state database
	Persist   bool
	Dump      string
	MaxEvents int
}

type closer interface {
	Close() error
}

func openSource(opts *DecodeOptions) (event.Source, closer, error) {
	n := 0
	for _, s := range []string{opts.File, opts.Pcap, opts.Listen} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return nil, nil, ErrSource
	}
	switch {
	case opts.File != "":
		s, err := event.OpenFile(opts.File)
		return s, s, err
	case opts.Pcap != "":
		s, err := event.OpenPcap(opts.Pcap, opts.Port)
		return s, s, err
	default:
		s, err := event.ListenUDP(opts.Listen)
		return s, s, err
	}
}

func newDecoder(cfg *config.Config, opts *DecodeOptions) (*event.Decoder, error) {
	if opts.Family == "" {
		return event.NewDecoderForBoard(cfg, opts.Board, opts.Receiver)
	}
	family, err := board.ParseFamily(opts.Family)
	if err != nil {
		return nil, err
	}
	fw := board.Firmware{HeaderType: opts.HeaderType}
	if opts.FirmwareVersion != "" {
		v, err := strconv.ParseUint(opts.FirmwareVersion, 0, 32)
		if err != nil {
			return nil, config.ErrInvalidConfig{What: "firmware version " + opts.FirmwareVersion}
		}
		fw.Version = uint32(v)
	}
	index := 0
	for i, b := range cfg.Boards {
		if b.Name == opts.Board {
			index = i
		}
	}
	return event.NewDecoder(family, fw, index, opts.Receiver)
}

// Decode reads events from the selected source until it ends, the context is
// done or MaxEvents is reached and returns the statistics of the run
func Decode(ctx context.Context, cfg *config.Config, opts *DecodeOptions, out io.Writer) (*store.RunStats, error) {
	decoder, err := newDecoder(cfg, opts)
	if err != nil {
		return nil, err
	}
	source, c, err := openSource(opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	reader := &event.Reader{
		Source:    source,
		Decoder:   decoder,
		Counter:   event.NewCounter(),
		MaxEvents: opts.MaxEvents,
	}
	if opts.Hits {
		reader.Sink = &event.PrintSink{Out: out, OnlyFlagged: opts.OnlyFlagged}
	}
	if opts.Dump != "" {
		w, err := event.NewWriter(opts.Dump)
		if err != nil {
			return nil, err
		}
		defer w.Close()
		reader.Raw = w
	}

	runErr := reader.Run(ctx)
	stats := reader.Counter.Stats()
	log.Info("Decoded %d events: good: %d corrupt: %d frame errors: %d chip errors: %d",
		stats.Events, stats.GoodEvents, stats.CorruptEvents, stats.FrameErrors, stats.ChipErrors)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return stats, runErr
	}
	if opts.Persist {
		state, err := store.NewState(cfg)
		if err != nil {
			return stats, err
		}
		defer state.Close()
		if err := reader.Counter.Persist(state, opts.Board); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
