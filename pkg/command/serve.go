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

	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/event"
	"jinr.ru/greenlab/go-alpide/pkg/log"
	"jinr.ru/greenlab/go-alpide/pkg/mosaic"
	"jinr.ru/greenlab/go-alpide/pkg/srv"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

// ServeOptions configures the optional live readout of the API server
type ServeOptions struct {
	// Listen is the UDP address events are received on, no readout when empty
	Listen   string
	Board    string
	Receiver int
}

// StartServer opens the state database, connects to all configured MOSAIC
// boards and serves the API until the context is done
func StartServer(ctx context.Context, cfg *config.Config, opts *ServeOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state, err := store.NewState(cfg)
	if err != nil {
		return err
	}
	defer state.Close()

	boards := map[string]srv.RegAccess{}
	for _, b := range cfg.Boards {
		if b.Family != config.FamilyMOSAIC {
			continue
		}
		mb, transport, err := mosaic.Dial(cfg, b.Name, state)
		if err != nil {
			return err
		}
		defer transport.Close()
		log.Info("Board %s: IPbus endpoint %s", b.Name, b.Addr())
		boards[b.Name] = mb
	}

	s, err := srv.NewApiServer(ctx, cfg, state, boards)
	if err != nil {
		return err
	}

	readerDone := make(chan error, 1)
	var counter *event.Counter
	if opts != nil && opts.Listen != "" {
		decoder, err := event.NewDecoderForBoard(cfg, opts.Board, opts.Receiver)
		if err != nil {
			return err
		}
		source, err := event.ListenUDP(opts.Listen)
		if err != nil {
			return err
		}
		defer source.Close()
		counter = event.NewCounter()
		s.SetLive(opts.Board, counter)
		reader := &event.Reader{Source: source, Decoder: decoder, Counter: counter}
		go func() {
			readerDone <- reader.Run(ctx)
		}()
	}

	runErr := s.Run()
	cancel()
	if counter != nil {
		if err := <-readerDone; err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event reader: %s", err)
		}
		if err := counter.Persist(state, opts.Board); err != nil {
			log.Error("Error while persisting statistics of board %s: %s", opts.Board, err)
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
