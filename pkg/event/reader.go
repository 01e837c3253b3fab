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

package event

import (
	"context"
	"errors"
	"io"
	"time"

	"jinr.ru/greenlab/go-alpide/pkg/log"
)

const DefaultPollTimeout = 100 * time.Millisecond

// Reader polls a source, decodes every event and forwards it to the sink.
// Per-event decode failures are counted and reading goes on, events with a
// broken board frame are not forwarded. A sink error ends the run.
type Reader struct {
	Source  Source
	Decoder *Decoder
	Sink    Sink
	Counter *Counter
	// Raw receives every raw event before decoding when set
	Raw         *Writer
	PollTimeout time.Duration
	// MaxEvents stops the run after that many events when not zero
	MaxEvents int
}

// Run reads until the source ends, the context is done or MaxEvents is reached
func (r *Reader) Run(ctx context.Context) error {
	if r.Counter == nil {
		r.Counter = NewCounter()
	}
	timeout := r.PollTimeout
	if timeout == 0 {
		timeout = DefaultPollTimeout
	}

	n := 0
	for r.MaxEvents == 0 || n < r.MaxEvents {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := r.Source.Poll(timeout)
		if errors.Is(err, ErrNoEvent) {
			continue
		}
		if errors.Is(err, io.EOF) {
			log.Debug("Source exhausted after %d events", n)
			return nil
		}
		if err != nil {
			return err
		}
		n++

		if r.Raw != nil {
			if err := r.Raw.WriteEvent(raw); err != nil {
				return err
			}
		}

		ev, decodeErr := r.Decoder.Decode(raw)
		r.Counter.Count(ev, decodeErr)
		if decodeErr != nil {
			log.Debug("Event %d: %s", n, decodeErr)
			var de ErrDecode
			if errors.As(decodeErr, &de) && de.Stage == StageFrame {
				continue
			}
		}
		if r.Sink == nil {
			continue
		}
		if err := r.Sink.HandleEvent(ev.Hits, decodeErr == nil && ev.Success); err != nil {
			return err
		}
	}
	return nil
}
