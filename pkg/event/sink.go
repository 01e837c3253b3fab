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
	"fmt"
	"io"

	"jinr.ru/greenlab/go-alpide/pkg/alpide"
)

// Sink consumes the hits of every decoded event together with its verdict
type Sink interface {
	HandleEvent(hits []alpide.PixelHit, ok bool) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(hits []alpide.PixelHit, ok bool) error

func (f SinkFunc) HandleEvent(hits []alpide.PixelHit, ok bool) error {
	return f(hits, ok)
}

// PrintSink writes one line per hit
type PrintSink struct {
	Out io.Writer
	// OnlyFlagged skips hits flagged ok
	OnlyFlagged bool
	events      int
}

func (p *PrintSink) HandleEvent(hits []alpide.PixelHit, ok bool) error {
	p.events++
	for _, h := range hits {
		if p.OnlyFlagged && h.Flag == alpide.FlagOK {
			continue
		}
		if _, err := fmt.Fprintf(p.Out, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%t\n", p.events,
			h.Board, h.Receiver, h.ChipID, h.Region, h.DoubleColumn, h.Address, h.Flag, ok); err != nil {
			return err
		}
	}
	return nil
}
