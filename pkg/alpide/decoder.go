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

package alpide

import (
	"jinr.ru/greenlab/go-alpide/pkg/log"
)

const (
	// NoChip is the chip id outside of a chip frame
	NoChip = -1
	// NoRegion is the region before the first region header of a chip frame
	NoRegion = -1
)

// DecoderState is the state of the chip stream state machine. It is threaded
// through Step explicitly, nothing carries over between decoded events.
type DecoderState struct {
	Started  bool
	Finished bool
	Corrupt  bool

	ChipID int
	Region int
	// BunchCounter holds the transmitted bits [10:3] of the chip bunch counter
	BunchCounter int
	TrailerFlags int

	// StuckCount counts hits flagged stuck
	StuckCount int

	prev    PixelHit
	hasPrev bool
}

// NewDecoderState returns the state before the first word of an event
func NewDecoderState() DecoderState {
	return DecoderState{ChipID: NoChip, Region: NoRegion}
}

// Success reports whether a complete event without flagged hits was decoded
func (s DecoderState) Success() bool {
	return s.Started && s.Finished && !s.Corrupt
}

// Decoder decodes the chip payload of one board receiver
type Decoder struct {
	Board    int
	Receiver int
}

// Result of decoding one chip payload
type Result struct {
	Hits    []PixelHit
	State   DecoderState
	Success bool
}

// Decode decodes a complete chip payload.
// Unknown words, structural errors and truncated words abort the decode with
// a typed error. A payload without a chip frame returns ErrNotStarted, a
// payload ending inside a chip frame returns ErrNotFinished. An event with
// flagged hits is returned with Success false and no error.
func (d Decoder) Decode(data []byte) (*Result, error) {
	state := NewDecoderState()
	c := NewCursor(data)
	var hits []PixelHit
	var err error
	for !c.Done() {
		state, hits, err = d.Step(state, c, hits)
		if err != nil {
			return &Result{Hits: hits, State: state}, err
		}
	}
	res := &Result{Hits: hits, State: state, Success: state.Success()}
	if !state.Started {
		return res, ErrNotStarted
	}
	if !state.Finished {
		return res, ErrNotFinished
	}
	return res, nil
}

// Step consumes one word from the cursor, appending emitted hits
func (d Decoder) Step(state DecoderState, c *Cursor, hits []PixelHit) (DecoderState, []PixelHit, error) {
	offset := c.Offset()
	b, err := c.Peek()
	if err != nil {
		return state, hits, err
	}
	wt := Classify(b)
	if wt == WordUnknown {
		return state, hits, ErrUnknownWord{Offset: offset, Value: b}
	}
	w, err := c.Next(wt.Len())
	if err != nil {
		return state, hits, err
	}

	switch wt {
	case WordIdle, WordBusyOn, WordBusyOff:
	case WordEmptyFrame:
		state.Started = true
		state.Finished = true
		state.ChipID, state.BunchCounter = decodeChipHeader(w)
		state.Region = NoRegion
		state.hasPrev = false
	case WordChipHeader:
		state.Started = true
		state.Finished = false
		state.ChipID, state.BunchCounter = decodeChipHeader(w)
		state.Region = NoRegion
		state.hasPrev = false
	case WordChipTrailer:
		if !state.Started || state.Finished {
			return state, hits, ErrStructure{Offset: offset, Word: wt, Reason: "chip trailer without chip header"}
		}
		state.TrailerFlags = int(w[0] & 0x0f)
		state.Finished = true
		state.ChipID = NoChip
	case WordRegionHeader:
		if !state.Started {
			return state, hits, ErrStructure{Offset: offset, Word: wt, Reason: "region header before chip header"}
		}
		state.Region = int(w[0] & 0x1f)
	case WordDataShort, WordDataLong:
		if !state.Started {
			return state, hits, ErrStructure{Offset: offset, Word: wt, Reason: "data before chip header"}
		}
		if state.Region == NoRegion {
			log.Debug("Data word at offset %d before region header", offset)
			state.Corrupt = true
		}
		field := (int(w[0])<<8 | int(w[1])) & 0x3fff
		dcol := field >> 10
		addr := field & 0x3ff
		state, hits = d.emit(state, dcol, addr, hits)
		if wt == WordDataLong {
			hitmap := w[2] & 0x7f
			for i := 0; i < 7; i++ {
				if hitmap&(1<<i) != 0 {
					state, hits = d.emit(state, dcol, addr+i+1, hits)
				}
			}
		}
	}
	return state, hits, nil
}

// decodeChipHeader returns the chip id and the transmitted bunch counter bits
func decodeChipHeader(w []byte) (int, int) {
	return int(w[0] & 0x0f), int(w[1])
}

func (d Decoder) emit(state DecoderState, localDcol, addr int, hits []PixelHit) (DecoderState, []PixelHit) {
	hit := PixelHit{
		Board:        d.Board,
		Receiver:     d.Receiver,
		ChipID:       state.ChipID,
		Region:       state.Region,
		DoubleColumn: localDcol,
		Address:      addr,
	}
	if state.Region != NoRegion {
		hit.DoubleColumn = state.Region*16 + localDcol
	}

	if state.ChipID == NoChip || state.ChipID == IllegalChipID {
		log.Warning("Hit with illegal chip id %d on board %d receiver %d", state.ChipID, d.Board, d.Receiver)
		hit.ChipID = 0
		hit.Address = 0
		hit.setFlag(FlagBadChipID)
	}
	hit.validate()

	if hit.Flag == FlagOK && state.hasPrev &&
		state.prev.Region == hit.Region &&
		state.prev.DoubleColumn == hit.DoubleColumn &&
		state.prev.Address >= hit.Address {
		log.Debug("Stuck pixel: %s follows address %d", hit, state.prev.Address)
		hit.Flag = FlagStuck
		state.StuckCount++
	}
	if hit.Flag != FlagOK {
		state.Corrupt = true
	}

	// hits with an invalid field are no reference for address ordering
	if hit.Flag == FlagOK || hit.Flag == FlagStuck {
		state.prev = hit
		state.hasPrev = true
	}
	return state, append(hits, hit)
}
