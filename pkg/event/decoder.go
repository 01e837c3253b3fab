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
	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-alpide/pkg/alpide"
	"jinr.ru/greenlab/go-alpide/pkg/board"
	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/layers"
)

// Event is one decoded raw event
type Event struct {
	Frame   *board.FrameInfo
	Hits    []alpide.PixelHit
	State   alpide.DecoderState
	Success bool
}

// Decoder decodes raw events of one board receiver. The board frame and the
// chip stream are chained with a gopacket DecodingLayerParser. A Decoder is
// not safe for concurrent use, create one per board receiver.
type Decoder struct {
	Family   board.Family
	Firmware board.Firmware
	Board    int
	Receiver int

	parser  *gopacket.DecodingLayerParser
	mosaic  layers.MosaicLayer
	daq     layers.DAQBoardLayer
	chip    layers.AlpideLayer
	decoded []gopacket.LayerType
}

func NewDecoder(family board.Family, fw board.Firmware, boardIndex, receiver int) (*Decoder, error) {
	d := &Decoder{
		Family:   family,
		Firmware: fw,
		Board:    boardIndex,
		Receiver: receiver,
		decoded:  []gopacket.LayerType{},
	}
	d.chip.Decoder = alpide.Decoder{Board: boardIndex, Receiver: receiver}
	switch family {
	case board.FamilyMOSAIC:
		d.parser = gopacket.NewDecodingLayerParser(layers.MosaicLayerType, &d.mosaic, &d.chip)
	case board.FamilyDAQ:
		if _, err := board.DAQHeaderWords(fw); err != nil {
			return nil, err
		}
		d.daq.Firmware = fw
		d.parser = gopacket.NewDecodingLayerParser(layers.DAQBoardLayerType, &d.daq, &d.chip)
	default:
		return nil, board.ErrUnknownFamily{Name: family.String()}
	}
	return d, nil
}

// NewDecoderForBoard creates a decoder for a configured board. boardIndex is
// the position of the board in the configuration.
func NewDecoderForBoard(cfg *config.Config, name string, receiver int) (*Decoder, error) {
	for i, b := range cfg.Boards {
		if b.Name != name {
			continue
		}
		family, err := board.ParseFamily(b.Family)
		if err != nil {
			return nil, err
		}
		version, err := b.Firmware()
		if err != nil {
			return nil, err
		}
		return NewDecoder(family, board.Firmware{Version: version, HeaderType: b.HeaderType}, i, receiver)
	}
	return nil, config.ErrBoardNotFound{Name: name}
}

func (d *Decoder) frame() *board.FrameInfo {
	if d.Family == board.FamilyDAQ {
		return d.daq.Info
	}
	return d.mosaic.Info
}

func (d *Decoder) decodedChip() bool {
	for _, t := range d.decoded {
		if t == layers.AlpideLayerType {
			return true
		}
	}
	return false
}

// Decode decodes one raw event. Errors are ErrDecode values telling which
// stage failed. A returned Event carries whatever was decoded before the
// failure, it is nil only if the board frame could not be located at all.
func (d *Decoder) Decode(raw []byte) (*Event, error) {
	d.mosaic.Info = nil
	d.daq.Info = nil
	d.chip.Result = nil

	err := d.parser.DecodeLayers(raw, &d.decoded)
	frame := d.frame()
	if frame == nil {
		return nil, ErrDecode{Stage: StageFrame, Err: err}
	}
	ev := &Event{Frame: frame}
	if d.chip.Result == nil {
		if err != nil {
			return ev, ErrDecode{Stage: StageFrame, Err: err}
		}
		// empty chip payload, the parser stops before the chip layer
		if !d.decodedChip() {
			err = d.chip.DecodeFromBytes(frame.Payload(raw), gopacket.NilDecodeFeedback)
		}
	}
	if res := d.chip.Result; res != nil {
		ev.Hits = res.Hits
		ev.State = res.State
		ev.Success = res.Success
	}
	if err != nil {
		ev.Success = false
		return ev, ErrDecode{Stage: StageChip, Err: err}
	}
	return ev, nil
}
