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

package board

import (
	"fmt"
)

const (
	DAQWordSize      = 4
	DAQTrailerWords  = 2
	DAQTrailerMarker = 0xbfbfbfbf

	daqHeaderMask  = 0xfffe03bf
	daqHeaderMagic = 0x8

	daqAlmostFullMask  = 0x40
	daqTriggerTypeMask = 0x1c00
	daqBufferDepthMask = 0x1e000
	daqCounterMask     = 0xffffff
)

// Trigger types reported in the DAQ board header
const (
	DAQTriggerInternal = 1
	DAQTriggerExternal = 2
)

type DAQFlags struct {
	AlmostFull      bool
	TriggerType     int
	BufferDepth     int
	EventID         uint64
	Timestamp       uint64
	EventSize       uint32
	StrobeCount     uint32
	ChipBusyCount   uint32
	DAQBusyCount    uint32
	ExtTriggerCount uint32
	// Extra holds header words past the ninth, undecoded
	Extra []uint32
}

type daqLayout struct {
	words int
	// only used by 3-word headers
	eventIDMask   uint32
	timestampMask uint32
}

// daqLayouts maps firmware versions to header layouts
var daqLayouts = map[uint32]daqLayout{
	0x257E030A: {words: 3, eventIDMask: 0x00ffffff, timestampMask: 0x00ffffff},
	0x247E030A: {words: 3, eventIDMask: 0x00ffffff, timestampMask: 0x00ffffff},
	0x257E0602: {words: 3, eventIDMask: 0x7fffffff, timestampMask: 0x7fffffff},
	0x247E0602: {words: 3, eventIDMask: 0x7fffffff, timestampMask: 0x7fffffff},
	0x257E0610: {words: 5},
	0x247E0610: {words: 5},
	0x257E0612: {words: 20},
	0x247E0612: {words: 20},
	0x257E0711: {words: 36},
	0x247E0711: {words: 36},
}

// daqTypedLayouts lists firmware versions shared by two board families,
// told apart by the header type: index 0 for header type 0, 1 otherwise
var daqTypedLayouts = map[uint32][2]daqLayout{
	0x257E0611: {{words: 9}, {words: 12}},
	0x247E0611: {{words: 9}, {words: 12}},
}

func lookupDAQLayout(fw Firmware) (daqLayout, error) {
	if l, ok := daqLayouts[fw.Version]; ok {
		return l, nil
	}
	if l, ok := daqTypedLayouts[fw.Version]; ok {
		if fw.HeaderType == 0 {
			return l[0], nil
		}
		return l[1], nil
	}
	return daqLayout{}, ErrUnknownFirmware{Version: fw.Version, HeaderType: fw.HeaderType}
}

// DAQHeaderWords returns the number of 32-bit header words for a firmware
func DAQHeaderWords(fw Firmware) (int, error) {
	l, err := lookupDAQLayout(fw)
	if err != nil {
		return 0, err
	}
	return l.words, nil
}

// DecodeDAQ decodes the header and trailer of a DAQ board event
func DecodeDAQ(data []byte, fw Firmware) (*FrameInfo, error) {
	layout, err := lookupDAQLayout(fw)
	if err != nil {
		return nil, err
	}
	headerLen := layout.words * DAQWordSize
	trailerLen := DAQTrailerWords * DAQWordSize
	if len(data) < headerLen+trailerLen {
		return nil, ErrFrameTooShort{Family: FamilyDAQ, Need: headerLen + trailerLen, Got: len(data)}
	}

	flags := &DAQFlags{}
	info := &FrameInfo{
		Family:     FamilyDAQ,
		HeaderLen:  headerLen,
		TrailerLen: trailerLen,
		DAQ:        flags,
	}

	if layout.words == 3 {
		decodeLegacyHeader(data, layout, flags)
	} else if err := decodeHeader(data, layout.words, flags); err != nil {
		return info, err
	}

	flags.EventSize = word(data, len(data)-trailerLen)
	if marker := word(data, len(data)-DAQWordSize); marker != DAQTrailerMarker {
		return info, ErrFrameCorrupt{Family: FamilyDAQ, Check: "trailer marker", Offset: len(data) - DAQWordSize, Word: marker}
	}
	return info, nil
}

// decodeLegacyHeader decodes the 3-word header of early board revisions,
// trigger busy and strobe counters share word 2
func decodeLegacyHeader(data []byte, layout daqLayout, flags *DAQFlags) {
	flags.EventID = uint64(word(data, 0) & layout.eventIDMask)
	flags.Timestamp = uint64(word(data, 4) & layout.timestampMask)
	w2 := word(data, 8)
	flags.StrobeCount = w2 & 0xffff
	flags.DAQBusyCount = w2 >> 16
}

func decodeHeader(data []byte, words int, flags *DAQFlags) error {
	w := make([]uint32, words)
	for i := range w {
		w[i] = word(data, i*DAQWordSize)
	}

	if w[0]&daqHeaderMask != daqHeaderMagic {
		return ErrFrameCorrupt{Family: FamilyDAQ, Check: "header word 0", Offset: 0, Word: w[0]}
	}
	for i := 1; i <= 3; i++ {
		if w[i]&0xff000000 != 0 {
			return ErrFrameCorrupt{Family: FamilyDAQ, Check: fmt.Sprintf("header word %d", i), Offset: i * DAQWordSize, Word: w[i]}
		}
	}

	flags.AlmostFull = w[0]&daqAlmostFullMask != 0
	flags.TriggerType = int((w[0] & daqTriggerTypeMask) >> 10)
	flags.BufferDepth = int((w[0] & daqBufferDepthMask) >> 13)
	if flags.TriggerType != DAQTriggerInternal && flags.TriggerType != DAQTriggerExternal {
		return ErrFrameCorrupt{Family: FamilyDAQ, Check: "trigger type", Offset: 0, Word: w[0]}
	}

	flags.EventID = uint64(w[1]&daqCounterMask) | uint64(w[2]&daqCounterMask)<<24
	flags.Timestamp = uint64(w[3]&daqCounterMask) | uint64(w[4]&daqCounterMask)<<24
	if words >= 9 {
		flags.StrobeCount = w[5]
		flags.ChipBusyCount = w[6]
		flags.DAQBusyCount = w[7]
		flags.ExtTriggerCount = w[8]
	}
	if words > 9 {
		flags.Extra = w[9:]
	}
	return nil
}
