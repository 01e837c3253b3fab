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

// WordType is the type of a chip data stream word, given by its first byte
type WordType uint8

const (
	WordUnknown WordType = iota
	WordIdle
	WordBusyOn
	WordBusyOff
	WordChipHeader
	WordChipTrailer
	WordEmptyFrame
	WordRegionHeader
	WordDataShort
	WordDataLong
)

// First byte markers
const (
	markerIdle    = 0xff
	markerBusyOn  = 0xf1
	markerBusyOff = 0xf0

	markerChipHeader   = 0xa0
	markerChipTrailer  = 0xb0
	markerEmptyFrame   = 0xe0
	markerRegionHeader = 0xc0
	markerDataShort    = 0x40
	markerDataLong     = 0x00
)

// Readout flags carried by the chip trailer
const (
	TrailerBusyTransition    = 0x1
	TrailerStrobeExtended    = 0x2
	TrailerFlushedIncomplete = 0x4
	TrailerBusyViolation     = 0x8
)

type wordInfo struct {
	name string
	len  int
}

var words = map[WordType]wordInfo{
	WordIdle:         {"idle", 1},
	WordBusyOn:       {"busy-on", 1},
	WordBusyOff:      {"busy-off", 1},
	WordChipHeader:   {"chip-header", 2},
	WordChipTrailer:  {"chip-trailer", 1},
	WordEmptyFrame:   {"empty-frame", 2},
	WordRegionHeader: {"region-header", 1},
	WordDataShort:    {"data-short", 2},
	WordDataLong:     {"data-long", 3},
}

func (w WordType) String() string {
	if info, ok := words[w]; ok {
		return info.name
	}
	return "unknown"
}

// Len returns the length of the word in bytes, 0 for unknown words
func (w WordType) Len() int {
	return words[w].len
}

// Classify returns the type of the word starting with b
func Classify(b byte) WordType {
	switch b {
	case markerIdle:
		return WordIdle
	case markerBusyOn:
		return WordBusyOn
	case markerBusyOff:
		return WordBusyOff
	}
	switch b & 0xf0 {
	case markerChipHeader:
		return WordChipHeader
	case markerChipTrailer:
		return WordChipTrailer
	case markerEmptyFrame:
		return WordEmptyFrame
	}
	if b&0xe0 == markerRegionHeader {
		return WordRegionHeader
	}
	switch b & 0xc0 {
	case markerDataShort:
		return WordDataShort
	case markerDataLong:
		return WordDataLong
	}
	return WordUnknown
}
