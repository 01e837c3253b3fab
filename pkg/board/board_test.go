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
	"encoding/binary"
	"errors"
	"testing"
)

func mosaicEvent(flags, channel uint32, payload []byte, trailer byte) []byte {
	data := make([]byte, MosaicHeaderSize, MosaicHeaderSize+len(payload)+1)
	binary.LittleEndian.PutUint32(data[0:], uint32(len(payload)+1))
	binary.LittleEndian.PutUint32(data[4:], flags)
	binary.LittleEndian.PutUint32(data[8:], 1)
	binary.LittleEndian.PutUint32(data[12:], channel)
	data = append(data, payload...)
	return append(data, trailer)
}

func TestDecodeMosaic(t *testing.T) {
	payload := []byte{0xa0, 0x05, 0xc0, 0x40, 0x10, 0xb0}
	data := mosaicEvent(MosaicFlagTimeout|MosaicFlagEndOfRun, 3, payload, 0)
	info, err := DecodeMosaic(data)
	if err != nil {
		t.Fatalf("DecodeMosaic: %v", err)
	}
	f := info.Mosaic
	if f.Channel != 3 || f.EOECount != 1 || f.BlockSize != 7 {
		t.Fatalf("unexpected header fields %+v", f)
	}
	if f.Overflow || !f.Timeout || !f.EndOfRun || f.HeaderError || f.LinkDecoderError {
		t.Fatalf("unexpected flags %+v", f)
	}
	if got := info.Payload(data); string(got) != string(payload) {
		t.Fatalf("payload = % x", got)
	}
}

func TestDecodeMosaicTrailer(t *testing.T) {
	tests := []struct {
		trailer    byte
		headerErr  bool
		decoderErr bool
	}{
		{0x01, true, false},
		{0x02, false, true},
		{0x03, true, true},
		{0x80, false, false},
	}
	for _, tt := range tests {
		data := mosaicEvent(0, 0, []byte{0xff}, tt.trailer)
		info, err := DecodeMosaic(data)
		var corrupt ErrFrameCorrupt
		if !errors.As(err, &corrupt) || corrupt.Word != uint32(tt.trailer) {
			t.Fatalf("trailer 0x%02x: expected ErrFrameCorrupt, got %v", tt.trailer, err)
		}
		if info == nil || info.Mosaic.HeaderError != tt.headerErr || info.Mosaic.LinkDecoderError != tt.decoderErr {
			t.Fatalf("trailer 0x%02x: flags %+v", tt.trailer, info.Mosaic)
		}
	}
}

func TestDecodeMosaicTooShort(t *testing.T) {
	var short ErrFrameTooShort
	if _, err := DecodeMosaic(make([]byte, 64)); !errors.As(err, &short) || short.Need != 65 {
		t.Fatalf("expected ErrFrameTooShort, got %v", err)
	}
}

func daqEvent(header []uint32, payload []byte, marker uint32) []byte {
	data := make([]byte, 0, 4*len(header)+len(payload)+8)
	for _, w := range header {
		data = binary.LittleEndian.AppendUint32(data, w)
	}
	data = append(data, payload...)
	data = binary.LittleEndian.AppendUint32(data, uint32(4*len(header)+len(payload)+8))
	return binary.LittleEndian.AppendUint32(data, marker)
}

func TestDecodeDAQ(t *testing.T) {
	// almost full, external trigger, buffer depth 3
	w0 := uint32(0x8 | 0x40 | 2<<10 | 3<<13)
	header := []uint32{w0, 0x000001, 0x000002, 0x000010, 0x000020, 100, 5, 6, 7}
	payload := []byte{0xe0, 0x01}
	data := daqEvent(header, payload, DAQTrailerMarker)

	info, err := DecodeDAQ(data, Firmware{Version: 0x257E0611, HeaderType: 0})
	if err != nil {
		t.Fatalf("DecodeDAQ: %v", err)
	}
	f := info.DAQ
	if info.HeaderLen != 36 || info.TrailerLen != 8 {
		t.Fatalf("header %d trailer %d", info.HeaderLen, info.TrailerLen)
	}
	if !f.AlmostFull || f.TriggerType != DAQTriggerExternal || f.BufferDepth != 3 {
		t.Fatalf("unexpected word 0 fields %+v", f)
	}
	if f.EventID != 1|2<<24 || f.Timestamp != 0x10|0x20<<24 {
		t.Fatalf("event id 0x%x timestamp 0x%x", f.EventID, f.Timestamp)
	}
	if f.StrobeCount != 100 || f.ChipBusyCount != 5 || f.DAQBusyCount != 6 || f.ExtTriggerCount != 7 {
		t.Fatalf("unexpected counters %+v", f)
	}
	if f.EventSize != uint32(len(data)) {
		t.Fatalf("event size %d", f.EventSize)
	}
	if got := info.Payload(data); string(got) != string(payload) {
		t.Fatalf("payload = % x", got)
	}
}

func TestDecodeDAQHeaderLayouts(t *testing.T) {
	tests := []struct {
		fw    Firmware
		words int
	}{
		{Firmware{Version: 0x257E030A}, 3},
		{Firmware{Version: 0x247E0602}, 3},
		{Firmware{Version: 0x257E0610}, 5},
		{Firmware{Version: 0x247E0611, HeaderType: 0}, 9},
		{Firmware{Version: 0x247E0611, HeaderType: 1}, 12},
		{Firmware{Version: 0x257E0612}, 20},
		{Firmware{Version: 0x257E0711}, 36},
	}
	for _, tt := range tests {
		words, err := DAQHeaderWords(tt.fw)
		if err != nil || words != tt.words {
			t.Fatalf("%08x/%d: got %d words, %v", tt.fw.Version, tt.fw.HeaderType, words, err)
		}
	}
	var unknown ErrUnknownFirmware
	if _, err := DAQHeaderWords(Firmware{Version: 0x1}); !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownFirmware, got %v", err)
	}
}

func TestDecodeDAQExtraWords(t *testing.T) {
	header := []uint32{0x8 | 1<<10, 1, 0, 0, 0, 0, 0, 0, 0, 0xa, 0xb, 0xc}
	data := daqEvent(header, nil, DAQTrailerMarker)
	info, err := DecodeDAQ(data, Firmware{Version: 0x257E0611, HeaderType: 1})
	if err != nil {
		t.Fatalf("DecodeDAQ: %v", err)
	}
	if len(info.DAQ.Extra) != 3 || info.DAQ.Extra[2] != 0xc {
		t.Fatalf("extra = %v", info.DAQ.Extra)
	}
}

func TestDecodeDAQLegacy(t *testing.T) {
	header := []uint32{0xff123456, 0xff000010, 0x00070009}
	info, err := DecodeDAQ(daqEvent(header, nil, DAQTrailerMarker), Firmware{Version: 0x257E030A})
	if err != nil {
		t.Fatalf("DecodeDAQ: %v", err)
	}
	f := info.DAQ
	if f.EventID != 0x123456 || f.Timestamp != 0x10 || f.StrobeCount != 9 || f.DAQBusyCount != 7 {
		t.Fatalf("unexpected legacy fields %+v", f)
	}
}

func TestDecodeDAQConsistency(t *testing.T) {
	good := uint32(0x8 | 1<<10)
	tests := []struct {
		name   string
		header []uint32
		marker uint32
		check  string
		word   uint32
	}{
		{"magic", []uint32{0x9 | 1<<10, 0, 0, 0, 0}, DAQTrailerMarker, "header word 0", 0x9 | 1<<10},
		{"word 2 top byte", []uint32{good, 0, 0x01000000, 0, 0}, DAQTrailerMarker, "header word 2", 0x01000000},
		{"trigger type", []uint32{0x8 | 3<<10, 0, 0, 0, 0}, DAQTrailerMarker, "trigger type", 0x8 | 3<<10},
		{"trailer", []uint32{good, 0, 0, 0, 0}, 0xbfbfbfbe, "trailer marker", 0xbfbfbfbe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDAQ(daqEvent(tt.header, nil, tt.marker), Firmware{Version: 0x257E0610})
			var corrupt ErrFrameCorrupt
			if !errors.As(err, &corrupt) {
				t.Fatalf("expected ErrFrameCorrupt, got %v", err)
			}
			if corrupt.Check != tt.check || corrupt.Word != tt.word {
				t.Fatalf("got %+v", corrupt)
			}
		})
	}
}

func TestDecodeFamily(t *testing.T) {
	f, err := ParseFamily("daq")
	if err != nil || f != FamilyDAQ {
		t.Fatalf("ParseFamily(daq) = %v, %v", f, err)
	}
	if _, err := ParseFamily("usb"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
	if _, err := Decode(Family(9), nil, Firmware{}); err == nil {
		t.Fatalf("expected error for unknown family")
	}
	if _, err := Decode(FamilyMOSAIC, mosaicEvent(0, 0, nil, 0), Firmware{}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}
