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
)

// Family is the readout board family an event was produced by
type Family uint8

const (
	FamilyMOSAIC Family = iota + 1
	FamilyDAQ
)

var familyNames = map[Family]string{
	FamilyMOSAIC: "mosaic",
	FamilyDAQ:    "daq",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFamily converts a configuration name into a family
func ParseFamily(name string) (Family, error) {
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return 0, ErrUnknownFamily{Name: name}
}

// Firmware identifies the header layout of DAQ board events.
// It is ignored for MOSAIC events.
type Firmware struct {
	Version    uint32
	HeaderType int
}

// FrameInfo is the result of decoding the board frame of one event.
// Exactly one of Mosaic and DAQ is set, according to Family.
type FrameInfo struct {
	Family     Family
	HeaderLen  int
	TrailerLen int
	Mosaic     *MosaicFlags
	DAQ        *DAQFlags
}

// Payload returns the chip payload enclosed by the board header and trailer
func (f *FrameInfo) Payload(data []byte) []byte {
	if len(data) < f.HeaderLen+f.TrailerLen {
		return nil
	}
	return data[f.HeaderLen : len(data)-f.TrailerLen]
}

// Decode strips the board frame of one raw event. On a consistency failure
// both the partially decoded info and the error are returned.
func Decode(family Family, data []byte, fw Firmware) (*FrameInfo, error) {
	switch family {
	case FamilyMOSAIC:
		return DecodeMosaic(data)
	case FamilyDAQ:
		return DecodeDAQ(data, fw)
	}
	return nil, ErrUnknownFamily{Name: family.String()}
}

// word reads the 32-bit word at offset, bytes combined little endian
func word(data []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(data[offset : offset+4])
}
