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

const (
	MosaicHeaderSize  = 64
	MosaicTrailerSize = 1

	mosaicBlockSizeOffset = 0
	mosaicFlagsOffset     = 4
	mosaicEOECountOffset  = 8
	mosaicChannelOffset   = 12
)

// Block flags of the MOSAIC header
const (
	MosaicFlagOverflow = 1 << 0
	MosaicFlagTimeout  = 1 << 1
	MosaicFlagEndOfRun = 1 << 3
)

// Trailer flags of the MOSAIC frame
const (
	MosaicTrailerHeaderError      = 1 << 0
	MosaicTrailerLinkDecoderError = 1 << 1
)

type MosaicFlags struct {
	BlockSize        uint32
	Channel          uint32
	EOECount         uint32
	Overflow         bool
	Timeout          bool
	EndOfRun         bool
	HeaderError      bool
	LinkDecoderError bool
	Trailer          uint8
}

// DecodeMosaic decodes the 64-byte header and 1-byte trailer of a MOSAIC event.
// A non-zero trailer byte invalidates the frame.
func DecodeMosaic(data []byte) (*FrameInfo, error) {
	if len(data) < MosaicHeaderSize+MosaicTrailerSize {
		return nil, ErrFrameTooShort{Family: FamilyMOSAIC, Need: MosaicHeaderSize + MosaicTrailerSize, Got: len(data)}
	}
	blockFlags := word(data, mosaicFlagsOffset)
	trailer := data[len(data)-1]
	flags := &MosaicFlags{
		BlockSize:        word(data, mosaicBlockSizeOffset),
		Channel:          word(data, mosaicChannelOffset),
		EOECount:         word(data, mosaicEOECountOffset),
		Overflow:         blockFlags&MosaicFlagOverflow != 0,
		Timeout:          blockFlags&MosaicFlagTimeout != 0,
		EndOfRun:         blockFlags&MosaicFlagEndOfRun != 0,
		HeaderError:      trailer&MosaicTrailerHeaderError != 0,
		LinkDecoderError: trailer&MosaicTrailerLinkDecoderError != 0,
		Trailer:          trailer,
	}
	info := &FrameInfo{
		Family:     FamilyMOSAIC,
		HeaderLen:  MosaicHeaderSize,
		TrailerLen: MosaicTrailerSize,
		Mosaic:     flags,
	}
	if trailer != 0 {
		return info, ErrFrameCorrupt{Family: FamilyMOSAIC, Check: "trailer", Offset: len(data) - 1, Word: uint32(trailer)}
	}
	return info, nil
}
