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

package layers

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-alpide/pkg/board"
)

const (
	// MosaicLayerNum identifies the layer
	MosaicLayerNum = 2002
	// DAQBoardLayerNum identifies the layer
	DAQBoardLayerNum = 2003
)

var MosaicLayerType = gopacket.RegisterLayerType(MosaicLayerNum,
	gopacket.LayerTypeMetadata{Name: "MosaicLayerType", Decoder: gopacket.DecodeFunc(DecodeMosaicLayer)})

// DAQ board frames can only be decoded knowing the firmware, so there is no
// packet decoder, use a preconfigured DAQBoardLayer with DecodingLayerParser.
var DAQBoardLayerType = gopacket.RegisterLayerType(DAQBoardLayerNum,
	gopacket.LayerTypeMetadata{Name: "DAQBoardLayerType"})

// MosaicLayer is the board frame of one MOSAIC event. The chip payload is
// the layer payload.
type MosaicLayer struct {
	layers.BaseLayer
	Info *board.FrameInfo
}

func (m *MosaicLayer) LayerType() gopacket.LayerType {
	return MosaicLayerType
}

// DecodeFromBytes decodes the MOSAIC header and trailer. Info is kept when the
// trailer reports an error so that the caller can account the flags.
func (m *MosaicLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	info, err := board.DecodeMosaic(data)
	m.Info = info
	if info == nil {
		df.SetTruncated()
		return err
	}
	m.BaseLayer = layers.BaseLayer{
		Contents: data[:info.HeaderLen],
		Payload:  info.Payload(data),
	}
	return err
}

func (m *MosaicLayer) CanDecode() gopacket.LayerClass {
	return MosaicLayerType
}

func (m *MosaicLayer) NextLayerType() gopacket.LayerType {
	return AlpideLayerType
}

func DecodeMosaicLayer(data []byte, p gopacket.PacketBuilder) error {
	m := &MosaicLayer{}
	err := m.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(m)
	return p.NextDecoder(m.NextLayerType())
}

// DAQBoardLayer is the board frame of one DAQ board event.
// Firmware must be set before decoding.
type DAQBoardLayer struct {
	layers.BaseLayer
	Firmware board.Firmware
	Info     *board.FrameInfo
}

func (d *DAQBoardLayer) LayerType() gopacket.LayerType {
	return DAQBoardLayerType
}

func (d *DAQBoardLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	info, err := board.DecodeDAQ(data, d.Firmware)
	d.Info = info
	if info == nil {
		if _, short := err.(board.ErrFrameTooShort); short {
			df.SetTruncated()
		}
		return err
	}
	d.BaseLayer = layers.BaseLayer{
		Contents: data[:info.HeaderLen],
		Payload:  info.Payload(data),
	}
	return err
}

func (d *DAQBoardLayer) CanDecode() gopacket.LayerClass {
	return DAQBoardLayerType
}

func (d *DAQBoardLayer) NextLayerType() gopacket.LayerType {
	return AlpideLayerType
}
