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

	"jinr.ru/greenlab/go-alpide/pkg/alpide"
)

const (
	// AlpideLayerNum identifies the layer
	AlpideLayerNum = 2004
)

var AlpideLayerType = gopacket.RegisterLayerType(AlpideLayerNum,
	gopacket.LayerTypeMetadata{Name: "AlpideLayerType", Decoder: gopacket.DecodeFunc(DecodeAlpideLayer)})

// AlpideLayer is the chip payload of one event. Decoder tells which board and
// receiver the hits are assigned to.
type AlpideLayer struct {
	layers.BaseLayer
	Decoder alpide.Decoder
	Result  *alpide.Result
}

func (a *AlpideLayer) LayerType() gopacket.LayerType {
	return AlpideLayerType
}

// DecodeFromBytes decodes the chip stream. Result is kept on error.
func (a *AlpideLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	a.BaseLayer = layers.BaseLayer{
		Contents: data,
		Payload:  []byte{},
	}
	res, err := a.Decoder.Decode(data)
	a.Result = res
	if _, ood := err.(alpide.ErrOutOfData); ood {
		df.SetTruncated()
	}
	return err
}

func (a *AlpideLayer) CanDecode() gopacket.LayerClass {
	return AlpideLayerType
}

func (a *AlpideLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func DecodeAlpideLayer(data []byte, p gopacket.PacketBuilder) error {
	a := &AlpideLayer{}
	err := a.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(a)
	return nil
}
