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
	"errors"
	"reflect"
	"testing"

	"github.com/google/gopacket"
)

func TestIPbusHeaderRoundTrip(t *testing.T) {
	kinds := []IPbusOpKind{IPbusRead, IPbusWrite, IPbusReadNonInc, IPbusWriteNonInc, IPbusRMWBits, IPbusRMWSum, IPbusIdle}
	codes := []IPbusInfoCode{IPbusSuccess, IPbusBadHeader, IPbusBusErrorRead, IPbusBusErrorWrite,
		IPbusBusTimeoutRead, IPbusBusTimeoutWrite, IPbusTxOverflow, IPbusRxUnderflow, IPbusRequest}
	words := []uint16{0, 1, 2, 0x155, 0x800, IPbusMaxWords}
	ids := []uint8{0, 1, 0x7f, 0x80, 0xfe, 0xff}

	for _, kind := range kinds {
		for _, code := range codes {
			for _, w := range words {
				for _, id := range ids {
					h := IPbusHeader{
						Version:       IPbusProtocolVersion,
						Words:         w,
						TransactionID: id,
						Kind:          kind,
						InfoCode:      code,
					}
					if got := DecodeIPbusHeader(h.Word()); got != h {
						t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
					}
				}
			}
		}
	}
}

func TestEncodeIPbusHeader(t *testing.T) {
	word := EncodeIPbusHeader(3, IPbusWrite, 0x42)
	if word != 0x2003421f {
		t.Fatalf("EncodeIPbusHeader = 0x%08x, want 0x2003421f", word)
	}
	h := DecodeIPbusHeader(word)
	if h.InfoCode != IPbusRequest || h.Version != IPbusProtocolVersion {
		t.Fatalf("unexpected header %+v", h)
	}
}

func TestIPbusLayerRequestRoundTrip(t *testing.T) {
	in := &IPbusLayer{
		Transactions: []*IPbusTransaction{
			{IPbusHeader: DecodeIPbusHeader(EncodeIPbusHeader(2, IPbusRead, 1)), Address: 0x100, Payload: []uint32{}},
			{IPbusHeader: DecodeIPbusHeader(EncodeIPbusHeader(2, IPbusWrite, 2)), Address: 0x200, Payload: []uint32{7, 8}},
			{IPbusHeader: DecodeIPbusHeader(EncodeIPbusHeader(1, IPbusRMWBits, 3)), Address: 0x300, Payload: []uint32{0xff00, 0x1}},
			{IPbusHeader: DecodeIPbusHeader(EncodeIPbusHeader(1, IPbusRMWSum, 4)), Address: 0x400, Payload: []uint32{5}},
			{IPbusHeader: DecodeIPbusHeader(EncodeIPbusHeader(0, IPbusIdle, 5)), Payload: []uint32{}},
		},
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, in); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if len(buf.Bytes()) != in.Len() || in.Len() != 4*(2+4+4+3+1) {
		t.Fatalf("unexpected length %d", len(buf.Bytes()))
	}

	packet := gopacket.NewPacket(buf.Bytes(), IPbusLayerType, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		t.Fatalf("decode: %v", errLayer.Error())
	}
	out := packet.Layer(IPbusLayerType).(*IPbusLayer)
	if len(out.Transactions) != len(in.Transactions) {
		t.Fatalf("got %d transactions", len(out.Transactions))
	}
	for i := range in.Transactions {
		if !reflect.DeepEqual(in.Transactions[i], out.Transactions[i]) {
			t.Fatalf("transaction %d: got %+v want %+v", i, out.Transactions[i], in.Transactions[i])
		}
	}
}

func TestIPbusLayerReply(t *testing.T) {
	reply := &IPbusLayer{
		Transactions: []*IPbusTransaction{
			{IPbusHeader: IPbusHeader{Version: 2, Words: 3, TransactionID: 9, Kind: IPbusRead}, Payload: []uint32{1, 2, 3}},
			{IPbusHeader: IPbusHeader{Version: 2, Words: 1, TransactionID: 10, Kind: IPbusWrite}, Payload: []uint32{}},
			{IPbusHeader: IPbusHeader{Version: 2, Words: 4, TransactionID: 11, Kind: IPbusRead, InfoCode: IPbusBusErrorRead}, Payload: []uint32{}},
		},
	}
	data := make([]byte, reply.Len())
	if err := reply.Serialize(data); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if len(data) != 4*(4+1+1) {
		t.Fatalf("reply length %d", len(data))
	}
	decoded := &IPbusLayer{}
	if err := decoded.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded.Transactions, reply.Transactions) {
		t.Fatalf("reply mismatch")
	}
}

func TestIPbusLayerTruncated(t *testing.T) {
	word := EncodeIPbusHeader(2, IPbusWrite, 1)
	data := []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word), 0, 0, 0, 1}
	var truncated ErrIPbusTruncated
	err := (&IPbusLayer{}).DecodeFromBytes(data, gopacket.NilDecodeFeedback)
	if !errors.As(err, &truncated) || truncated.Offset != 4 {
		t.Fatalf("expected ErrIPbusTruncated at 4, got %v", err)
	}
}

func TestIPbusLayerPayloadMismatch(t *testing.T) {
	l := &IPbusLayer{Transactions: []*IPbusTransaction{
		{IPbusHeader: DecodeIPbusHeader(EncodeIPbusHeader(2, IPbusWrite, 1)), Address: 1, Payload: []uint32{1}},
	}}
	var payloadErr ErrIPbusPayload
	if err := l.Serialize(make([]byte, 64)); !errors.As(err, &payloadErr) {
		t.Fatalf("expected ErrIPbusPayload, got %v", err)
	}
}

func TestIPbusOpKind(t *testing.T) {
	if !IPbusRMWSum.ReadClass() || IPbusWrite.ReadClass() || IPbusIdle.ReadClass() {
		t.Fatalf("ReadClass is wrong")
	}
	if IPbusOpKind(0x9).Valid() {
		t.Fatalf("0x9 must not be valid")
	}
	if IPbusBusTimeoutWrite.String() != "bus timeout on write" {
		t.Fatalf("String() = %s", IPbusBusTimeoutWrite)
	}
}
