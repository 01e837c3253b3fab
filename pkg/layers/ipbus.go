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
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// IPbusLayerNum identifies the layer
	IPbusLayerNum = 2001
	// IPbusProtocolVersion must be present in every transaction header
	IPbusProtocolVersion = 2
	// IPbusMaxWords is the largest word count a transaction header can carry
	IPbusMaxWords = 0xfff
	IPbusWordSize = 4
)

// IPbusOpKind is the transaction type field of the header
type IPbusOpKind uint8

const (
	IPbusRead        IPbusOpKind = 0x0
	IPbusWrite       IPbusOpKind = 0x1
	IPbusReadNonInc  IPbusOpKind = 0x2
	IPbusWriteNonInc IPbusOpKind = 0x3
	IPbusRMWBits     IPbusOpKind = 0x4
	IPbusRMWSum      IPbusOpKind = 0x5
	IPbusIdle        IPbusOpKind = 0xf
)

var opKindNames = map[IPbusOpKind]string{
	IPbusRead:        "read",
	IPbusWrite:       "write",
	IPbusReadNonInc:  "non-incrementing read",
	IPbusWriteNonInc: "non-incrementing write",
	IPbusRMWBits:     "read-modify-write bits",
	IPbusRMWSum:      "read-modify-write sum",
	IPbusIdle:        "idle",
}

func (k IPbusOpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown op kind 0x%x", uint8(k))
}

// Valid reports whether the op kind is one the protocol defines
func (k IPbusOpKind) Valid() bool {
	_, ok := opKindNames[k]
	return ok
}

// ReadClass reports whether the reply carries data words for the caller
func (k IPbusOpKind) ReadClass() bool {
	switch k {
	case IPbusRead, IPbusReadNonInc, IPbusRMWBits, IPbusRMWSum:
		return true
	}
	return false
}

// RequestPayloadWords returns the number of words following a request header
func (k IPbusOpKind) RequestPayloadWords(words int) int {
	switch k {
	case IPbusRead, IPbusReadNonInc:
		return 1 // address
	case IPbusWrite, IPbusWriteNonInc:
		return 1 + words // address + data
	case IPbusRMWBits:
		return 3 // address + and term + or term
	case IPbusRMWSum:
		return 2 // address + addend
	}
	return 0
}

// ReplyPayloadWords returns the number of words following a successful reply header
func (k IPbusOpKind) ReplyPayloadWords(words int) int {
	switch k {
	case IPbusRead, IPbusReadNonInc:
		return words
	case IPbusRMWBits, IPbusRMWSum:
		return 1
	}
	return 0
}

// IPbusInfoCode is the status field of the header
type IPbusInfoCode uint8

const (
	IPbusSuccess         IPbusInfoCode = 0x0
	IPbusBadHeader       IPbusInfoCode = 0x1
	IPbusBusErrorRead    IPbusInfoCode = 0x2
	IPbusBusErrorWrite   IPbusInfoCode = 0x3
	IPbusBusTimeoutRead  IPbusInfoCode = 0x4
	IPbusBusTimeoutWrite IPbusInfoCode = 0x5
	IPbusTxOverflow      IPbusInfoCode = 0x6
	IPbusRxUnderflow     IPbusInfoCode = 0x7
	IPbusRequest         IPbusInfoCode = 0xf
)

var infoCodeNames = map[IPbusInfoCode]string{
	IPbusSuccess:         "success",
	IPbusBadHeader:       "bad header",
	IPbusBusErrorRead:    "bus error on read",
	IPbusBusErrorWrite:   "bus error on write",
	IPbusBusTimeoutRead:  "bus timeout on read",
	IPbusBusTimeoutWrite: "bus timeout on write",
	IPbusTxOverflow:      "tx buffer overflow",
	IPbusRxUnderflow:     "rx buffer underflow",
	IPbusRequest:         "request",
}

func (c IPbusInfoCode) String() string {
	if name, ok := infoCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown info code 0x%x", uint8(c))
}

// IPbusHeader is the decoded transaction header word
// version(4) | words(12) | transaction id(8) | op kind(4) | info code(4)
type IPbusHeader struct {
	Version       uint8
	Words         uint16
	TransactionID uint8
	Kind          IPbusOpKind
	InfoCode      IPbusInfoCode
}

// Word packs the header into a 32-bit word
func (h IPbusHeader) Word() uint32 {
	return uint32(h.Version&0xf)<<28 |
		uint32(h.Words&IPbusMaxWords)<<16 |
		uint32(h.TransactionID)<<8 |
		uint32(h.Kind&0xf)<<4 |
		uint32(h.InfoCode&0xf)
}

// EncodeIPbusHeader builds a request header word
func EncodeIPbusHeader(words uint16, kind IPbusOpKind, transactionID uint8) uint32 {
	return IPbusHeader{
		Version:       IPbusProtocolVersion,
		Words:         words,
		TransactionID: transactionID,
		Kind:          kind,
		InfoCode:      IPbusRequest,
	}.Word()
}

// DecodeIPbusHeader unpacks a header word
func DecodeIPbusHeader(word uint32) IPbusHeader {
	return IPbusHeader{
		Version:       uint8(word >> 28),
		Words:         uint16((word >> 16) & IPbusMaxWords),
		TransactionID: uint8(word >> 8),
		Kind:          IPbusOpKind((word >> 4) & 0xf),
		InfoCode:      IPbusInfoCode(word & 0xf),
	}
}

// IPbusTransaction is one transaction of a packet. For requests Address is the
// target address and Payload holds write data or RMW terms, for replies Payload
// holds the returned words.
type IPbusTransaction struct {
	IPbusHeader
	Address uint32
	Payload []uint32
}

// Request reports whether the transaction is an outbound one
func (t *IPbusTransaction) Request() bool {
	return t.InfoCode == IPbusRequest
}

func (t *IPbusTransaction) payloadWords() int {
	if t.Request() {
		return t.Kind.RequestPayloadWords(int(t.Words))
	}
	if t.InfoCode != IPbusSuccess {
		return 0
	}
	return t.Kind.ReplyPayloadWords(int(t.Words))
}

// Len returns the serialized length of the transaction in bytes
func (t *IPbusTransaction) Len() int {
	return IPbusWordSize * (1 + t.payloadWords())
}

// IPbusLayer is a sequence of transactions carried by one datagram.
// Words are big endian on the wire.
type IPbusLayer struct {
	layers.BaseLayer
	Transactions []*IPbusTransaction
}

var IPbusLayerType = gopacket.RegisterLayerType(IPbusLayerNum,
	gopacket.LayerTypeMetadata{Name: "IPbusLayerType", Decoder: gopacket.DecodeFunc(DecodeIPbusLayer)})

// LayerType returns the type of the IPbus layer in the layer catalog
func (ip *IPbusLayer) LayerType() gopacket.LayerType {
	return IPbusLayerType
}

// Len returns the serialized length of all transactions in bytes
func (ip *IPbusLayer) Len() int {
	n := 0
	for _, t := range ip.Transactions {
		n += t.Len()
	}
	return n
}

// Serialize writes all transactions to a buffer which must be at least Len() bytes long
func (ip *IPbusLayer) Serialize(buf []byte) error {
	offset := 0
	for _, t := range ip.Transactions {
		binary.BigEndian.PutUint32(buf[offset:offset+4], t.IPbusHeader.Word())
		offset += 4
		n := t.payloadWords()
		if n == 0 {
			continue
		}
		words := t.Payload
		if t.Request() {
			binary.BigEndian.PutUint32(buf[offset:offset+4], t.Address)
			offset += 4
			n--
		}
		if len(words) != n {
			return ErrIPbusPayload{TransactionID: t.TransactionID, Want: n, Got: len(words)}
		}
		for _, w := range words {
			binary.BigEndian.PutUint32(buf[offset:offset+4], w)
			offset += 4
		}
	}
	return nil
}

// SerializeTo serializes the IPbus transactions into bytes and writes the bytes to the SerializeBuffer
func (ip *IPbusLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(ip.Len())
	if err != nil {
		return err
	}
	return ip.Serialize(bytes)
}

// DecodeFromBytes decodes requests and replies. Payload length of each
// transaction is derived from its header.
func (ip *IPbusLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data)%IPbusWordSize != 0 {
		df.SetTruncated()
		return ErrIPbusTruncated{Offset: len(data) - len(data)%IPbusWordSize, Need: IPbusWordSize}
	}
	ip.BaseLayer = layers.BaseLayer{
		Contents: data,
		Payload:  []byte{},
	}
	ip.Transactions = ip.Transactions[:0]

	offset := 0
	for offset < len(data) {
		t := &IPbusTransaction{
			IPbusHeader: DecodeIPbusHeader(binary.BigEndian.Uint32(data[offset : offset+4])),
		}
		offset += 4
		n := t.payloadWords()
		if offset+n*IPbusWordSize > len(data) {
			df.SetTruncated()
			return ErrIPbusTruncated{Offset: offset, Need: n * IPbusWordSize}
		}
		if t.Request() && n > 0 {
			t.Address = binary.BigEndian.Uint32(data[offset : offset+4])
			offset += 4
			n--
		}
		t.Payload = make([]uint32, n)
		for i := 0; i < n; i++ {
			t.Payload[i] = binary.BigEndian.Uint32(data[offset : offset+4])
			offset += 4
		}
		ip.Transactions = append(ip.Transactions, t)
	}
	return nil
}

func (ip *IPbusLayer) CanDecode() gopacket.LayerClass {
	return IPbusLayerType
}

func (ip *IPbusLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func DecodeIPbusLayer(data []byte, p gopacket.PacketBuilder) error {
	ip := &IPbusLayer{}
	err := ip.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(ip)
	return nil
}

// ErrIPbusTruncated returned when a packet ends in the middle of a transaction
type ErrIPbusTruncated struct {
	Offset int
	Need   int
}

func (e ErrIPbusTruncated) Error() string {
	return fmt.Sprintf("IPbus packet truncated at offset %d: need %d more bytes", e.Offset, e.Need)
}

// ErrIPbusPayload returned when a transaction payload does not match its header
type ErrIPbusPayload struct {
	TransactionID uint8
	Want          int
	Got           int
}

func (e ErrIPbusPayload) Error() string {
	return fmt.Sprintf("IPbus transaction %d: payload has %d words, header requires %d",
		e.TransactionID, e.Got, e.Want)
}
