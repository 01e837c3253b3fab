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

package ipbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-alpide/pkg/layers"
	"jinr.ru/greenlab/go-alpide/pkg/log"
)

const (
	// DefaultPacketSize is the packet budget of the reference deployment
	DefaultPacketSize = 1400
	receiveBufferSize = 65536
)

// Transport carries one request datagram and one reply datagram per batch
type Transport interface {
	Send(data []byte) error
	// Receive blocks until a datagram arrives or the transport times out
	Receive(buf []byte) (int, error)
}

// Op is one register operation.
// Words is the number of words to read for read class operations.
// Data holds write data, and/or terms for RMW bits or the addend for RMW sum.
// Read data is copied to Dst (or its first word to Result) when the batch
// is executed. Both nil means the data is discarded.
type Op struct {
	Kind    layers.IPbusOpKind
	Address uint32
	Words   int
	Data    []uint32
	Dst     []uint32
	Result  *uint32
}

func (op *Op) headerWords() (int, error) {
	switch op.Kind {
	case layers.IPbusRead, layers.IPbusReadNonInc:
		if op.Words <= 0 {
			return 0, ErrBadOp{What: fmt.Sprintf("%s of %d words", op.Kind, op.Words)}
		}
		if op.Dst != nil && len(op.Dst) < op.Words {
			return 0, ErrBadOp{What: fmt.Sprintf("%s of %d words into buffer of %d", op.Kind, op.Words, len(op.Dst))}
		}
		return op.Words, nil
	case layers.IPbusWrite, layers.IPbusWriteNonInc:
		if len(op.Data) == 0 {
			return 0, ErrBadOp{What: fmt.Sprintf("%s without data", op.Kind)}
		}
		return len(op.Data), nil
	case layers.IPbusRMWBits:
		if len(op.Data) != 2 {
			return 0, ErrBadOp{What: "read-modify-write bits needs and/or terms"}
		}
		return 1, nil
	case layers.IPbusRMWSum:
		if len(op.Data) != 1 {
			return 0, ErrBadOp{What: "read-modify-write sum needs one addend"}
		}
		return 1, nil
	case layers.IPbusIdle:
		return 0, nil
	}
	return 0, ErrBadOp{What: op.Kind.String()}
}

// record is one in-flight transaction of the pending batch
type record struct {
	id      uint8
	kind    layers.IPbusOpKind
	words   uint16
	address uint32
	dst     []uint32
	result  *uint32
	info    layers.IPbusInfoCode
}

// Engine batches operations into one packet, sends it and matches the reply
// against the queued transactions. It is safe for concurrent use, a batch is
// executed atomically with respect to other batches.
type Engine struct {
	mu        sync.Mutex
	transport Transport
	budget    int

	batch    *layers.IPbusLayer
	records  []*record
	outBytes int
	inBytes  int

	nextID       uint8
	lastAccepted uint8
	accepted     bool

	rx []byte
}

// NewEngine creates an engine sending packets of at most packetSize bytes
func NewEngine(transport Transport, packetSize int) *Engine {
	if packetSize <= 0 {
		packetSize = DefaultPacketSize
	}
	return &Engine{
		transport: transport,
		budget:    packetSize,
		batch:     &layers.IPbusLayer{},
		rx:        make([]byte, receiveBufferSize),
	}
}

// Pending returns the number of queued transactions
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}

// LastAccepted returns the transaction id of the first transaction of the
// last accepted reply
func (e *Engine) LastAccepted() (uint8, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccepted, e.accepted
}

// Queue appends an operation to the pending batch. If the operation does not
// fit into the rest of the packet budget the pending batch is executed first.
func (e *Engine) Queue(op Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.queueLocked(op)
	return err
}

// Transact queues ops and executes them under one lock hold, so that no other
// caller can execute or extend the batch in between. Unlike Execute it
// returns ErrDuplicateReply when a batch carrying the ops was dropped as a
// duplicate. On a queueing error the pending batch is dropped unsent.
func (e *Engine) Transact(ops ...Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dropped := false
	for _, op := range ops {
		d, err := e.queueLocked(op)
		if err != nil {
			e.clear()
			return err
		}
		dropped = dropped || d
	}
	err := e.executeLocked()
	if errors.Is(err, ErrDuplicateReply) {
		dropped = true
	} else if err != nil {
		return err
	}
	if dropped {
		return ErrDuplicateReply
	}
	return nil
}

// queueLocked reports whether a flush it made had its reply dropped as a duplicate
func (e *Engine) queueLocked(op Op) (bool, error) {
	words, err := op.headerWords()
	if err != nil {
		return false, err
	}
	if words > layers.IPbusMaxWords {
		return false, ErrCapacityExceeded{Kind: op.Kind, Size: words * layers.IPbusWordSize, Budget: layers.IPbusMaxWords * layers.IPbusWordSize}
	}
	outSize := layers.IPbusWordSize * (1 + op.Kind.RequestPayloadWords(words))
	inSize := layers.IPbusWordSize * (1 + op.Kind.ReplyPayloadWords(words))
	if outSize > e.budget || inSize > e.budget {
		size := outSize
		if inSize > size {
			size = inSize
		}
		return false, ErrCapacityExceeded{Kind: op.Kind, Size: size, Budget: e.budget}
	}
	dropped := false
	if e.outBytes+outSize > e.budget || e.inBytes+inSize > e.budget {
		log.Debug("Packet budget of %d bytes reached, flushing %d transactions", e.budget, len(e.records))
		err := e.executeLocked()
		if errors.Is(err, ErrDuplicateReply) {
			dropped = true
		} else if err != nil {
			return false, err
		}
	}

	if len(e.records) == 0 && e.accepted && e.nextID == e.lastAccepted {
		e.nextID++
	}
	id := e.nextID
	e.nextID++

	t := &layers.IPbusTransaction{
		IPbusHeader: layers.DecodeIPbusHeader(layers.EncodeIPbusHeader(uint16(words), op.Kind, id)),
		Address:     op.Address,
		Payload:     op.Data,
	}
	if op.Kind == layers.IPbusIdle {
		t.Address = 0
	}
	if t.Payload == nil {
		t.Payload = []uint32{}
	}
	e.batch.Transactions = append(e.batch.Transactions, t)
	e.records = append(e.records, &record{
		id:      id,
		kind:    op.Kind,
		words:   uint16(words),
		address: op.Address,
		dst:     op.Dst,
		result:  op.Result,
	})
	e.outBytes += outSize
	e.inBytes += inSize
	return dropped, nil
}

// Execute sends the pending batch and resolves its transactions from the reply.
// On any error the batch is dropped and no read buffer is written. A duplicate
// reply is dropped silently, leaving the transactions unresolved.
func (e *Engine) Execute() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.executeLocked(); !errors.Is(err, ErrDuplicateReply) {
		return err
	}
	return nil
}

func (e *Engine) executeLocked() error {
	if len(e.records) == 0 {
		return nil
	}
	defer e.clear()

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, e.batch); err != nil {
		log.Error("Error while serializing batch of %d transactions", len(e.records))
		return err
	}
	log.Debug("Sending batch of %d transactions, %d bytes", len(e.records), len(buf.Bytes()))
	if err := e.transport.Send(buf.Bytes()); err != nil {
		return fmt.Errorf("ipbus: send: %w", err)
	}
	n, err := e.transport.Receive(e.rx)
	if err != nil {
		return fmt.Errorf("ipbus: receive: %w", err)
	}
	return e.resolve(e.rx[:n])
}

func (e *Engine) clear() {
	e.batch.Transactions = e.batch.Transactions[:0]
	e.records = e.records[:0]
	e.outBytes = 0
	e.inBytes = 0
}

// resolve walks the reply word by word, matching each header to the queued
// record. Read data is copied out only once every record passed its checks.
func (e *Engine) resolve(reply []byte) error {
	first := e.records[0]
	if len(reply) < layers.IPbusWordSize {
		return ErrShortReply{TransactionID: first.id, Offset: 0, Length: len(reply)}
	}
	firstID := layers.DecodeIPbusHeader(binary.BigEndian.Uint32(reply[0:4])).TransactionID
	if e.accepted && firstID == e.lastAccepted {
		log.Debug("Dropping duplicate reply with transaction id %d", firstID)
		return ErrDuplicateReply
	}

	offset := 0
	staged := make([][]uint32, len(e.records))
	for j, r := range e.records {
		if offset+layers.IPbusWordSize > len(reply) {
			return ErrShortReply{TransactionID: r.id, Offset: offset, Length: len(reply)}
		}
		h := layers.DecodeIPbusHeader(binary.BigEndian.Uint32(reply[offset : offset+4]))
		offset += layers.IPbusWordSize
		r.info = h.InfoCode

		if h.Version != layers.IPbusProtocolVersion {
			return ErrMismatch{TransactionID: r.id, Field: "version", Want: layers.IPbusProtocolVersion, Got: uint32(h.Version)}
		}
		if h.TransactionID != r.id {
			return ErrMismatch{TransactionID: r.id, Field: "transaction id", Want: uint32(r.id), Got: uint32(h.TransactionID)}
		}
		if h.Kind != r.kind {
			return ErrMismatch{TransactionID: r.id, Field: "op kind", Want: uint32(r.kind), Got: uint32(h.Kind)}
		}
		if h.InfoCode != layers.IPbusSuccess {
			return ErrProtocol{TransactionID: r.id, Address: r.address, Code: h.InfoCode}
		}
		if h.Words != r.words {
			return ErrMismatch{TransactionID: r.id, Field: "word count", Want: uint32(r.words), Got: uint32(h.Words)}
		}

		n := r.kind.ReplyPayloadWords(int(r.words))
		if offset+n*layers.IPbusWordSize > len(reply) {
			return ErrShortReply{TransactionID: r.id, Offset: offset, Length: len(reply)}
		}
		words := make([]uint32, n)
		for i := range words {
			words[i] = binary.BigEndian.Uint32(reply[offset : offset+4])
			offset += layers.IPbusWordSize
		}
		staged[j] = words
	}
	for j, r := range e.records {
		words := staged[j]
		if r.dst != nil {
			copy(r.dst, words)
		}
		if len(words) > 0 && r.result != nil {
			*r.result = words[0]
		}
	}
	e.lastAccepted = firstID
	e.accepted = true
	return nil
}

// Read queues a single word read
func (e *Engine) Read(addr uint32, result *uint32) error {
	return e.Queue(Op{Kind: layers.IPbusRead, Address: addr, Words: 1, Result: result})
}

// ReadBlock queues an incrementing read of len(dst) words
func (e *Engine) ReadBlock(addr uint32, dst []uint32) error {
	return e.Queue(Op{Kind: layers.IPbusRead, Address: addr, Words: len(dst), Dst: dst})
}

// ReadFIFO queues a non-incrementing read of len(dst) words
func (e *Engine) ReadFIFO(addr uint32, dst []uint32) error {
	return e.Queue(Op{Kind: layers.IPbusReadNonInc, Address: addr, Words: len(dst), Dst: dst})
}

// Write queues a single word write
func (e *Engine) Write(addr uint32, value uint32) error {
	return e.Queue(Op{Kind: layers.IPbusWrite, Address: addr, Data: []uint32{value}})
}

// WriteBlock queues an incrementing write
func (e *Engine) WriteBlock(addr uint32, data []uint32) error {
	return e.Queue(Op{Kind: layers.IPbusWrite, Address: addr, Data: data})
}

// WriteFIFO queues a non-incrementing write
func (e *Engine) WriteFIFO(addr uint32, data []uint32) error {
	return e.Queue(Op{Kind: layers.IPbusWriteNonInc, Address: addr, Data: data})
}

// RMWBits queues reg = (reg & and) | or, result receives the value before modification
func (e *Engine) RMWBits(addr, and, or uint32, result *uint32) error {
	return e.Queue(Op{Kind: layers.IPbusRMWBits, Address: addr, Data: []uint32{and, or}, Result: result})
}

// RMWSum queues reg = reg + addend, result receives the value before modification
func (e *Engine) RMWSum(addr, addend uint32, result *uint32) error {
	return e.Queue(Op{Kind: layers.IPbusRMWSum, Address: addr, Data: []uint32{addend}, Result: result})
}

// Idle queues an idle transaction
func (e *Engine) Idle() error {
	return e.Queue(Op{Kind: layers.IPbusIdle})
}
