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
	"errors"
	"fmt"

	"jinr.ru/greenlab/go-alpide/pkg/layers"
)

// ErrReceiveTimeout returned by a transport when no reply datagram arrived in time
var ErrReceiveTimeout = errors.New("ipbus: receive timeout")

// ErrDuplicateReply returned by Transact when a reply was a duplicate of the
// last accepted one and was dropped, the operations were not resolved
var ErrDuplicateReply = errors.New("ipbus: duplicate reply dropped")

// ErrProtocol returned when a reply transaction carries a non-success info code
type ErrProtocol struct {
	TransactionID uint8
	Address       uint32
	Code          layers.IPbusInfoCode
}

func (e ErrProtocol) Error() string {
	return fmt.Sprintf("ipbus: transaction %d (address 0x%08x): %s", e.TransactionID, e.Address, e.Code)
}

// ErrMismatch returned when a reply header does not match the queued request
type ErrMismatch struct {
	TransactionID uint8
	Field         string
	Want          uint32
	Got           uint32
}

func (e ErrMismatch) Error() string {
	return fmt.Sprintf("ipbus: transaction %d: %s mismatch: want 0x%x got 0x%x",
		e.TransactionID, e.Field, e.Want, e.Got)
}

// ErrCapacityExceeded returned when a single operation does not fit into one packet
type ErrCapacityExceeded struct {
	Kind   layers.IPbusOpKind
	Size   int
	Budget int
}

func (e ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("ipbus: %s needs %d bytes, packet budget is %d bytes", e.Kind, e.Size, e.Budget)
}

// ErrShortReply returned when the reply datagram ends before all queued transactions are answered
type ErrShortReply struct {
	TransactionID uint8
	Offset        int
	Length        int
}

func (e ErrShortReply) Error() string {
	return fmt.Sprintf("ipbus: reply truncated at transaction %d: offset %d, length %d",
		e.TransactionID, e.Offset, e.Length)
}

// ErrBadOp returned when an operation is malformed before it reaches the wire
type ErrBadOp struct {
	What string
}

func (e ErrBadOp) Error() string {
	return fmt.Sprintf("ipbus: bad operation: %s", e.What)
}
