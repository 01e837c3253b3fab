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

package mosaic

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/ipbus"
	"jinr.ru/greenlab/go-alpide/pkg/layers"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

// memTransport answers single word reads, writes and RMW bits from a map
type memTransport struct {
	regs  map[uint32]uint32
	reply []byte
	fail  layers.IPbusInfoCode
	// replay answers every request with the first reply
	replay bool
	first  []byte
}

func (m *memTransport) Send(data []byte) error {
	req := &layers.IPbusLayer{}
	if err := req.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return err
	}
	reply := &layers.IPbusLayer{}
	for _, t := range req.Transactions {
		r := &layers.IPbusTransaction{IPbusHeader: t.IPbusHeader, Payload: []uint32{}}
		r.InfoCode = m.fail
		if m.fail == layers.IPbusSuccess {
			switch t.Kind {
			case layers.IPbusRead:
				r.Payload = append(r.Payload, m.regs[t.Address])
			case layers.IPbusWrite:
				m.regs[t.Address] = t.Payload[0]
			case layers.IPbusRMWBits:
				r.Payload = append(r.Payload, m.regs[t.Address])
				m.regs[t.Address] = m.regs[t.Address]&t.Payload[0] | t.Payload[1]
			}
		}
		reply.Transactions = append(reply.Transactions, r)
	}
	m.reply = make([]byte, reply.Len())
	if err := reply.Serialize(m.reply); err != nil {
		return err
	}
	if m.first == nil {
		m.first = m.reply
	}
	return nil
}

func (m *memTransport) Receive(buf []byte) (int, error) {
	if m.replay {
		return copy(buf, m.first), nil
	}
	return copy(buf, m.reply), nil
}

// silentTransport never answers
type silentTransport struct{}

func (silentTransport) Send([]byte) error {
	return nil
}

func (silentTransport) Receive([]byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, ipbus.ErrReceiveTimeout
}

func newTestBoard(t *testing.T) (*Board, *memTransport) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "state.db")
	state, err := store.NewState(cfg)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	t.Cleanup(func() { state.Close() })
	transport := &memTransport{regs: map[uint32]uint32{0x4: 0xf0}}
	return NewBoard(config.DefaultBoardName, ipbus.NewEngine(transport, 0), state), transport
}

func TestBoardReadWrite(t *testing.T) {
	b, transport := newTestBoard(t)
	if err := b.WriteRegs([]store.Reg{{Addr: 0x1, Value: 11}, {Addr: 0x2, Value: 22}}); err != nil {
		t.Fatalf("WriteRegs: %v", err)
	}
	if transport.regs[0x2] != 22 {
		t.Fatalf("register not written")
	}
	v, err := b.ReadReg(0x4)
	if err != nil || v != 0xf0 {
		t.Fatalf("ReadReg = 0x%x, %v", v, err)
	}
	regs, err := b.ReadRegs([]uint32{0x1, 0x2})
	if err != nil || regs[0].Value != 11 || regs[1].Value != 22 {
		t.Fatalf("ReadRegs = %+v, %v", regs, err)
	}
	all, err := b.ShadowAll()
	if err != nil || len(all) != 3 {
		t.Fatalf("ShadowAll = %+v, %v", all, err)
	}
}

func TestBoardBits(t *testing.T) {
	b, transport := newTestBoard(t)
	v, err := b.SetBits(0x4, 0x3)
	if err != nil || v != 0xf3 || transport.regs[0x4] != 0xf3 {
		t.Fatalf("SetBits = 0x%x, %v", v, err)
	}
	v, err = b.ClearBits(0x4, 0x30)
	if err != nil || v != 0xc3 || transport.regs[0x4] != 0xc3 {
		t.Fatalf("ClearBits = 0x%x, %v", v, err)
	}
	reg, err := b.ShadowReg(0x4)
	if err != nil || reg.Value != 0xc3 {
		t.Fatalf("ShadowReg = %+v, %v", reg, err)
	}
}

func TestBoardProtocolErrorKeepsShadow(t *testing.T) {
	b, transport := newTestBoard(t)
	if err := b.WriteReg(0x8, 1); err != nil {
		t.Fatalf("WriteReg: %v", err)
	}
	transport.fail = layers.IPbusBusErrorWrite
	var protoErr ipbus.ErrProtocol
	if err := b.WriteReg(0x8, 2); !errors.As(err, &protoErr) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	reg, err := b.ShadowReg(0x8)
	if err != nil || reg.Value != 1 {
		t.Fatalf("shadow changed after failed write: %+v, %v", reg, err)
	}
}

func TestBoardConcurrentReadsFail(t *testing.T) {
	b := NewBoard("x", ipbus.NewEngine(silentTransport{}, 0), nil)
	var mu sync.Mutex
	succeeded := 0
	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(addr uint32) {
				defer wg.Done()
				if _, err := b.ReadReg(addr); !errors.Is(err, ipbus.ErrReceiveTimeout) {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(uint32(i))
		}
		wg.Wait()
	}
	if succeeded != 0 {
		t.Fatalf("%d reads did not report the receive timeout", succeeded)
	}
}

func TestBoardDuplicateReplyKeepsShadow(t *testing.T) {
	b, transport := newTestBoard(t)
	transport.regs[0x10] = 0xabc
	transport.regs[0x20] = 0x55
	if v, err := b.ReadReg(0x10); err != nil || v != 0xabc {
		t.Fatalf("ReadReg = 0x%x, %v", v, err)
	}
	transport.replay = true
	if _, err := b.ReadReg(0x20); !errors.Is(err, ipbus.ErrDuplicateReply) {
		t.Fatalf("expected ErrDuplicateReply, got %v", err)
	}
	var notFound store.ErrRegNotFound
	if _, err := b.ShadowReg(0x20); !errors.As(err, &notFound) {
		t.Fatalf("shadow written from a dropped reply: %v", err)
	}
	if err := b.WriteReg(0x20, 1); !errors.Is(err, ipbus.ErrDuplicateReply) {
		t.Fatalf("expected ErrDuplicateReply, got %v", err)
	}
}

func TestBoardWithoutState(t *testing.T) {
	b := NewBoard("x", ipbus.NewEngine(&memTransport{regs: map[uint32]uint32{}}, 0), nil)
	if _, err := b.ReadReg(0); err != nil {
		t.Fatalf("ReadReg: %v", err)
	}
	var noShadow ErrNoShadow
	if _, err := b.ShadowAll(); !errors.As(err, &noShadow) {
		t.Fatalf("expected ErrNoShadow, got %v", err)
	}
}

func TestDialRejectsDAQBoard(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Boards = append(cfg.Boards, &config.Board{Name: "daq0", Family: config.FamilyDAQ})
	var notMosaic ErrNotMosaic
	if _, _, err := Dial(cfg, "daq0", nil); !errors.As(err, &notMosaic) {
		t.Fatalf("expected ErrNotMosaic, got %v", err)
	}
	var notFound config.ErrBoardNotFound
	if _, _, err := Dial(cfg, "nope", nil); !errors.As(err, &notFound) {
		t.Fatalf("expected ErrBoardNotFound, got %v", err)
	}
}
