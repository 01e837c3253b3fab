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
	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/ipbus"
	"jinr.ru/greenlab/go-alpide/pkg/layers"
	"jinr.ru/greenlab/go-alpide/pkg/log"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

// Board gives register access to one MOSAIC board. Every successful access
// updates the register shadow in the state database.
type Board struct {
	Name   string
	engine *ipbus.Engine
	state  *store.State
}

// NewBoard wraps an engine. state may be nil, then no shadow is kept.
func NewBoard(name string, engine *ipbus.Engine, state *store.State) *Board {
	return &Board{Name: name, engine: engine, state: state}
}

// Dial connects to a configured board over UDP
func Dial(cfg *config.Config, name string, state *store.State) (*Board, *ipbus.UDPTransport, error) {
	b, err := cfg.GetBoardByName(name)
	if err != nil {
		return nil, nil, err
	}
	if b.Family != config.FamilyMOSAIC {
		return nil, nil, ErrNotMosaic{Name: name, Family: b.Family}
	}
	transport, err := ipbus.DialUDP(b.IP, b.Port, cfg.Timeout())
	if err != nil {
		return nil, nil, err
	}
	return NewBoard(name, ipbus.NewEngine(transport, cfg.PacketSize()), state), transport, nil
}

func (b *Board) shadow(regs ...store.Reg) {
	if b.state == nil {
		return
	}
	if err := b.state.SetRegs(regs, b.Name); err != nil {
		log.Warning("Unable to update register shadow of board %s: %s", b.Name, err)
	}
}

// ReadReg reads one register. A reply dropped as a duplicate is reported as
// ipbus.ErrDuplicateReply and leaves the shadow untouched.
func (b *Board) ReadReg(addr uint32) (uint32, error) {
	var value uint32
	if err := b.engine.Transact(ipbus.Op{Kind: layers.IPbusRead, Address: addr, Words: 1, Result: &value}); err != nil {
		return 0, err
	}
	b.shadow(store.Reg{Addr: addr, Value: value})
	return value, nil
}

// ReadRegs reads several registers, batching as many as fit into one packet
func (b *Board) ReadRegs(addrs []uint32) ([]store.Reg, error) {
	regs := make([]store.Reg, len(addrs))
	ops := make([]ipbus.Op, len(addrs))
	for i, addr := range addrs {
		regs[i].Addr = addr
		ops[i] = ipbus.Op{Kind: layers.IPbusRead, Address: addr, Words: 1, Result: &regs[i].Value}
	}
	if err := b.engine.Transact(ops...); err != nil {
		return nil, err
	}
	b.shadow(regs...)
	return regs, nil
}

// WriteReg writes one register
func (b *Board) WriteReg(addr, value uint32) error {
	return b.WriteRegs([]store.Reg{{Addr: addr, Value: value}})
}

// WriteRegs writes several registers in as few packets as possible
func (b *Board) WriteRegs(regs []store.Reg) error {
	ops := make([]ipbus.Op, len(regs))
	for i, reg := range regs {
		ops[i] = ipbus.Op{Kind: layers.IPbusWrite, Address: reg.Addr, Data: []uint32{reg.Value}}
	}
	if err := b.engine.Transact(ops...); err != nil {
		return err
	}
	b.shadow(regs...)
	return nil
}

// SetBits sets mask bits of a register, returns the new value
func (b *Board) SetBits(addr, mask uint32) (uint32, error) {
	return b.rmwBits(addr, ^mask, mask)
}

// ClearBits clears mask bits of a register, returns the new value
func (b *Board) ClearBits(addr, mask uint32) (uint32, error) {
	return b.rmwBits(addr, ^mask, 0)
}

func (b *Board) rmwBits(addr, and, or uint32) (uint32, error) {
	var old uint32
	op := ipbus.Op{Kind: layers.IPbusRMWBits, Address: addr, Data: []uint32{and, or}, Result: &old}
	if err := b.engine.Transact(op); err != nil {
		return 0, err
	}
	value := old&and | or
	b.shadow(store.Reg{Addr: addr, Value: value})
	return value, nil
}

// ShadowReg returns the last known value of a register without board access
func (b *Board) ShadowReg(addr uint32) (*store.Reg, error) {
	if b.state == nil {
		return nil, ErrNoShadow{Name: b.Name}
	}
	return b.state.GetReg(addr, b.Name)
}

// ShadowAll returns all known registers without board access
func (b *Board) ShadowAll() ([]store.Reg, error) {
	if b.state == nil {
		return nil, ErrNoShadow{Name: b.Name}
	}
	return b.state.GetRegAll(b.Name)
}
