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

package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/log"
)

const (
	RegBucketPrefix   = "reg_"
	StatsBucketPrefix = "stats_"
	statsKey          = "run"
)

// Reg is the last known value of a board register
type Reg struct {
	Addr  uint32 `json:"addr"`
	Value uint32 `json:"value"`
}

// RunStats accumulates decoding results of one board
type RunStats struct {
	Events        uint64            `json:"events"`
	GoodEvents    uint64            `json:"goodEvents"`
	CorruptEvents uint64            `json:"corruptEvents"`
	FrameErrors   uint64            `json:"frameErrors"`
	ChipErrors    uint64            `json:"chipErrors"`
	Hits          uint64            `json:"hits"`
	StuckHits     uint64            `json:"stuckHits"`
	FlaggedHits   map[string]uint64 `json:"flaggedHits,omitempty"`
	Updated       time.Time         `json:"updated"`
}

// Add merges other into s
func (s *RunStats) Add(other *RunStats) {
	s.Events += other.Events
	s.GoodEvents += other.GoodEvents
	s.CorruptEvents += other.CorruptEvents
	s.FrameErrors += other.FrameErrors
	s.ChipErrors += other.ChipErrors
	s.Hits += other.Hits
	s.StuckHits += other.StuckHits
	for flag, n := range other.FlaggedHits {
		if s.FlaggedHits == nil {
			s.FlaggedHits = map[string]uint64{}
		}
		s.FlaggedHits[flag] += n
	}
	if other.Updated.After(s.Updated) {
		s.Updated = other.Updated
	}
}

// State keeps register shadows and run statistics of all configured boards
type State struct {
	DB *bbolt.DB
}

func NewState(cfg *config.Config) (*State, error) {
	// open state database
	db, err := bbolt.Open(cfg.DBPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	// create buckets in the state database for all boards
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range cfg.Boards {
			for _, name := range []string{regBucket(b.Name), statsBucket(b.Name)} {
				if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &State{DB: db}, nil
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func regBucket(boardName string) string {
	return fmt.Sprintf("%s%s", RegBucketPrefix, boardName)
}

func statsBucket(boardName string) string {
	return fmt.Sprintf("%s%s", StatsBucketPrefix, boardName)
}

func (s *State) Close() error {
	return s.DB.Close()
}

// SetReg stores the value of one register
func (s *State) SetReg(reg Reg, boardName string) error {
	return s.SetRegs([]Reg{reg}, boardName)
}

// SetRegs stores several registers in one transaction
func (s *State) SetRegs(regs []Reg, boardName string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(regBucket(boardName)))
		if b == nil {
			return ErrBucketNotFound{Bucket: regBucket(boardName)}
		}
		for _, reg := range regs {
			log.Debug("Setting register: board: %s addr: 0x%x value: 0x%x", boardName, reg.Addr, reg.Value)
			if err := b.Put(uint32ToByte(reg.Addr), uint32ToByte(reg.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetReg returns the last stored value of a register
func (s *State) GetReg(addr uint32, boardName string) (*Reg, error) {
	log.Debug("Getting register: board: %s addr: 0x%x", boardName, addr)
	var value uint32
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(regBucket(boardName)))
		if b == nil {
			return ErrBucketNotFound{Bucket: regBucket(boardName)}
		}
		valueBytes := b.Get(uint32ToByte(addr))
		if valueBytes == nil {
			return ErrRegNotFound{Board: boardName, Addr: addr}
		}
		value = binary.BigEndian.Uint32(valueBytes)
		return nil
	}); err != nil {
		return nil, err
	}
	return &Reg{Addr: addr, Value: value}, nil
}

// GetRegAll returns all stored registers of a board ordered by address
func (s *State) GetRegAll(boardName string) ([]Reg, error) {
	regs := []Reg{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(regBucket(boardName)))
		if b == nil {
			return ErrBucketNotFound{Bucket: regBucket(boardName)}
		}
		return b.ForEach(func(k, v []byte) error {
			regs = append(regs, Reg{Addr: binary.BigEndian.Uint32(k), Value: binary.BigEndian.Uint32(v)})
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return regs, nil
}

// AddStats merges stats into the stored statistics of a board
func (s *State) AddStats(stats *RunStats, boardName string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statsBucket(boardName)))
		if b == nil {
			return ErrBucketNotFound{Bucket: statsBucket(boardName)}
		}
		total := &RunStats{}
		if data := b.Get([]byte(statsKey)); data != nil {
			if err := json.Unmarshal(data, total); err != nil {
				return err
			}
		}
		total.Add(stats)
		data, err := json.Marshal(total)
		if err != nil {
			return err
		}
		return b.Put([]byte(statsKey), data)
	})
}

// GetStats returns the accumulated statistics of a board
func (s *State) GetStats(boardName string) (*RunStats, error) {
	stats := &RunStats{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statsBucket(boardName)))
		if b == nil {
			return ErrBucketNotFound{Bucket: statsBucket(boardName)}
		}
		if data := b.Get([]byte(statsKey)); data != nil {
			return json.Unmarshal(data, stats)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

// ResetStats drops the accumulated statistics of a board
func (s *State) ResetStats(boardName string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statsBucket(boardName)))
		if b == nil {
			return ErrBucketNotFound{Bucket: statsBucket(boardName)}
		}
		return b.Delete([]byte(statsKey))
	})
}
