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

package alpide

import (
	"fmt"
)

const (
	MaxRegion       = 31
	MaxDoubleColumn = 511
	MaxAddress      = 1023
	// IllegalChipID is reserved and never assigned to a chip
	IllegalChipID = 15
)

// HitFlag is the quality flag of a decoded hit
type HitFlag uint8

const (
	FlagOK HitFlag = iota
	FlagBadChipID
	FlagBadRegion
	FlagBadDoubleColumn
	FlagBadAddress
	FlagStuck
	FlagUnknown
)

// HitFlags lists all flags in priority order
var HitFlags = []HitFlag{FlagOK, FlagBadChipID, FlagBadRegion, FlagBadDoubleColumn, FlagBadAddress, FlagStuck, FlagUnknown}

var flagNames = map[HitFlag]string{
	FlagOK:              "ok",
	FlagBadChipID:       "bad-chip-id",
	FlagBadRegion:       "bad-region-id",
	FlagBadDoubleColumn: "bad-dcol-id",
	FlagBadAddress:      "bad-address",
	FlagStuck:           "stuck",
	FlagUnknown:         "unknown",
}

func (f HitFlag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	return fmt.Sprintf("flag(%d)", uint8(f))
}

// PixelHit is one responding pixel. Board is an index into the caller's board table.
type PixelHit struct {
	Board        int
	Receiver     int
	ChipID       int
	Region       int
	DoubleColumn int
	Address      int
	Flag         HitFlag
}

func (h PixelHit) String() string {
	return fmt.Sprintf("board %d rcv %d chip %d region %d dcol %d addr %d (%s)",
		h.Board, h.Receiver, h.ChipID, h.Region, h.DoubleColumn, h.Address, h.Flag)
}

// setFlag keeps the first flag assigned to a hit
func (h *PixelHit) setFlag(f HitFlag) {
	if h.Flag == FlagOK {
		h.Flag = f
	}
}

// validate flags the first violated bound in priority order
func (h *PixelHit) validate() {
	if h.Region < 0 || h.Region > MaxRegion {
		h.setFlag(FlagBadRegion)
	}
	if h.DoubleColumn < 0 || h.DoubleColumn > MaxDoubleColumn {
		h.setFlag(FlagBadDoubleColumn)
	}
	if h.Address < 0 || h.Address > MaxAddress {
		h.setFlag(FlagBadAddress)
	}
}
