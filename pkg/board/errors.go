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

package board

import (
	"fmt"
)

// ErrFrameTooShort returned when a raw event cannot hold the board header and trailer
type ErrFrameTooShort struct {
	Family Family
	Need   int
	Got    int
}

func (e ErrFrameTooShort) Error() string {
	return fmt.Sprintf("%s frame too short: need at least %d bytes, got %d", e.Family, e.Need, e.Got)
}

// ErrFrameCorrupt returned when a header or trailer word fails a consistency check.
// Word is the raw offending word, Offset its byte offset in the event.
type ErrFrameCorrupt struct {
	Family Family
	Check  string
	Offset int
	Word   uint32
}

func (e ErrFrameCorrupt) Error() string {
	return fmt.Sprintf("%s frame corrupt: %s check failed at offset %d (word 0x%08x)",
		e.Family, e.Check, e.Offset, e.Word)
}

// ErrUnknownFirmware returned when no header layout is known for a DAQ board firmware version
type ErrUnknownFirmware struct {
	Version    uint32
	HeaderType int
}

func (e ErrUnknownFirmware) Error() string {
	return fmt.Sprintf("unknown DAQ board firmware version 0x%08x (header type %d)", e.Version, e.HeaderType)
}

// ErrUnknownFamily returned for a board family without a frame decoder
type ErrUnknownFamily struct {
	Name string
}

func (e ErrUnknownFamily) Error() string {
	return fmt.Sprintf("unknown board family: %s", e.Name)
}
