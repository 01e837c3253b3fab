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
	"errors"
	"fmt"
)

var (
	// ErrNotStarted returned when a payload has no chip header or empty frame
	ErrNotStarted = errors.New("alpide: event not started")
	// ErrNotFinished returned when a payload ends inside a chip frame
	ErrNotFinished = errors.New("alpide: event not finished")
)

// ErrOutOfData returned when a word runs past the end of the payload
type ErrOutOfData struct {
	Offset    int
	Need      int
	Remaining int
}

func (e ErrOutOfData) Error() string {
	return fmt.Sprintf("alpide: out of data at offset %d: need %d bytes, %d remaining", e.Offset, e.Need, e.Remaining)
}

// ErrUnknownWord returned for a byte that starts no known word
type ErrUnknownWord struct {
	Offset int
	Value  byte
}

func (e ErrUnknownWord) Error() string {
	return fmt.Sprintf("alpide: unknown word 0x%02x at offset %d", e.Value, e.Offset)
}

// ErrStructure returned when a word appears where the chip frame does not allow it
type ErrStructure struct {
	Offset int
	Word   WordType
	Reason string
}

func (e ErrStructure) Error() string {
	return fmt.Sprintf("alpide: %s at offset %d: %s", e.Word, e.Offset, e.Reason)
}
