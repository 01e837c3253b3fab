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

package event

import (
	"errors"
	"fmt"
)

// ErrNoEvent returned by a source when nothing arrived within the poll timeout
var ErrNoEvent = errors.New("event: no event")

// Stage of the pipeline an event failed in
type Stage string

const (
	StageFrame Stage = "frame"
	StageChip  Stage = "chip"
)

// ErrDecode wraps an error of the board frame or chip stream decoder
type ErrDecode struct {
	Stage Stage
	Err   error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("%s decode failed: %s", e.Stage, e.Err)
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}

// ErrEventTooLarge returned when a length prefix exceeds the event size limit
type ErrEventTooLarge struct {
	Size  uint32
	Limit uint32
}

func (e ErrEventTooLarge) Error() string {
	return fmt.Sprintf("event of %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
}
