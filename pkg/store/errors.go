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
	"fmt"
)

// ErrBucketNotFound returned for a board that has no bucket in the database
type ErrBucketNotFound struct {
	Bucket string
}

func (e ErrBucketNotFound) Error() string {
	return fmt.Sprintf("bucket not found: %s", e.Bucket)
}

// ErrRegNotFound returned when a register was never accessed on a board
type ErrRegNotFound struct {
	Board string
	Addr  uint32
}

func (e ErrRegNotFound) Error() string {
	return fmt.Sprintf("register 0x%08x not found for board %s", e.Addr, e.Board)
}
