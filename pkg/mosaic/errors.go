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
	"fmt"
)

// ErrNotMosaic returned when register access is requested for a board of another family
type ErrNotMosaic struct {
	Name   string
	Family string
}

func (e ErrNotMosaic) Error() string {
	return fmt.Sprintf("board %s is not a MOSAIC board: family %s", e.Name, e.Family)
}

// ErrNoShadow returned when a board was created without state database
type ErrNoShadow struct {
	Name string
}

func (e ErrNoShadow) Error() string {
	return fmt.Sprintf("no register shadow for board %s", e.Name)
}
