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

// Cursor reads words from a chip payload without ever reading past its end
type Cursor struct {
	data []byte
	pos  int
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Offset returns the position of the next unread byte
func (c *Cursor) Offset() int {
	return c.pos
}

func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

func (c *Cursor) Done() bool {
	return c.pos >= len(c.data)
}

// Peek returns the next byte without consuming it
func (c *Cursor) Peek() (byte, error) {
	if c.Done() {
		return 0, ErrOutOfData{Offset: c.pos, Need: 1, Remaining: 0}
	}
	return c.data[c.pos], nil
}

// Next consumes n bytes. The cursor does not move on failure.
func (c *Cursor) Next(n int) ([]byte, error) {
	if c.Remaining() < n {
		return nil, ErrOutOfData{Offset: c.pos, Need: n, Remaining: c.Remaining()}
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}
