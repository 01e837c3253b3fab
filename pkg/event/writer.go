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
	"bufio"
	"encoding/binary"
	"os"

	"jinr.ru/greenlab/go-alpide/pkg/log"
)

// Writer stores raw events to a file, each prefixed with its length
// as a 4-byte little endian word
type Writer struct {
	file *os.File
	buf  *bufio.Writer
}

func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		log.Error("Error while creating file: %s", filename)
		return nil, err
	}
	return &Writer{
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// WriteEvent appends one raw event
func (w *Writer) WriteEvent(data []byte) error {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.buf.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.buf.Write(data)
	return err
}

// Close flushes buffered events and closes the file
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
