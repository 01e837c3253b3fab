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
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"jinr.ru/greenlab/go-alpide/pkg/log"
)

// MaxEventSize limits the length prefix accepted by FileSource
const MaxEventSize = 16 * 1024 * 1024

// Source delivers raw events. Poll blocks up to timeout and returns either a
// complete event or ErrNoEvent. A finite source returns io.EOF at its end.
type Source interface {
	Poll(timeout time.Duration) ([]byte, error)
}

// FileSource reads events stored by Writer
type FileSource struct {
	file *os.File
	r    *bufio.Reader
}

var _ Source = &FileSource{}

func OpenFile(filename string) (*FileSource, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	return &FileSource{file: file, r: bufio.NewReader(file)}, nil
}

func (s *FileSource) Poll(time.Duration) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(s.r, prefix[:]); err != nil {
		// a partial prefix is reported as io.ErrUnexpectedEOF
		return nil, err
	}
	size := binary.LittleEndian.Uint32(prefix[:])
	if size > MaxEventSize {
		return nil, ErrEventTooLarge{Size: size, Limit: MaxEventSize}
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(s.r, data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

func (s *FileSource) Close() error {
	return s.file.Close()
}

// PcapSource replays UDP payloads from a capture file, one payload per event.
// When Port is not zero only datagrams sent to that port are taken.
type PcapSource struct {
	Port   uint16
	file   *os.File
	reader *pcapgo.Reader
	parser *gopacket.DecodingLayerParser
	eth    layers.Ethernet
	ip4    layers.IPv4
	ip6    layers.IPv6
	udp    layers.UDP
	pl     gopacket.Payload
}

var _ Source = &PcapSource{}

func OpenPcap(filename string, port uint16) (*PcapSource, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	reader, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	s := &PcapSource{Port: port, file: file, reader: reader}
	first := reader.LinkType().LayerType()
	s.parser = gopacket.NewDecodingLayerParser(first, &s.eth, &s.ip4, &s.ip6, &s.udp, &s.pl)
	s.parser.IgnoreUnsupported = true
	return s, nil
}

func (s *PcapSource) Poll(time.Duration) ([]byte, error) {
	decoded := []gopacket.LayerType{}
	for {
		data, _, err := s.reader.ReadPacketData()
		if err != nil {
			return nil, err
		}
		if err := s.parser.DecodeLayers(data, &decoded); err != nil {
			log.Debug("Skipping undecodable packet: %s", err)
			continue
		}
		if !hasUDP(decoded) || (s.Port != 0 && uint16(s.udp.DstPort) != s.Port) {
			continue
		}
		event := make([]byte, len(s.udp.Payload))
		copy(event, s.udp.Payload)
		return event, nil
	}
}

func hasUDP(decoded []gopacket.LayerType) bool {
	for _, t := range decoded {
		if t == layers.LayerTypeUDP {
			return true
		}
	}
	return false
}

func (s *PcapSource) Close() error {
	return s.file.Close()
}

// UDPSource receives one event per datagram
type UDPSource struct {
	conn *net.UDPConn
	buf  []byte
}

var _ Source = &UDPSource{}

func ListenUDP(addr string) (*UDPSource, error) {
	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", uaddr)
	if err != nil {
		return nil, err
	}
	log.Info("Listening for events on %s", conn.LocalAddr())
	return &UDPSource{conn: conn, buf: make([]byte, 65536)}, nil
}

func (s *UDPSource) Poll(timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}
	n, _, err := s.conn.ReadFromUDP(s.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrNoEvent
		}
		return nil, err
	}
	event := make([]byte, n)
	copy(event, s.buf[:n])
	return event, nil
}

// LocalAddr returns the address the source listens on
func (s *UDPSource) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSource) Close() error {
	return s.conn.Close()
}
