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

package ipbus

import (
	"errors"
	"fmt"
	"net"
	"time"

	"jinr.ru/greenlab/go-alpide/pkg/log"
)

const (
	// DefaultPort is the UDP port the board listens on for register transactions
	DefaultPort = 2000
)

// UDPTransport sends batches to one board over a connected UDP socket
type UDPTransport struct {
	conn    *net.UDPConn
	timeout time.Duration
}

var _ Transport = &UDPTransport{}

// DialUDP connects to the board at ip:port. Receive gives up after timeout.
func DialUDP(ip string, port int, timeout time.Duration) (*UDPTransport, error) {
	if port == 0 {
		port = DefaultPort
	}
	log.Debug("Connecting to board with address: %s port: %d", ip, port)
	uaddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, uaddr)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{conn: conn, timeout: timeout}, nil
}

func (t *UDPTransport) Send(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

func (t *UDPTransport) Receive(buf []byte) (int, error) {
	if t.timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return 0, err
		}
	}
	n, err := t.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, ErrReceiveTimeout
		}
		return 0, err
	}
	return n, nil
}

// LocalAddr returns the local address of the socket
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
