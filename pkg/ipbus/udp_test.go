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
	"net"
	"testing"
	"time"
)

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUDPTransportRoundTrip(t *testing.T) {
	server := listenLoopback(t)
	board := newFakeBoard()
	board.mem[0x40] = 0x1234
	go func() {
		buf := make([]byte, receiveBufferSize)
		for {
			n, addr, err := server.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if err := board.Send(buf[:n]); err != nil {
				return
			}
			if _, err := server.WriteToUDP(board.reply, addr); err != nil {
				return
			}
		}
	}()

	port := server.LocalAddr().(*net.UDPAddr).Port
	transport, err := DialUDP("127.0.0.1", port, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer transport.Close()

	e := NewEngine(transport, 0)
	var v uint32
	if err := e.Write(0x41, 5); err != nil {
		t.Fatal(err)
	}
	if err := e.Read(0x40, &v); err != nil {
		t.Fatal(err)
	}
	if err := e.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v != 0x1234 {
		t.Fatalf("read 0x%x", v)
	}
}

func TestUDPTransportTimeout(t *testing.T) {
	server := listenLoopback(t)
	port := server.LocalAddr().(*net.UDPAddr).Port
	transport, err := DialUDP("127.0.0.1", port, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer transport.Close()

	e := NewEngine(transport, 0)
	_ = e.Idle()
	if err := e.Execute(); !errors.Is(err, ErrReceiveTimeout) {
		t.Fatalf("expected ErrReceiveTimeout, got %v", err)
	}
}
