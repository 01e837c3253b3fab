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

package command

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/srv"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

type memBoard map[uint32]uint32

func (b memBoard) ReadReg(addr uint32) (uint32, error) {
	return b[addr], nil
}

func (b memBoard) WriteReg(addr, value uint32) error {
	b[addr] = value
	return nil
}

func (b memBoard) ShadowAll() ([]store.Reg, error) {
	regs := []store.Reg{}
	for addr, value := range b {
		regs = append(regs, store.Reg{Addr: addr, Value: value})
	}
	return regs, nil
}

func newTestClient(t *testing.T) (*ApiClient, *store.State, memBoard) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "state.db")
	state, err := store.NewState(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { state.Close() })
	b := memBoard{0x20: 0x7}
	s, err := srv.NewApiServer(context.Background(), cfg, state, map[string]srv.RegAccess{config.DefaultBoardName: b})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	c := NewApiClient(cfg)
	c.ApiPrefix = ts.URL + "/api"
	return c, state, b
}

func TestClientRegs(t *testing.T) {
	c, _, b := newTestClient(t)
	value, err := c.RegRead(config.DefaultBoardName, "0x20")
	if err != nil || value != "0x7" {
		t.Fatalf("RegRead = %q, %v", value, err)
	}
	if err := c.RegWrite(config.DefaultBoardName, "0x21", "0xff"); err != nil {
		t.Fatalf("RegWrite: %v", err)
	}
	if b[0x21] != 0xff {
		t.Fatalf("register not written: %v", b)
	}
	regs, err := c.RegReadAll(config.DefaultBoardName)
	if err != nil {
		t.Fatalf("RegReadAll: %v", err)
	}
	if len(regs) != 2 || regs["0x21"] != "0xff" {
		t.Fatalf("regs = %v", regs)
	}

	_, err = c.RegRead("nope", "0x20")
	var apiErr ErrApi
	if !errors.As(err, &apiErr) || apiErr.Status != "404 Not Found" {
		t.Fatalf("expected 404 ErrApi, got %v", err)
	}
	if err := c.RegWrite(config.DefaultBoardName, "0x21", "oops"); !errors.As(err, &apiErr) {
		t.Fatalf("expected ErrApi, got %v", err)
	}
}

func TestClientStats(t *testing.T) {
	c, state, _ := newTestClient(t)
	if err := state.AddStats(&store.RunStats{Events: 5, FrameErrors: 2}, config.DefaultBoardName); err != nil {
		t.Fatal(err)
	}
	stats, err := c.Stats(config.DefaultBoardName)
	if err != nil || stats.Events != 5 || stats.FrameErrors != 2 {
		t.Fatalf("Stats = %+v, %v", stats, err)
	}
	if err := c.ResetStats(config.DefaultBoardName); err != nil {
		t.Fatalf("ResetStats: %v", err)
	}
	stats, err = c.Stats(config.DefaultBoardName)
	if err != nil || stats.Events != 0 {
		t.Fatalf("Stats after reset = %+v, %v", stats, err)
	}
}
