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
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"jinr.ru/greenlab/go-alpide/pkg/board"
	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/event"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

func mosaicEvent(payload []byte, trailer byte) []byte {
	data := make([]byte, board.MosaicHeaderSize)
	data = append(data, payload...)
	return append(data, trailer)
}

func writeEvents(t *testing.T, path string, events ...[]byte) {
	t.Helper()
	w, err := event.NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		if err := w.WriteEvent(ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(dir, "state.db")
	raw := filepath.Join(dir, "run.raw")
	writeEvents(t, raw,
		mosaicEvent([]byte{0xa0, 0x05, 0xc0, 0x40, 0x10, 0xb0}, 0),
		mosaicEvent([]byte{0xa0, 0x05, 0xc0, 0x40, 0x10, 0x40, 0x10, 0xb0}, 0),
		mosaicEvent([]byte{0xa0, 0x05, 0xc0, 0x40, 0x10, 0xb0}, 0x02),
	)

	out := &bytes.Buffer{}
	opts := &DecodeOptions{
		File:    raw,
		Board:   config.DefaultBoardName,
		Hits:    true,
		Persist: true,
		Dump:    filepath.Join(dir, "copy.raw"),
	}
	stats, err := Decode(context.Background(), cfg, opts, out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if stats.Events != 3 || stats.GoodEvents != 1 || stats.CorruptEvents != 1 || stats.FrameErrors != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if lines := strings.Count(out.String(), "\n"); lines != 3 {
		t.Fatalf("printed %d hits:\n%s", lines, out.String())
	}

	state, err := store.NewState(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()
	stored, err := state.GetStats(config.DefaultBoardName)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Events != 3 || stored.StuckHits != 1 {
		t.Fatalf("stored stats = %+v", stored)
	}
}

func TestDecodeFamilyOverride(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "run.raw")
	writeEvents(t, raw, mosaicEvent([]byte{0xa0, 0x05, 0xc0, 0x40, 0x10, 0xb0}, 0))

	opts := &DecodeOptions{File: raw, Board: "unknown", Family: "daq", FirmwareVersion: "0x257E0610"}
	stats, err := Decode(context.Background(), config.NewDefaultConfig(), opts, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if stats.Events != 1 || stats.FrameErrors != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	opts.FirmwareVersion = "0x1"
	_, err = Decode(context.Background(), config.NewDefaultConfig(), opts, &bytes.Buffer{})
	var unknown board.ErrUnknownFirmware
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownFirmware, got %v", err)
	}
}

func TestDecodeSource(t *testing.T) {
	cfg := config.NewDefaultConfig()
	for _, opts := range []*DecodeOptions{
		{Board: config.DefaultBoardName},
		{Board: config.DefaultBoardName, File: "a", Pcap: "b"},
	} {
		if _, err := Decode(context.Background(), cfg, opts, &bytes.Buffer{}); !errors.Is(err, ErrSource) {
			t.Fatalf("expected ErrSource, got %v", err)
		}
	}
	_, err := Decode(context.Background(), cfg, &DecodeOptions{Board: "nope", File: "a"}, &bytes.Buffer{})
	var notFound config.ErrBoardNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrBoardNotFound, got %v", err)
	}
}
