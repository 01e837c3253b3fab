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

// Package srv serves the go-alpide HTTP API: register access to MOSAIC boards
// and decoding statistics. The API is described by a swagger document served
// at /swagger.json and rendered at /docs.
package srv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/event"
	"jinr.ru/greenlab/go-alpide/pkg/log"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

// RegAccess is register access to one board
type RegAccess interface {
	ReadReg(addr uint32) (uint32, error)
	WriteReg(addr, value uint32) error
	ShadowAll() ([]store.Reg, error)
}

// RegHex is a register with hexadecimal address and value
type RegHex struct {
	Addr  string `json:"addr"`
	Value string `json:"value"`
}

func NewRegHex(reg store.Reg) RegHex {
	return RegHex{Addr: fmt.Sprintf("0x%x", reg.Addr), Value: fmt.Sprintf("0x%x", reg.Value)}
}

// Reg parses the hexadecimal address and value
func (r RegHex) Reg() (store.Reg, error) {
	addr, err := strconv.ParseUint(r.Addr, 0, 32)
	if err != nil {
		return store.Reg{}, fmt.Errorf("register address %q: %w", r.Addr, err)
	}
	value, err := strconv.ParseUint(r.Value, 0, 32)
	if err != nil {
		return store.Reg{}, fmt.Errorf("register value %q: %w", r.Value, err)
	}
	return store.Reg{Addr: uint32(addr), Value: uint32(value)}, nil
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	state   *store.State
	boards  map[string]RegAccess
	specDoc *loads.Document

	mu   sync.RWMutex
	live map[string]*event.Counter
}

// NewApiServer creates the API server. boards maps board names to register
// access, boards without an entry only serve statistics.
func NewApiServer(ctx context.Context, cfg *config.Config, state *store.State, boards map[string]RegAccess) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.Api.Address, cfg.Api.Port)

	specDoc, err := loads.Analyzed(json.RawMessage(swaggerJSON), "")
	if err != nil {
		return nil, err
	}
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		state:   state,
		boards:  boards,
		specDoc: specDoc,
		live:    map[string]*event.Counter{},
	}
	s.configureRouter()
	return s, nil
}

// SetLive registers the counter of a running readout, its statistics are
// added to the stored ones
func (s *ApiServer) SetLive(boardName string, counter *event.Counter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[boardName] = counter
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("API handler panic: %s", fmt.Sprint(v...))
}

// Handler returns the router wrapped with the swagger document, the docs page,
// request logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	h := middleware.Spec("/", s.specDoc.Raw(), s.Router)
	h = middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     "docs",
		SpecURL:  "/swagger.json",
		Title:    s.specDoc.Spec().Info.Title,
	}, h)
	h = handlers.CombinedLoggingHandler(log.Writer(log.DebugLevel), h)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
}

// Run serves the API until the context is done
func (s *ApiServer) Run() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Api.Address, s.Config.Api.Port)
	log.Info("Starting API server: address: %s", addr)
	httpServer := &http.Server{
		Handler:           s.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()
	select {
	case <-s.Context.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return s.Context.Err()
	case err := <-errChan:
		return err
	}
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/reg/r/{board}/{addr:0x[0-9a-fA-F]{1,8}}", s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/reg/r/{board}", s.handleRegReadAll()).Methods("GET")
	subRouter.HandleFunc("/reg/w/{board}", s.handleRegWrite()).Methods("POST")
	subRouter.HandleFunc("/stats/{board}", s.handleStats()).Methods("GET")
	subRouter.HandleFunc("/stats/{board}", s.handleStatsReset()).Methods("DELETE")
}

func (s *ApiServer) regAccess(w http.ResponseWriter, name string) (RegAccess, bool) {
	b, ok := s.boards[name]
	if !ok {
		http.Error(w, fmt.Sprintf("Board %s not found", name), http.StatusNotFound)
	}
	return b, ok
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: board: %s, addr: %s", vars["board"], vars["addr"])

		addr, err := strconv.ParseUint(vars["addr"], 0, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, ok := s.regAccess(w, vars["board"])
		if !ok {
			return
		}
		value, err := b.ReadReg(uint32(addr))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, NewRegHex(store.Reg{Addr: uint32(addr), Value: value}))
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read all request: board: %s", vars["board"])

		b, ok := s.regAccess(w, vars["board"])
		if !ok {
			return
		}
		regs, err := b.ShadowAll()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		regsHex := []RegHex{}
		for _, reg := range regs {
			regsHex = append(regsHex, NewRegHex(reg))
		}
		writeJSON(w, regsHex)
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling reg write request: board: %s addr: %s value: %s",
			vars["board"], regHex.Addr, regHex.Value)

		reg, err := regHex.Reg()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, ok := s.regAccess(w, vars["board"])
		if !ok {
			return
		}
		if err := b.WriteReg(reg.Addr, reg.Value); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, NewRegHex(reg))
	}
}

func (s *ApiServer) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling stats request: board: %s", vars["board"])

		stats, err := s.state.GetStats(vars["board"])
		var notFound store.ErrBucketNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.mu.RLock()
		counter := s.live[vars["board"]]
		s.mu.RUnlock()
		if counter != nil {
			stats.Add(counter.Stats())
		}
		writeJSON(w, stats)
	}
}

func (s *ApiServer) handleStatsReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling stats reset request: board: %s", vars["board"])

		err := s.state.ResetStats(vars["board"])
		var notFound store.ErrBucketNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]int{"code": http.StatusOK})
	}
}
