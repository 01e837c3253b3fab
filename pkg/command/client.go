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
	"fmt"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-alpide/pkg/config"
	"jinr.ru/greenlab/go-alpide/pkg/srv"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.Api.Address, cfg.Api.Port),
	}
}

func (c *ApiClient) regReadUrl(board, addr string) string {
	if addr == "" {
		return fmt.Sprintf("%s/reg/r/%s", c.ApiPrefix, board)
	}
	return fmt.Sprintf("%s/reg/r/%s/%s", c.ApiPrefix, board, addr)
}

func (c *ApiClient) regWriteUrl(board string) string {
	return fmt.Sprintf("%s/reg/w/%s", c.ApiPrefix, board)
}

func (c *ApiClient) statsUrl(board string) string {
	return fmt.Sprintf("%s/stats/%s", c.ApiPrefix, board)
}

func checkStatus(r *req.Resp) error {
	resp := r.Response()
	if resp.StatusCode != 200 {
		return ErrApi{Status: resp.Status, Message: strings.TrimSpace(r.String())}
	}
	return nil
}

// RegRead sends request to read a register of a board
func (c *ApiClient) RegRead(board, addr string) (string, error) {
	r, err := req.Get(c.regReadUrl(board, addr))
	if err != nil {
		return "", err
	}
	if err := checkStatus(r); err != nil {
		return "", err
	}
	reg := &srv.RegHex{}
	if err := r.ToJSON(reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll sends request to get the register shadow of a board
func (c *ApiClient) RegReadAll(board string) (map[string]string, error) {
	r, err := req.Get(c.regReadUrl(board, ""))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	var regs []*srv.RegHex
	if err := r.ToJSON(&regs); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	for _, reg := range regs {
		result[reg.Addr] = reg.Value
	}
	return result, nil
}

// RegWrite sends request to write a value to a register of a board
func (c *ApiClient) RegWrite(board, addr, value string) error {
	reg := &srv.RegHex{
		Addr:  addr,
		Value: value,
	}
	r, err := req.Post(c.regWriteUrl(board), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// Stats sends request to get decoding statistics of a board
func (c *ApiClient) Stats(board string) (*store.RunStats, error) {
	r, err := req.Get(c.statsUrl(board))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	stats := &store.RunStats{}
	if err := r.ToJSON(stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// ResetStats sends request to drop stored statistics of a board
func (c *ApiClient) ResetStats(board string) error {
	r, err := req.Delete(c.statsUrl(board))
	if err != nil {
		return err
	}
	return checkStatus(r)
}
