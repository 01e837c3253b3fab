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

package config

import (
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sigs.k8s.io/yaml"
)

type ApiConfig struct {
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
}

type IPbusConfig struct {
	// PacketSize is the maximum size of an outbound or inbound packet in bytes
	PacketSize int `json:"packetSize,omitempty"`
	// Timeout is a Go duration string, e.g. 500ms
	Timeout string `json:"timeout,omitempty"`
}

type Board struct {
	Name   string `json:"name"`
	Family string `json:"family"`
	IP     string `json:"ip,omitempty"`
	Port   int    `json:"port,omitempty"`
	// FirmwareVersion is a hex string, only used by the DAQ board
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	HeaderType      int    `json:"headerType,omitempty"`
	Receivers       []int  `json:"receivers,omitempty"`
}

// Firmware parses the FirmwareVersion string
func (b *Board) Firmware() (uint32, error) {
	if b.FirmwareVersion == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(b.FirmwareVersion, 0, 32)
	if err != nil {
		return 0, ErrInvalidConfig{What: fmt.Sprintf("board %s: firmware version %q", b.Name, b.FirmwareVersion)}
	}
	return uint32(v), nil
}

// Addr returns ip:port of the IPbus endpoint of the board
func (b *Board) Addr() string {
	port := b.Port
	if port == 0 {
		port = DefaultIPbusPort
	}
	return fmt.Sprintf("%s:%d", b.IP, port)
}

type Config struct {
	LogLevel string       `json:"logLevel,omitempty"`
	DBPath   string       `json:"dbPath,omitempty"`
	Api      *ApiConfig   `json:"api,omitempty"`
	IPbus    *IPbusConfig `json:"ipbus,omitempty"`
	Boards   []*Board     `json:"boards"`
	filepath string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file. Missing file is not an error,
// defaults are kept in that case.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Validate() error {
	if c.IPbus != nil {
		if c.IPbus.PacketSize != 0 && c.IPbus.PacketSize < 8 {
			return ErrInvalidConfig{What: fmt.Sprintf("ipbus packet size too small: %d", c.IPbus.PacketSize)}
		}
		if c.IPbus.Timeout != "" {
			if _, err := time.ParseDuration(c.IPbus.Timeout); err != nil {
				return ErrInvalidConfig{What: fmt.Sprintf("ipbus timeout: %s", err)}
			}
		}
	}
	names := make(map[string]bool)
	for _, b := range c.Boards {
		if b.Name == "" {
			return ErrInvalidConfig{What: "board without name"}
		}
		if names[b.Name] {
			return ErrInvalidConfig{What: fmt.Sprintf("duplicated board name: %s", b.Name)}
		}
		names[b.Name] = true
		switch b.Family {
		case FamilyMOSAIC:
			if net.ParseIP(b.IP) == nil {
				return ErrInvalidConfig{What: fmt.Sprintf("board %s: invalid ip %q", b.Name, b.IP)}
			}
		case FamilyDAQ:
			if _, err := b.Firmware(); err != nil {
				return err
			}
		default:
			return ErrInvalidConfig{What: fmt.Sprintf("board %s: unknown family %q", b.Name, b.Family)}
		}
	}
	return nil
}

func (c *Config) GetBoardByName(name string) (*Board, error) {
	for _, b := range c.Boards {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, ErrBoardNotFound{Name: name}
}

// PacketSize returns the configured IPbus packet budget or the default one
func (c *Config) PacketSize() int {
	if c.IPbus == nil || c.IPbus.PacketSize == 0 {
		return DefaultPacketSize
	}
	return c.IPbus.PacketSize
}

// Timeout returns the configured IPbus reply timeout or the default one
func (c *Config) Timeout() time.Duration {
	if c.IPbus == nil || c.IPbus.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.IPbus.Timeout)
	if err != nil {
		return DefaultTimeout
	}
	return d
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		DBPath:   DefaultDBPath(),
		Api: &ApiConfig{
			Address: DefaultAPIAddress,
			Port:    DefaultAPIPort,
		},
		IPbus: &IPbusConfig{
			PacketSize: DefaultPacketSize,
			Timeout:    DefaultTimeout.String(),
		},
		Boards: []*Board{
			{
				Name:      DefaultBoardName,
				Family:    DefaultBoardFamily,
				IP:        DefaultBoardIP,
				Port:      DefaultIPbusPort,
				Receivers: []int{DefaultBoardReceiver},
			},
		},
		filepath: DefaultConfigPath(),
	}
}
