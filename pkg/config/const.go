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
	"time"
)

const (
	ConfigDir  = ".go-alpide"
	ConfigFile = "config"
	DBFile     = "go-alpide.db"

	DefaultLogLevel   = "info"
	DefaultAPIAddress = "127.0.0.1"
	DefaultAPIPort    = 8010

	// DefaultPacketSize is the IPbus packet budget of the MOSAIC firmware in bytes
	DefaultPacketSize = 1400
	DefaultTimeout    = 1 * time.Second
	DefaultIPbusPort  = 2000

	DefaultBoardName     = "mosaic0"
	DefaultBoardIP       = "192.168.168.250"
	DefaultBoardFamily   = FamilyMOSAIC
	DefaultBoardReceiver = 0
)

const (
	FamilyMOSAIC = "mosaic"
	FamilyDAQ    = "daq"
)
