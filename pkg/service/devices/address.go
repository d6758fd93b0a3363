// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package devices

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseAddress parses a string containing a numeric 7-bit I2C address.
func parseAddress(addr string) (uint8, error) {
	base := 10
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		addr = addr[2:]
		base = 16
	}
	result, err := strconv.ParseUint(addr, base, 8)
	if err != nil {
		return 0, errors.Wrapf(InvalidAddressError, "'%s': %s", addr, err)
	}
	if result > 0x7f {
		return 0, errors.Wrapf(InvalidAddressError, "0x%x is not a 7-bit address", result)
	}
	return uint8(result), nil
}
