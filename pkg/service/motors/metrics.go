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

package motors

import (
	"github.com/binkynet/MotorControl/pkg/metrics"
)

const (
	subSystem = "motors"
)

var (
	// Number of motors created
	motorsCreatedTotal = metrics.MustRegisterGauge(subSystem,
		"created_total",
		"Number of motors created")
	// Last commanded speed per motor
	motorSpeedGauge = metrics.MustRegisterGaugeVec(subSystem,
		"speed",
		"Last commanded speed per motor",
		"id")
	// Total number of commands per motor & command
	motorCommandsTotal = metrics.MustRegisterCounterVec(subSystem,
		"commands_total",
		"Total number of commands per motor & command",
		"id", "command")
	// Total number of failed commands per motor
	motorCommandErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"command_errors_total",
		"Total number of failed commands per motor",
		"id")
	// Number of PWM channels handed out per device
	channelsAllocatedGauge = metrics.MustRegisterGaugeVec(subSystem,
		"channels_allocated",
		"Number of PWM channels handed out per device",
		"device")
)
