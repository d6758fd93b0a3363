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

package service

import (
	"github.com/binkynet/MotorControl/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of configuration errors per stage
	configureErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"configure_errors_total",
		"Total number of configuration errors per stage",
		"stage")
	// Total number of initial speeds applied
	initialSpeedsTotal = metrics.MustRegisterCounter(subSystem,
		"initial_speeds_total",
		"Total number of initial speeds applied")
	// 1 when the controller is ready, 0 otherwise
	readyGauge = metrics.MustRegisterGauge(subSystem,
		"ready",
		"1 when the controller is ready, 0 otherwise")
)
