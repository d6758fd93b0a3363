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

//go:build tinygo && (rp2040 || rp2350)

// Command pico runs a single motor on a Raspberry Pi Pico.
// It sweeps the motor forward & backward, braking in between.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/MotorControl/pkg/hal"
	"github.com/binkynet/MotorControl/pkg/hal/tinygo"
	"github.com/binkynet/MotorControl/pkg/motor"
)

const (
	// GPIO pins of the H-bridge inputs
	pinIn1 = hal.Pin(2)
	pinIn2 = hal.Pin(3)
	pinEn  = hal.Pin(4)
	// RP2040 has 8 slices with 2 channels each
	pwmChannels = 16
	step        = 10
)

func main() {
	ctx := context.Background()
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	board := tinygo.NewBoard()
	drv, err := motor.NewThreePin(ctx, motor.DirDirPWM, pinIn1, pinIn2, pinEn, motor.Dependencies{
		Digital: board,
		PWM:     hal.NewChannelPWM(board, hal.NewChannelAllocator(pwmChannels)),
		Log:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create motor")
	}

	for {
		for _, dir := range []int{1, -1} {
			for speed := 0; speed <= 100; speed += step {
				if err := drv.SetSpeed(ctx, dir*speed); err != nil {
					log.Error().Err(err).Msg("SetSpeed failed")
				}
				time.Sleep(time.Millisecond * 200)
			}
			if err := drv.Brake(ctx); err != nil {
				log.Error().Err(err).Msg("Brake failed")
			}
			time.Sleep(time.Second)
			if err := drv.Stop(ctx); err != nil {
				log.Error().Err(err).Msg("Stop failed")
			}
		}
	}
}
