//    Copyright 2017-2025 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/environment"
	"github.com/binkynet/MotorControl/pkg/logging"
	"github.com/binkynet/MotorControl/pkg/server"
	"github.com/binkynet/MotorControl/pkg/service"
	"github.com/binkynet/MotorControl/pkg/service/bridge"
	"github.com/binkynet/MotorControl/pkg/ui"
)

const (
	projectName       = "BinkyNet Motor Control"
	defaultServerPort = 7130
	defaultConfigPath = "motors.yaml"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var logFile string
	var configPath string
	var serverHost string
	var serverPort int
	var bridgeType string
	var showUI bool
	var speeds map[string]int

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVar(&logFile, "log-file", "", "Path of file to append logs to")
	pflag.StringVarP(&configPath, "config", "c", defaultConfigPath, "Path of the device & motor configuration file")
	pflag.StringVarP(&bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|rpi|opz|virtual)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.BoolVar(&showUI, "ui", false, "Show the terminal UI")
	pflag.StringToIntVar(&speeds, "speed", nil, "Initial motor speeds (id=speed,...)")
	pflag.Parse()

	// Prepare logging, the terminal belongs to the UI when it is shown
	output := logging.NewMultiWriter()
	if !showUI {
		output.Add(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if logFile != "" {
		f, err := logging.OpenFile(logFile)
		if err != nil {
			Exitf("Failed to open log file: %v\n", err)
		}
		defer f.Close()
		output.Add(f)
	}
	logger := zerolog.New(output).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logger = logger.Level(level)

	conf, err := model.Load(configPath)
	if err != nil {
		Exitf("Failed to load configuration: %v\n", err)
	}
	for id, speed := range speeds {
		if _, found := conf.MotorByID(id); !found {
			Exitf("Unknown motor '%s' in --speed\n", id)
		}
		if speed < -100 || speed > 100 {
			logger.Warn().Str("motor-id", id).Int("speed", speed).Msg("Initial speed will be clamped to -100..100")
		}
	}

	if bridgeType == "auto" {
		bridgeType = environment.AutoDetectBridgeType(logger)
		logger.Debug().Str("bridge", bridgeType).Msg("Detected bridge type")
	}
	br, err := bridge.New(bridgeType)
	if err != nil {
		Exitf("Failed to initialize bridge: %v\n", err)
	}

	svc, err := service.NewService(service.Config{
		ProgramVersion: projectVersion,
		Configuration:  conf,
		InitialSpeeds:  speeds,
	}, service.Dependencies{
		Logger: logger,
		Bridge: br,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: serverPort,
	}, logger, svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	if !showUI {
		fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if showUI {
		g.Go(func() error {
			// Quitting the UI stops the controller
			defer cancel()
			return ui.Run(ctx, svc)
		})
	}
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %v\n", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
