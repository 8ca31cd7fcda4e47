// Copyright 2022 The MaxMQ Authors
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

package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dimiro1/banner"
	"github.com/gsalomao/maxiot/api"
	"github.com/gsalomao/maxiot/config"
	"github.com/gsalomao/maxiot/logger"
	"github.com/gsalomao/maxiot/metrics"
	"github.com/gsalomao/maxiot/reliability"
	"github.com/gsalomao/maxiot/server"
	"github.com/gsalomao/maxiot/transport/loopback"
	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
)

var bannerTemplate = `{{ .Title "MaxIoT" "" 0 }}
{{ .AnsiColor.BrightCyan }}  Reliable Message Delivery for IoT
{{ .AnsiColor.Default }}
`

func newCommandStart() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start server",
		Long: "Start the MaxIoT server, delivering the messages of a " +
			"loopback device through the retry engine",
		Run: func(_ *cobra.Command, _ []string) {
			runCommandStart()
		},
	}
}

func runCommandStart() {
	lg := logger.New(os.Stdout)
	log := &lg

	conf, err := loadConfig(log)
	if err != nil {
		log.Fatal().Msg("Failed to load configuration: " + err.Error())
	}

	l, err := newLogger(conf)
	if err != nil {
		log.Fatal().Msg("Failed to create logger: " + err.Error())
	}
	log = l

	banner.InitString(colorable.NewColorableStdout(), true, true,
		bannerTemplate)

	srv, err := newServer(conf, log)
	if err != nil {
		log.Fatal().Msg("Failed to create server: " + err.Error())
	}

	runServer(srv, log)
}

func newLogger(conf config.Config) (*logger.Logger, error) {
	f, err := logger.ParseFormat(conf.LogFormat)
	if err != nil {
		return nil, err
	}

	err = logger.SetSeverityLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithFormat(os.Stdout, f)
	return &log, nil
}

func loadConfig(log *logger.Logger) (config.Config, error) {
	err := config.ReadConfigFile()
	if err == nil {
		log.Info().Msg("Config file loaded with success")
	} else if errors.Is(err, config.ErrConfigFileNotFound) {
		log.Info().Msg("No config file found")
	} else {
		return config.Config{}, fmt.Errorf("failed to read config file: %w",
			err)
	}

	return config.LoadConfig()
}

func newServer(conf config.Config, log *logger.Logger) (*server.Server,
	error) {

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mt := reliability.NewMetrics(conf.MetricsEnabled, log)

	tr, err := loopback.New(conf.LoopbackLossRatio, nil, log)
	if err != nil {
		return nil, err
	}

	conn, err := reliability.NewConnection(tr,
		reliability.WithConfiguration(conf.Reliability()),
		reliability.WithConnectionID(conf.LoopbackDeviceID),
		reliability.WithLogger(log),
		reliability.WithMetrics(mt),
	)
	if err != nil {
		return nil, err
	}
	tr.SetAcknowledger(conn)
	conn.Connected()

	pump := reliability.NewPump(conf.TickInterval(), log)
	if err = pump.Register(conn); err != nil {
		return nil, err
	}

	producer := loopback.NewProducer(conn, conf.LoopbackDeviceID,
		conf.LoopbackPublishInterval(), log)

	httpSrv, err := api.NewHTTPServer(api.Configuration{
		Address:         conf.HTTPAddress,
		ReadTimeout:     conf.HTTPReadTimeout,
		WriteTimeout:    conf.HTTPWriteTimeout,
		ShutdownTimeout: conf.HTTPShutdownTimeout,
	}, pump, log)
	if err != nil {
		return nil, err
	}

	srv := server.New(log)
	srv.AddRunner(pump)
	srv.AddRunner(producer)
	srv.AddRunner(httpSrv)

	if conf.MetricsEnabled {
		log.Debug().
			Str("Address", conf.MetricsAddress).
			Str("Path", conf.MetricsPath).
			Msg("Exporting metrics")

		mtSrv, err := metrics.NewServer(metrics.Configuration{
			Address:   conf.MetricsAddress,
			Path:      conf.MetricsPath,
			Profiling: conf.MetricsProfiling,
		}, log)
		if err != nil {
			return nil, err
		}
		srv.AddRunner(mtSrv)
	}

	return srv, nil
}

func runServer(srv *server.Server, log *logger.Logger) {
	err := srv.Start()
	if err != nil {
		log.Error().Msg("Failed to start server: " + err.Error())
		return
	}

	go waitOSSignals(srv)
	err = srv.Wait()
	if err != nil {
		log.Error().Msg("Server stopped with error: " + err.Error())
	}
}

func waitOSSignals(srv *server.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop

	// Generates a new line to split the logs
	fmt.Println("")
	srv.Stop()
}
