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

// Package config loads the application configuration from the configuration
// file and the environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gsalomao/maxiot/logger"
	"github.com/gsalomao/maxiot/reliability"
	"github.com/gsalomao/maxiot/retry"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// ErrConfigFileNotFound indicates that the configuration file was not found.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config holds all the application configuration.
type Config struct {
	// Minimal severity level of the logs.
	LogLevel string `mapstructure:"log_level"`

	// Encoding of the log lines: "pretty" or "json".
	LogFormat string `mapstructure:"log_format"`

	// Indicate whether the metrics are exported or not.
	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	// TCP address (<IP>:<port>) where the Prometheus metrics are exported.
	MetricsAddress string `mapstructure:"metrics_address"`

	// The path where the metrics are exported.
	MetricsPath string `mapstructure:"metrics_path"`

	// Indicate whether the profiling metrics are exported or not.
	MetricsProfiling bool `mapstructure:"metrics_profiling"`

	// TCP address (<IP>:<port>) that the HTTP API will bind to.
	HTTPAddress string `mapstructure:"http_address"`

	// The maximum amount of time, in seconds, to read an HTTP request.
	HTTPReadTimeout int `mapstructure:"http_read_timeout"`

	// The maximum amount of time, in seconds, to write an HTTP response.
	HTTPWriteTimeout int `mapstructure:"http_write_timeout"`

	// The maximum amount of time, in seconds, to wait for the HTTP API to
	// shut down.
	HTTPShutdownTimeout int `mapstructure:"http_shutdown_timeout"`

	// The policy used to resend unacknowledged messages.
	RetryPolicy string `mapstructure:"retry_policy"`

	// The overall time, in seconds, an unacknowledged message is retried.
	// Zero means forever.
	RetryMaxDuration uint32 `mapstructure:"retry_max_duration"`

	// The initial wait, in seconds, between resends.
	RetryInitialWait uint32 `mapstructure:"retry_initial_wait"`

	// The maximum jitter, as a percentage of the wait, between resends.
	RetryMaxJitterPercent uint32 `mapstructure:"retry_max_jitter_percent"`

	// The cap, in seconds, of the wait between resends. Zero means no cap.
	RetryMaxDelay uint32 `mapstructure:"retry_max_delay"`

	// The policy used to reopen a lost connection.
	ReconnectPolicy string `mapstructure:"reconnect_policy"`

	// The overall time, in seconds, a lost connection is reopened. Zero means
	// forever.
	ReconnectMaxDuration uint32 `mapstructure:"reconnect_max_duration"`

	// The amount of time, in seconds, a message waits for its acknowledgment.
	AckTimeout int `mapstructure:"ack_timeout"`

	// The interval, in milliseconds, between the evaluations of the expired
	// messages.
	TickIntervalMs int `mapstructure:"tick_interval_ms"`

	// The maximum number of unacknowledged messages per connection. Zero
	// means no limit.
	MaxInflightMessages int `mapstructure:"max_inflight_messages"`

	// The device identifier used by the loopback producer.
	LoopbackDeviceID string `mapstructure:"loopback_device_id"`

	// The share, from 0 to 1, of messages dropped by the loopback transport.
	LoopbackLossRatio float64 `mapstructure:"loopback_loss_ratio"`

	// The interval, in milliseconds, between loopback telemetry messages.
	LoopbackPublishIntervalMs int `mapstructure:"loopback_publish_interval_ms"`
}

// DefaultConfig contains the default values of the configuration.
var DefaultConfig = Config{
	LogLevel:                  "info",
	LogFormat:                 "pretty",
	MetricsEnabled:            true,
	MetricsAddress:            ":8888",
	MetricsPath:               "/metrics",
	HTTPAddress:               ":8080",
	HTTPReadTimeout:           5,
	HTTPWriteTimeout:          5,
	HTTPShutdownTimeout:       5,
	RetryPolicy:               "exponential_backoff_with_jitter",
	RetryMaxDuration:          300,
	RetryInitialWait:          1,
	RetryMaxJitterPercent:     5,
	RetryMaxDelay:             30,
	ReconnectPolicy:           "exponential_backoff_with_jitter",
	ReconnectMaxDuration:      0,
	AckTimeout:                10,
	TickIntervalMs:            250,
	MaxInflightMessages:       20,
	LoopbackDeviceID:          "maxiot-device",
	LoopbackLossRatio:         0.2,
	LoopbackPublishIntervalMs: 1000,
}

var keys = []string{
	"log_level",
	"log_format",
	"metrics_enabled",
	"metrics_address",
	"metrics_path",
	"metrics_profiling",
	"http_address",
	"http_read_timeout",
	"http_write_timeout",
	"http_shutdown_timeout",
	"retry_policy",
	"retry_max_duration",
	"retry_initial_wait",
	"retry_max_jitter_percent",
	"retry_max_delay",
	"reconnect_policy",
	"reconnect_max_duration",
	"ack_timeout",
	"tick_interval_ms",
	"max_inflight_messages",
	"loopback_device_id",
	"loopback_loss_ratio",
	"loopback_publish_interval_ms",
}

// ReadConfigFile reads the configuration file.
//
// The configuration file can be stored at one of the following locations:
//   - <executable dir>/maxiot.conf
//   - /etc/maxiot/maxiot.conf
//   - /etc/maxiot.conf
func ReadConfigFile() error {
	viper.SetConfigName("maxiot.conf")
	viper.SetConfigType("toml")

	if exe, err := os.Executable(); err == nil {
		pwd := filepath.Dir(exe)
		viper.AddConfigPath(pwd)

		root := filepath.Dir(pwd + "/../")
		viper.AddConfigPath(root)
	}

	viper.AddConfigPath("/etc/maxiot")
	viper.AddConfigPath("/etc")

	err := viper.ReadInConfig()
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return fmt.Errorf("%w: %s", ErrConfigFileNotFound, err.Error())
	}

	return err
}

// LoadConfig loads the configuration from the conf file, environment variables,
// or use the default values.
//
// Note: The ReadConfigFile must be called before in order to load the
// configuration from the conf file.
func LoadConfig() (Config, error) {
	viper.SetEnvPrefix("MAXIOT")
	viper.AutomaticEnv()

	for _, k := range keys {
		_ = viper.BindEnv(k)
	}

	c := DefaultConfig
	err := viper.Unmarshal(&c)
	return c, err
}

// Validate checks the configuration values, returning all the errors found.
func (c Config) Validate() error {
	var err error

	if c.LogLevel == "" {
		err = multierr.Append(err, errors.New("log_level is required"))
	} else if !logger.IsValidLevel(c.LogLevel) {
		err = multierr.Append(err, errors.New("log_level is invalid"))
	}
	if _, e := logger.ParseFormat(c.LogFormat); e != nil {
		err = multierr.Append(err, errors.New("log_format is invalid"))
	}

	if c.MetricsEnabled {
		if c.MetricsAddress == "" {
			err = multierr.Append(err, errors.New("metrics_address is required"))
		}
		if c.MetricsPath == "" {
			err = multierr.Append(err, errors.New("metrics_path is required"))
		}
	}

	if c.HTTPAddress == "" {
		err = multierr.Append(err, errors.New("http_address is required"))
	}
	err = multierr.Append(err, positive("http_read_timeout", c.HTTPReadTimeout))
	err = multierr.Append(err,
		positive("http_write_timeout", c.HTTPWriteTimeout))
	err = multierr.Append(err,
		positive("http_shutdown_timeout", c.HTTPShutdownTimeout))

	if _, e := retry.ParsePolicy(c.RetryPolicy); e != nil {
		err = multierr.Append(err, errors.New("retry_policy is invalid"))
	}
	if _, e := retry.ParsePolicy(c.ReconnectPolicy); e != nil {
		err = multierr.Append(err, errors.New("reconnect_policy is invalid"))
	}
	if c.RetryInitialWait == 0 {
		err = multierr.Append(err,
			errors.New("retry_initial_wait must be greater than 0"))
	}
	if c.RetryMaxJitterPercent > 100 {
		err = multierr.Append(err,
			errors.New("retry_max_jitter_percent must be no greater than 100"))
	}

	err = multierr.Append(err, positive("ack_timeout", c.AckTimeout))
	err = multierr.Append(err, positive("tick_interval_ms", c.TickIntervalMs))
	if c.MaxInflightMessages < 0 || c.MaxInflightMessages > math.MaxUint16 {
		err = multierr.Append(err,
			errors.New("max_inflight_messages must be between 0 and 65535"))
	}

	if c.LoopbackDeviceID == "" {
		err = multierr.Append(err, errors.New("loopback_device_id is required"))
	}
	if c.LoopbackLossRatio < 0 || c.LoopbackLossRatio > 1 {
		err = multierr.Append(err,
			errors.New("loopback_loss_ratio must be between 0 and 1"))
	}
	err = multierr.Append(err, positive("loopback_publish_interval_ms",
		c.LoopbackPublishIntervalMs))

	return err
}

func positive(key string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be greater than 0", key)
	}
	return nil
}

// Reliability returns the delivery engine configuration. The configuration
// must be valid.
func (c Config) Reliability() reliability.Configuration {
	retryPolicy, _ := retry.ParsePolicy(c.RetryPolicy)
	reconnectPolicy, _ := retry.ParsePolicy(c.ReconnectPolicy)

	return reliability.Configuration{
		RetryPolicy:           retryPolicy,
		RetryMaxDuration:      c.RetryMaxDuration,
		RetryInitialWait:      c.RetryInitialWait,
		RetryMaxJitterPercent: c.RetryMaxJitterPercent,
		RetryMaxDelay:         c.RetryMaxDelay,
		ReconnectPolicy:       reconnectPolicy,
		ReconnectMaxDuration:  c.ReconnectMaxDuration,
		AckTimeout:            c.AckTimeout,
		MaxInflightMessages:   c.MaxInflightMessages,
	}
}

// TickInterval returns the interval between the evaluations of the expired
// messages.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// LoopbackPublishInterval returns the interval between loopback telemetry
// messages.
func (c Config) LoopbackPublishInterval() time.Duration {
	return time.Duration(c.LoopbackPublishIntervalMs) * time.Millisecond
}
