/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"github.com/yorkie-team/shareobj/internal/validation"
)

// Below are the default values of the server config.
const (
	DefaultAddr         = "localhost:8080"
	DefaultPath         = "/shareobj"
	DefaultName         = "state"
	DefaultWriteTimeout = 10 * time.Second
	DefaultLogLevel     = "info"
)

// Config is the configuration of a shareobj server.
type Config struct {
	// Addr is the address the websocket endpoint listens on.
	Addr string `yaml:"Addr" env:"SHAREOBJ_ADDR" validate:"required,hostname_port"`

	// Path is the URL path of the websocket endpoint.
	Path string `yaml:"Path" env:"SHAREOBJ_PATH" validate:"required,url_path"`

	// Name is the name the document is shared under.
	Name string `yaml:"Name" env:"SHAREOBJ_NAME" validate:"required,share_name"`

	// StateFile is the JSON file the document is loaded from and saved to
	// on shutdown. An empty value starts from an empty record.
	StateFile string `yaml:"StateFile" env:"SHAREOBJ_STATE_FILE"`

	// MetricsAddr is the address Prometheus metrics are served on. An empty
	// value disables the metrics endpoint.
	MetricsAddr string `yaml:"MetricsAddr" env:"SHAREOBJ_METRICS_ADDR" validate:"omitempty,hostname_port"`

	// WriteTimeout is the write deadline of a websocket frame.
	WriteTimeout time.Duration `yaml:"WriteTimeout" env:"SHAREOBJ_WRITE_TIMEOUT" validate:"gt=0"`

	// LogLevel is the level of the server logs.
	LogLevel string `yaml:"LogLevel" env:"SHAREOBJ_LOG_LEVEL" validate:"log_level"`
}

// NewConfig returns a Config struct that contains reasonable defaults.
func NewConfig() *Config {
	return &Config{
		Addr:         DefaultAddr,
		Path:         DefaultPath,
		Name:         DefaultName,
		WriteTimeout: DefaultWriteTimeout,
		LogLevel:     DefaultLogLevel,
	}
}

// NewConfigFromFile returns a Config struct for the given conf file. Values
// missing from the file keep their defaults.
func NewConfigFromFile(path string) (*Config, error) {
	conf := NewConfig()
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	return conf, nil
}

// ApplyEnv overrides the config with the SHAREOBJ_* environment variables
// that are set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}
