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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/shareobj/internal/logging"
	"github.com/yorkie-team/shareobj/internal/server"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath string
	flagLogLevel string
	flagNoStdin  bool

	conf = server.NewConfig()
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [options]",
		Short: "Start a server sharing one document",
		Long: `Start a server sharing one document with every websocket client.

Commands read from stdin modify the document:

  get [path]
  set <path> <json>
  push <path> <json>
  pop <path>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}
			if err := conf.ApplyEnv(); err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				conf.LogLevel = flagLogLevel
			}

			if err := logging.SetLogLevel(conf.LogLevel); err != nil {
				return err
			}

			s, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := s.Start(); err != nil {
				return err
			}

			if !flagNoStdin {
				go readCommands(cmd, s, cmd.InOrStdin())
			}

			if code := handleSignal(s); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

// readCommands runs every line of r as a server command until r is
// exhausted.
func readCommands(cmd *cobra.Command, s *server.Server, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out, err := s.Exec(scanner.Text())
		if err != nil {
			cmd.PrintErrf("error: %v\n", err)
			continue
		}
		if out != "" {
			cmd.Println(out)
		}
	}
}

func handleSignal(s *server.Server) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := s.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Errorf("shutdown: %v", err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServeCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		server.DefaultLogLevel,
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&conf.Addr,
		"addr",
		server.DefaultAddr,
		"Address the websocket endpoint listens on",
	)
	cmd.Flags().StringVar(
		&conf.Path,
		"path",
		server.DefaultPath,
		"URL path of the websocket endpoint",
	)
	cmd.Flags().StringVar(
		&conf.Name,
		"name",
		server.DefaultName,
		"Name the document is shared under",
	)
	cmd.Flags().StringVar(
		&conf.StateFile,
		"state-file",
		"",
		"JSON file the document is loaded from and saved to on shutdown",
	)
	cmd.Flags().StringVar(
		&conf.MetricsAddr,
		"metrics-addr",
		"",
		"Address Prometheus metrics are served on, disabled if empty",
	)
	cmd.Flags().DurationVar(
		&conf.WriteTimeout,
		"write-timeout",
		server.DefaultWriteTimeout,
		"Write deadline of a websocket frame",
	)
	cmd.Flags().BoolVar(
		&flagNoStdin,
		"no-stdin",
		false,
		"Do not read commands from stdin",
	)

	rootCmd.AddCommand(cmd)
}
