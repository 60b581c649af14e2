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
	"runtime"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/shareobj/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of shareobj",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("shareobj %s (%s, %s/%s, built %s)\n",
				version.Version,
				runtime.Version(),
				runtime.GOOS,
				runtime.GOARCH,
				version.BuildDate,
			)
		},
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
