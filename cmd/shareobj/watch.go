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
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yorkie-team/shareobj/internal/logging"
	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/subscriber"
	"github.com/yorkie-team/shareobj/pkg/transport/websocket"
)

var (
	output string
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "watch <url> <name>",
		Short:   "Mirror the objects a server shares under a name",
		Example: "  shareobj watch ws://localhost:8080/shareobj state",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "table" {
				return fmt.Errorf("unknown output format: %s", output)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ch, err := websocket.Dial(ctx, args[0], websocket.WithLogger(logging.New("watch")))
			if err != nil {
				return err
			}
			defer func() {
				_ = ch.Close()
			}()

			subscriber.Listen(ch, args[1], func(so *subscriber.SharedObject) {
				printEvent(cmd, so, "share", nil, nil)
				so.OnChange(func(e subscriber.ChangeEvent) {
					printEvent(cmd, so, "change", e.Path, e.Value)
				})
				so.OnUnshare(func() {
					printEvent(cmd, so, "unshare", nil, nil)
				})
			})

			return ch.Run(ctx)
		},
	}
}

func printEvent(cmd *cobra.Command, so *subscriber.SharedObject, event string, path []any, value any) {
	var err error
	switch output {
	case "json":
		err = printJSON(cmd, so, event, path, value)
	case "table":
		err = printTable(cmd, so, event)
	}
	if err != nil {
		cmd.PrintErrf("error: %v\n", err)
	}
}

func printJSON(cmd *cobra.Command, so *subscriber.SharedObject, event string, path []any, value any) error {
	line := map[string]any{
		"event": event,
		"id":    so.ID(),
		"name":  so.Name(),
	}
	switch event {
	case "share":
		snapshot, err := so.Snapshot()
		if err != nil {
			return err
		}
		line["object"] = snapshot
	case "change":
		line["path"] = path
		line["value"] = value
	}

	out, err := plain.Marshal(line)
	if err != nil {
		return err
	}
	cmd.Println(out)
	return nil
}

// printTable renders the whole mirror, one row per scalar leaf.
func printTable(cmd *cobra.Command, so *subscriber.SharedObject, event string) error {
	snapshot, err := so.Snapshot()
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	tw.SetTitle(fmt.Sprintf("%s %d (%s)", so.Name(), so.ID(), event))
	tw.AppendHeader(table.Row{"PATH", "VALUE"})
	if event != "unshare" {
		for _, leaf := range flatten("", snapshot) {
			tw.AppendRow(table.Row{leaf.path, leaf.value})
		}
	}
	cmd.Printf("%s\n\n", tw.Render())
	return nil
}

type leaf struct {
	path  string
	value string
}

// flatten lists the scalar leaves of a snapshot with their dotted paths.
func flatten(prefix string, v any) []leaf {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var leaves []leaf
		for _, k := range keys {
			leaves = append(leaves, flatten(join(k), val[k])...)
		}
		return leaves
	case []any:
		var leaves []leaf
		for i, elem := range val {
			leaves = append(leaves, flatten(join(strconv.Itoa(i)), elem)...)
		}
		return leaves
	default:
		text, err := plain.Marshal(val)
		if err != nil {
			text = fmt.Sprint(val)
		}
		if prefix == "" {
			prefix = "."
		}
		return []leaf{{path: prefix, value: text}}
	}
}

func init() {
	cmd := newWatchCmd()
	cmd.Flags().StringVarP(
		&output,
		"output",
		"o",
		"json",
		"Output format: json, table",
	)
	rootCmd.AddCommand(cmd)
}

