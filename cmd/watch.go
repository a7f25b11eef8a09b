// Copyright 2025 Arion Yau
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

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/arionyau/obelisk/internal/tui"
)

var watchAPIAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open a terminal dashboard polling the balancer's status server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tui.Run(watchAPIAddr); err != nil {
			exitWithError(err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAPIAddr, "api", "http://localhost:9090", "balancer status server address")
}
