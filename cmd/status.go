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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusAPIAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-shot JSON snapshot of the balancer's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 3 * time.Second}

		stats, err := fetch(client, statusAPIAddr+"/stats")
		if err != nil {
			exitWithError(err)
			return nil
		}
		workers, err := fetch(client, statusAPIAddr+"/workers")
		if err != nil {
			exitWithError(err)
			return nil
		}

		fmt.Printf("stats:   %s\n", stats)
		fmt.Printf("workers: %s\n", workers)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAPIAddr, "api", "http://localhost:9090", "balancer status server address")
}

func fetch(client *http.Client, url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var compact map[string]interface{}
	if err := json.Unmarshal(body, &compact); err == nil {
		pretty, _ := json.Marshal(compact)
		return string(pretty), nil
	}
	return string(body), nil
}
