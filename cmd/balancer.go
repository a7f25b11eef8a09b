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
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arionyau/obelisk/internal/broker"
	"github.com/arionyau/obelisk/internal/config"
	"github.com/arionyau/obelisk/internal/logger"
	"github.com/arionyau/obelisk/internal/status"
)

var balancerAPIAddr string

var balancerCmd = &cobra.Command{
	Use:   "balancer [config-path]",
	Short: "Run the balancer's main loop",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := config.Load(path)
		if err != nil {
			exitWithError(err)
			return nil
		}

		b, err := broker.New(cfg.Frontend, cfg.Backend, logger.Named("broker"))
		if err != nil {
			exitWithError(err)
			return nil
		}
		defer b.Close()

		if balancerAPIAddr != "" {
			srv := status.New(b)
			go func() {
				log.Info().Str("addr", balancerAPIAddr).Msg("status server listening")
				if err := http.ListenAndServe(balancerAPIAddr, srv); err != nil {
					log.Error().Err(err).Msg("status server stopped")
				}
			}()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Str("frontend", cfg.Frontend).Str("backend", cfg.Backend).Msg("balancer starting")
		if err := b.Run(ctx); err != nil && ctx.Err() == nil {
			exitWithError(err)
		}
		return nil
	},
}

func init() {
	balancerCmd.Flags().StringVar(&balancerAPIAddr, "api-addr", "", "optional HTTP status server address (e.g. :9090)")
}
