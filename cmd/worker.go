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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arionyau/obelisk/internal/dispatcher"
	"github.com/arionyau/obelisk/internal/logger"
)

var (
	workerService string
	workerBroker  string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a demo Query Dispatcher worker",
	Long: `Connects to the balancer's backend endpoint, announces readiness, and
serves a small set of illustrative commands (echo.ping, echo.reverse) to
exercise the dispatcher end to end. Real query handlers are an external
collaborator, not part of this package.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := dispatcher.New(workerBroker, workerService, logger.Named("worker"))
		if err != nil {
			exitWithError(err)
			return nil
		}
		defer d.Close()

		registerEchoHandlers(d)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Str("service", workerService).Str("broker", workerBroker).
			Str("identity", d.Identity().String()).Msg("worker starting")
		if err := d.PollLoop(ctx); err != nil && ctx.Err() == nil {
			exitWithError(err)
		}
		return nil
	},
}

func init() {
	workerCmd.Flags().StringVar(&workerService, "service", "echo", "service name this worker logs at startup")
	workerCmd.Flags().StringVar(&workerBroker, "broker", "tcp://localhost:9092", "balancer backend endpoint to connect to")
}

// registerEchoHandlers wires up the demo command table. blockchain.* and
// address.* handlers are the balancer's real-world consumers but their
// business logic is out of scope here.
func registerEchoHandlers(d *dispatcher.Dispatcher) {
	d.Register("echo.ping", func(req dispatcher.Request, send dispatcher.Sender) {
		send([][]byte{[]byte("pong")})
	})

	d.Register("echo.reverse", func(req dispatcher.Request, send dispatcher.Sender) {
		var payload []byte
		if len(req.Payload) > 0 {
			payload = req.Payload[0]
		}
		send([][]byte{reverseBytes(payload)})
	})
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
