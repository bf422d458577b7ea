package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/site-operator/go-sdk/pkg/server"
)

func devServerCmd() *cobra.Command {
	var (
		address    string
		chunkDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the development backend",
		Long: `Run a local backend that serves a scripted echo agent over SSE
(POST /agent) and WebSocket (GET /agent/ws), the conversations API and
Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if address == "" {
				address = cfg.DevServer.Address
			}
			srv := server.New(server.Config{Address: address, Logger: logger})
			srv.RegisterAgent(server.DefaultAgent, &server.EchoAgent{ChunkDelay: chunkDelay})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&address, "addr", "a", "", "listen address (defaults to devserver.address)")
	cmd.Flags().DurationVar(&chunkDelay, "chunk-delay", 30*time.Millisecond, "delay between streamed text chunks")
	return cmd
}
