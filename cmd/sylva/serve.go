package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/sylva/cmd/sylva/runtime"
	"github.com/harunnryd/sylva/internal/concurrency"
	"github.com/harunnryd/sylva/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatbot HTTP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			srv, err := server.New(r.Config.Server, r.Agent)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			sig := NewSignalHandler(r.Ctx)
			sig.Start()
			defer sig.Stop()

			errCh := concurrency.Go("http server", srv.ListenAndServe)

			select {
			case err := <-errCh:
				return err
			case <-sig.Context().Done():
			}

			return srv.Stop(context.Background())
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
