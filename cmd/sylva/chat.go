package main

import (
	"os"

	"github.com/harunnryd/sylva/cmd/sylva/runtime"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")

		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			sig := NewSignalHandler(r.Ctx)
			sig.Start()
			defer sig.Stop()

			repl := runtime.NewREPL(sig.Context(), r.Agent, r.Catalog, os.Stdin, cmd.OutOrStdout(), token)
			return repl.Start()
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("token", "t", "", "GeoNature user token forwarded as caller identity")
}
