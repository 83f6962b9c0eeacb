package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harunnryd/sylva/cmd/sylva/runtime"
	"github.com/harunnryd/sylva/internal/model/contract"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		asJSON, _ := cmd.Flags().GetBool("json")
		question := strings.Join(args, " ")

		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			history := []contract.Message{{Role: contract.RoleUser, Content: question}}
			res := r.Agent.Run(r.Ctx, history, token)

			if asJSON {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode result: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), runtime.RenderResult(res))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("token", "t", "", "GeoNature user token forwarded as caller identity")
	askCmd.Flags().Bool("json", false, "print the raw result as JSON")
}
