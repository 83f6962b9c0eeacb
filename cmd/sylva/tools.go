package main

import (
	"fmt"

	"github.com/harunnryd/sylva/internal/tool"
	"github.com/harunnryd/sylva/internal/tool/formatter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools advertised to the completion backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatStr, _ := cmd.Flags().GetString("format")
		format, err := formatter.ParseOutputFormat(formatStr)
		if err != nil {
			return err
		}

		f, err := formatter.NewFormatterFactory().Create(format)
		if err != nil {
			return err
		}

		output, err := f.FormatTools(tool.DefaultCatalog().Descriptors())
		if err != nil {
			return fmt.Errorf("failed to format tools: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().StringP("format", "f", string(formatter.OutputFormatTable), "output format (table, json, yaml)")
}
