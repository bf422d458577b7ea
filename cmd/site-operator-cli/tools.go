package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/site-operator/go-sdk/pkg/portal"
	"github.com/site-operator/go-sdk/pkg/tools"
)

func toolsCmd() *cobra.Command {
	var schema bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the client tools advertised to the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTools(cmd.OutOrStdout(), portal.Tools(), schema)
		},
	}
	cmd.Flags().BoolVarP(&schema, "schema", "s", false, "print each tool's parameter schema")
	return cmd
}

func printTools(out io.Writer, registry *tools.Registry, withSchema bool) error {
	for _, tool := range registry.List() {
		fmt.Fprintf(out, "%-16s %s\n", tool.Name, tool.Description)
		if !withSchema {
			continue
		}
		data, err := json.MarshalIndent(tool.Schema, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s\n", data)
	}
	return nil
}
