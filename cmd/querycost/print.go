package main

import (
	"fmt"

	"github.com/spf13/cobra"

	protoreg "github.com/hanpama/querycost/internal/protoreg"
	schema "github.com/hanpama/querycost/internal/schema"
)

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the merged schema SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := opts.loadConfig()
			if err != nil {
				return err
			}
			sch, err := schema.LoadFiles(cmd.Context(), conf.Schema.CostDirective, conf.Schema.Paths...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), schema.Render(sch))
			return err
		},
	}
}

func newProtoCommand() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "proto",
		Short: "Print the gRPC API definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := protoreg.Build()
			if err != nil {
				return fmt.Errorf("protoreg build: %w", err)
			}
			if outDir != "" {
				return protoreg.Render(reg, outDir)
			}
			return protoreg.Print(reg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write the .proto file below this directory instead of stdout")
	return cmd
}
