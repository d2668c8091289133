package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Ingest documents and build a database",
		Long: `Build ingests a file or directory, chunks it into passages and builds
the BM25 and vector indexes under <db_root>/<name>/, where name is the
input basename without extension.

Examples:
  tinyrag build --config config.yaml --path data/raw/civil_code.pdf
  tinyrag build --config config.yaml --path data/raw/wiki.jsonl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.SourcePath = inputPath

			pipeline := buildPipeline(cfg)
			if err := pipeline.Build(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "数据库构建完成：%s\n", cfg.ResolveDBDir())
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "path", "p", "", "Input file or directory")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}
