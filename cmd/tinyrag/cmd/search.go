package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		inputPath string
		question  string
		topN      int
		multiDB   bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Load a database and answer one query",
		Long: `Search loads the database built from the given input (or every database
under db_root with --multi-db), runs the configured retrieval strategy and
prints the answer with its citations.

Examples:
  tinyrag search --config config.yaml --path data/raw/civil_code.pdf --question "合同何时成立"
  tinyrag search --config config.yaml --path data/raw/wiki.jsonl --multi-db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.SourcePath = inputPath
			if multiDB {
				cfg.MultiDB.Enabled = true
			}
			if topN > 0 {
				cfg.Retrieval.TopN = topN
			}

			pipeline := buildPipeline(cfg)
			if err := pipeline.Load(); err != nil {
				return err
			}

			output, err := pipeline.Search(cmd.Context(), question, cfg.Retrieval.TopN)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "path", "p", "", "Input file or directory the database was built from")
	cmd.Flags().StringVarP(&question, "question", "q", "请介绍一下南京", "The query to answer")
	cmd.Flags().IntVarP(&topN, "topn", "n", 0, "Number of reranked passages (default from config)")
	cmd.Flags().BoolVar(&multiDB, "multi-db", false, "Fan recall out across every database under db_root")
	return cmd
}
