package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soberm258/tiny-agents/internal/agent"
	"github.com/soberm258/tiny-agents/internal/tool"
	"github.com/soberm258/tiny-agents/internal/ui"
)

func newChatCmd() *cobra.Command {
	var (
		dbName      string
		question    string
		topk        int
		maxSteps    int
		showSteps   bool
		noShowSteps bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the ReAct agent loop",
		Long: `Chat answers questions through the tool-using ReAct loop: the model
decides when to call rag_search or search_online, observations feed back
into the next turn, and the final answer carries its citations.

Interactive when no --question is given; exit with exit/quit/q or EOF.

Examples:
  tinyrag chat --config config.yaml --db-name civil_code
  tinyrag chat --config config.yaml --db-name civil_code --question "居住权如何设立" --no-show-steps`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if noShowSteps {
				showSteps = false
			}
			if dbName != "" {
				cfg.DBName = dbName
			}
			if maxSteps > 0 {
				cfg.Agent.MaxSteps = maxSteps
			}
			if topk > 0 {
				cfg.Agent.DefaultTopK = topk
			}

			pipeline := buildPipeline(cfg)
			if err := pipeline.Load(); err != nil {
				return err
			}

			ragTool := &tool.RAGSearchTool{
				LLM:          buildLLM(cfg),
				RecallFactor: cfg.Retrieval.RecallFactor,
				RRFK:         cfg.Retrieval.RRFK,
				BM25Weight:   cfg.Retrieval.BM25Weight,
				EmbWeight:    cfg.Retrieval.EmbWeight,
			}
			if cfg.Retrieval.RecallFactor <= 2 {
				// Agent mode widens recall: the model asks for few items.
				ragTool.RecallFactor = 4
			}
			if multi := pipeline.Multi(); multi != nil {
				ragTool.ByName = map[string]tool.SearchBackend{}
				for _, db := range multi.DBs() {
					name := filepath.Base(db.BaseDir)
					ragTool.ByName[name] = tool.NamedBackend{Multi: multi, Name: name}
				}
				ragTool.Default = multi
			} else {
				ragTool.Default = pipeline.Searcher()
			}

			registry := tool.NewRegistry()
			if err := registry.Register(ragTool); err != nil {
				return err
			}
			if err := registry.Register(&tool.SearchOnlineTool{}); err != nil {
				return err
			}

			reactAgent := agent.New(pipeline.LLM, registry)
			reactAgent.MaxSteps = cfg.Agent.MaxSteps
			reactAgent.MaxToolCalls = cfg.Agent.MaxToolCalls
			reactAgent.LLMTimeout = llmTimeout(cfg)
			reactAgent.DefaultTopK = cfg.Agent.DefaultTopK
			if showSteps {
				reactAgent.Steps = ui.NewStepPrinter(cmd.OutOrStdout())
			}

			out := cmd.OutOrStdout()
			if q := strings.TrimSpace(question); q != "" {
				answer, _ := reactAgent.Run(cmd.Context(), q)
				if !showSteps {
					fmt.Fprintln(out, answer)
				}
				return nil
			}

			fmt.Fprintln(out, "ReAct agent 就绪。输入 exit/quit 退出。")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Fprint(out, "\n用户> ")
				if !scanner.Scan() {
					return nil
				}
				q := strings.TrimSpace(scanner.Text())
				if q == "" {
					continue
				}
				if lower := strings.ToLower(q); lower == "exit" || lower == "quit" || lower == "q" {
					return nil
				}
				answer, _ := reactAgent.Run(cmd.Context(), q)
				if !showSteps {
					fmt.Fprintln(out, "\n助手>\n"+answer)
				}
			}
		},
	}

	cmd.Flags().StringVar(&dbName, "db-name", "", "Database name under db_root")
	cmd.Flags().StringVarP(&question, "question", "q", "", "Answer one question and exit")
	cmd.Flags().IntVar(&topk, "topk", 0, "Default topk for tool calls (default from config)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Maximum ReAct steps (default from config)")
	cmd.Flags().BoolVar(&showSteps, "show-steps", true, "Trace every ReAct step")
	cmd.Flags().BoolVar(&noShowSteps, "no-show-steps", false, "Disable step tracing")
	return cmd
}
