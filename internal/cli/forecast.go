package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eppie/foresight/internal/audit"
	"github.com/eppie/foresight/internal/baserate"
	"github.com/eppie/foresight/internal/clarify"
	"github.com/eppie/foresight/internal/decompose"
	"github.com/eppie/foresight/internal/evidence"
	"github.com/eppie/foresight/internal/forecast"
	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
	"github.com/eppie/foresight/internal/refclass"
	"github.com/eppie/foresight/internal/retrieval"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast <question>",
	Short: "Produce a calibrated probability for a question",
	Long: `Run the full forecasting workflow for one natural-language question
and append the resulting audit trail to the forecast log.

Examples:
  foresight forecast "Will a Category 5 hurricane make US landfall in 2026?"
  foresight forecast --oracle openai --model gpt-4o-mini "Will it rain in Lisbon tomorrow?"
  foresight forecast --no-decompose --log runs/forecasts.jsonl "Will the launch slip?"`,
	Args: cobra.ExactArgs(1),
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().String("oracle", "", "oracle provider (openai, ollama)")
	forecastCmd.Flags().String("model", "", "oracle model name")
	forecastCmd.Flags().String("base-url", "", "oracle base URL (LM Studio, llama.cpp, remote Ollama)")
	forecastCmd.Flags().Int("max-iterations", 0, "max decompose/contract cycles")
	forecastCmd.Flags().Int("workers", 0, "concurrent oracle calls for independent work")
	forecastCmd.Flags().Bool("no-decompose", false, "skip the inside-view decomposition loop")
	forecastCmd.Flags().Bool("retrieve", false, "fetch web context documents for the evidence stage")
	forecastCmd.Flags().String("log", "", "forecast log path (JSON Lines)")
	forecastCmd.Flags().Bool("json", false, "print the full forecast record as JSON")

	_ = viper.BindPFlag("oracle.provider", forecastCmd.Flags().Lookup("oracle"))
	_ = viper.BindPFlag("oracle.model", forecastCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("oracle.base_url", forecastCmd.Flags().Lookup("base-url"))
	_ = viper.BindPFlag("workflow.max_iterations", forecastCmd.Flags().Lookup("max-iterations"))
	_ = viper.BindPFlag("workflow.workers", forecastCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("workflow.log_path", forecastCmd.Flags().Lookup("log"))
	_ = viper.BindPFlag("output.json", forecastCmd.Flags().Lookup("json"))

	rootCmd.AddCommand(forecastCmd)
}

// loadConfig merges defaults, the config file and environment
// variables into one Config.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// API keys come from the environment when not configured.
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Retrieval.BraveAPIKey == "" {
		cfg.Retrieval.BraveAPIKey = os.Getenv("BRAVE_SEARCH_API_KEY")
	}
	if cfg.Retrieval.JinaAPIKey == "" {
		cfg.Retrieval.JinaAPIKey = os.Getenv("JINA_API_KEY")
	}
	return cfg, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noDecompose, _ := cmd.Flags().GetBool("no-decompose"); noDecompose {
		cfg.Workflow.Decompose = false
	}

	logger := newLogger()

	provider, err := oracle.NewProvider(cfg.Oracle)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !provider.IsAvailable(ctx) {
		logger.Warn("oracle did not answer the availability probe, continuing anyway",
			"provider", provider.Name())
	}

	client := oracle.NewClient(provider, cfg.Oracle, logger)

	gatherer := evidence.New(client, logger)
	if retrieve, _ := cmd.Flags().GetBool("retrieve"); retrieve || cfg.Retrieval.Enabled {
		store, err := openCache(cfg.Cache)
		if err != nil {
			return err
		}
		if store != nil {
			defer func() { _ = store.Close() }()
		}

		search, err := retrieval.NewSearchClient(cfg.Retrieval, store)
		if err != nil {
			return err
		}
		reader := retrieval.NewReader(cfg.Retrieval, store, logger)
		retriever := retrieval.NewRetriever(client, search, reader, cfg.Retrieval.TopK, logger)
		gatherer.WithDocuments(retriever, cfg.Retrieval.TopK)
	}

	stages := forecast.Stages{
		Clarifier: clarify.New(client, logger),
		Selector:  refclass.New(client),
		Estimator: baserate.New(client, cfg.Workflow.Workers, logger),
		Gatherer:  gatherer,
		Auditor:   audit.New(client, logger),
		Recorder:  forecast.NewRecorder(cfg.Workflow.LogPath),
	}
	if cfg.Workflow.Decompose {
		stages.Decomposer = decompose.New(client,
			cfg.Workflow.MaxIterations, cfg.Workflow.Workers, cfg.Workflow.StrictGraph, logger)
	}

	orchestrator := forecast.New(stages, client, logger)

	record, err := orchestrator.Run(ctx, args[0])
	if err != nil {
		return err
	}

	if cfg.Output.JSON {
		return printRecordJSON(record)
	}
	printRecord(record, cfg.Workflow.LogPath)
	return nil
}

func printRecordJSON(record *model.ForecastRecord) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}

func printRecord(record *model.ForecastRecord, logPath string) {
	fmt.Printf("Question:    %s\n", record.Question.ClarifiedText)
	fmt.Printf("Probability: %.2f\n", record.Rounded)
	if record.Rationale != "" {
		fmt.Printf("Rationale:   %s\n", record.Rationale)
	}
	if record.Critique != "" {
		fmt.Printf("\nBias check:\n%s\n", indent(record.Critique, "  "))
	}
	fmt.Printf("\nRecorded as %s in %s\n", record.ID, logPath)
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
