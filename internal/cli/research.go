package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eppie/foresight/internal/cache"
	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
	"github.com/eppie/foresight/internal/retrieval"
)

var researchCmd = &cobra.Command{
	Use:   "research <question>",
	Short: "Fetch context documents for a question without forecasting",
	Long: `Generate web-search queries for a question, run them against the
Brave search API and fetch the result pages as plain text.

Requires BRAVE_SEARCH_API_KEY (or retrieval.brave_api_key in the
config file). Search responses and page bodies are cached so repeated
runs do not hit the network.`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().Int("top-k", 0, "number of documents to fetch")
	researchCmd.Flags().Bool("full", false, "print full document text instead of a preview")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	store, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	provider, err := oracle.NewProvider(cfg.Oracle)
	if err != nil {
		return err
	}
	client := oracle.NewClient(provider, cfg.Oracle, logger)

	search, err := retrieval.NewSearchClient(cfg.Retrieval, store)
	if err != nil {
		return err
	}
	reader := retrieval.NewReader(cfg.Retrieval, store, logger)
	retriever := retrieval.NewRetriever(client, search, reader, cfg.Retrieval.TopK, logger)

	topK, _ := cmd.Flags().GetInt("top-k")
	docs, err := retriever.Retrieve(cmd.Context(), args[0], topK)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No readable documents found.")
		return nil
	}

	full, _ := cmd.Flags().GetBool("full")
	for i, doc := range docs {
		fmt.Printf("[%d] %s\n    %s\n", i+1, doc.SourceName, doc.SourceURL)
		if full {
			fmt.Printf("\n%s\n\n", doc.Text)
		} else {
			fmt.Printf("    %s\n", preview(doc.Text, 200))
		}
	}
	return nil
}

// openCache builds the configured cache service. A configured sqlite
// path gets a layered memory-over-disk cache; otherwise memory only.
// Returns nil when caching is disabled.
func openCache(cfg model.CacheConfig) (cache.Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	memory := cache.NewMemoryCache(cfg.MemoryTTL, cfg.MemoryTTL)
	if cfg.Path == "" {
		return memory, nil
	}

	durable, err := cache.OpenSQLiteCache(cfg.Path, cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("open cache at %s: %w", cfg.Path, err)
	}
	return cache.NewLayeredCache(memory, durable), nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
