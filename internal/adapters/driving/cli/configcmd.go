package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcadia-bio/litindex/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage engine configuration",
	Long:  `View the effective configuration or write a starter config file.`,
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current defaults",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cmd.Printf("Data directory:  %s\n", orDefault(cfg.DataDir, "~/.litindex/data"))
	cmd.Printf("Watch directory: %s\n", orDefault(cfg.WatchDir, "(none)"))
	cmd.Println()
	cmd.Printf("Chunking:  size=%d overlap=%d\n", cfg.Chunking.Size, cfg.Chunking.Overlap)
	cmd.Printf("Embedding: provider=%s model=%s\n", cfg.Embedding.Provider, orDefault(cfg.Embedding.Model, "(provider default)"))
	cmd.Printf("Indexing:  workers=%d poll=%s\n", cfg.Indexing.Workers, cfg.Indexing.PollInterval.Std())
	cmd.Printf("Search:    lexical=%.2f semantic=%.2f threshold=%.2f limit=%d\n",
		cfg.Search.LexicalWeight, cfg.Search.SemanticWeight, cfg.Search.Threshold, cfg.Search.Limit)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	cmd.Printf("Config written to %s\n", path)
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
