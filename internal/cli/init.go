package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"semstore/config"
)

var (
	initBackend  string
	initProvider string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default semstore.yaml",
	Long: `Write a semstore.yaml with default settings to the root directory.
Environment variables (QDRANT_*) still override the file at run time.

Examples:
  semstore init
  semstore init --backend bolt --provider ollama`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initBackend, "backend", "", "vector backend: qdrant, bolt or memory")
	initCmd.Flags().StringVar(&initProvider, "provider", "", "embedding provider: openai, ollama, jina or mock")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing semstore.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(GetRootDir(), "semstore.yaml")
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg := config.DefaultConfig()
	if initBackend != "" {
		cfg.Store.Backend = initBackend
	}
	if initProvider != "" {
		cfg.Embedding.Provider = initProvider
		if initProvider == "mock" && cfg.Embedding.Dimension == 0 {
			cfg.Embedding.Dimension = 8
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
