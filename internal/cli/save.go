package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"semstore/internal/domain"
)

var (
	saveText   string
	saveRef    string
	saveVector string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a text with its embedding",
	Long: `Save a single text. Without --vector the text is embedded with the
configured provider first.

Examples:
  semstore save --text "Hello, world!" --ref https://www.google.com
  semstore save --text "Hello, world!" --vector 1,0,0`,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVarP(&saveText, "text", "t", "", "text to store (required)")
	saveCmd.Flags().StringVarP(&saveRef, "ref", "r", "", "source locator stored with the text")
	saveCmd.Flags().StringVar(&saveVector, "vector", "", "pre-computed embedding as comma separated floats")
	saveCmd.MarkFlagRequired("text")
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	record := domain.EmbeddedRecord{OriginalText: saveText, Ref: saveRef}
	if saveVector != "" {
		vec, err := parseVector(saveVector)
		if err != nil {
			return err
		}
		record.Vector = vec
	} else {
		emb, err := newEmbedder(cfg.Embedding)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		record.Vector, err = emb.Embed(ctx, saveText)
		if err != nil {
			return fmt.Errorf("failed to embed text: %w", err)
		}
	}

	vs, release, err := openStore(ctx, cfg, GetRootDir(), logger, nil)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer release()

	if _, err := vs.Save(ctx, record); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved to collection %s\n", vs.Collection().Name)
	return nil
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, domain.Configurationf("parse vector", "invalid component %q: %v", p, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}
