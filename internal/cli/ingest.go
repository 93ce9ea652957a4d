package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"semstore/internal/adapter/fs"
	"semstore/internal/domain"
)

var (
	ingestBatch    int
	ingestIncludes []string
	ingestExcludes []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest PATTERN...",
	Short: "Save records from JSONL files",
	Long: `Save pre-embedded records read from JSONL files. Each line is one
record: {"vector":[...],"original_text":"...","ref":"..."}.
Patterns may use ** to match across directories. A directory argument
is walked for files matching --include and not matching --exclude.

Examples:
  semstore ingest records.jsonl
  semstore ingest "data/**/*.jsonl" --batch 128
  semstore ingest data/ --exclude "tmp/"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVar(&ingestBatch, "batch", 64, "records per upsert")
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", []string{fs.DefaultInclude}, "patterns for files inside directory arguments")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "patterns to skip inside directory arguments")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	files, err := expandPatterns(args, fs.NewWalker(ingestIncludes, ingestExcludes))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched %v", args)
	}

	var records []domain.EmbeddedRecord
	for _, f := range files {
		recs, err := readRecordFile(f)
		if err != nil {
			return err
		}
		records = append(records, recs...)
	}

	vs, release, err := openStore(ctx, GetConfig(), GetRootDir(), logger, nil)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer release()

	batch := ingestBatch
	if batch <= 0 {
		batch = 64
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	saved := 0
	for i := 0; i < len(records); i += batch {
		end := i + batch
		if end > len(records) {
			end = len(records)
		}
		n, err := vs.SaveBatch(ctx, records[i:end])
		if err != nil {
			return fmt.Errorf("ingest failed after %d records: %w", saved, err)
		}
		saved += n
		bar.Add(n)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d records from %d files to collection %s\n", saved, len(files), vs.Collection().Name)
	return nil
}

// expandPatterns resolves doublestar patterns; a pattern without matches
// that names an existing file is used as is. Directories, whether named
// directly or matched, are expanded with walker.
func expandPatterns(patterns []string, walker *fs.Walker) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				matches = []string{pattern}
			}
		}
		var expanded []string
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.IsDir() {
				expanded = append(expanded, m)
				continue
			}
			walked, err := walker.Walk(m)
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", m, err)
			}
			expanded = append(expanded, walked...)
		}
		for _, m := range expanded {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func readRecordFile(path string) ([]domain.EmbeddedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	recs, err := readRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func readRecords(r io.Reader) ([]domain.EmbeddedRecord, error) {
	var records []domain.EmbeddedRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		var rec domain.EmbeddedRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
