package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

type EvalConfig struct {
	Engine    string   `yaml:"engine"`
	Languages []string `yaml:"languages"`
	Level     string   `yaml:"level"`
	CSVPath   string   `yaml:"csv_path"`
	Dir       string   `yaml:"dir"`
	TestRows  []int    `yaml:"rows"`
	Workers   int      `yaml:"workers"`
	Timestamp string   `yaml:"timestamp"`
}

type EvalResult struct {
	Identifier     string `yaml:"identifier"`
	ImagePath      string `yaml:"image_path"`
	TranscriptPath string `yaml:"transcript_path"`
	Transcription  string `yaml:"transcription"`
	Lines          int    `yaml:"lines"`
	Metrics        `yaml:",inline"`
}

type EvalSummary struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate recognition against ground truth transcripts",
	Long: `Evaluate an engine by comparing its transcriptions with ground truth.

The CSV has two columns, image and transcript, with an optional header row.
You can either provide individual flags or use a previous evaluation file.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

var (
	evalEngine     string
	evalLanguages  []string
	evalLevel      string
	evalCSVPath    string
	evalConfigPath string
	evalDir        string
	evalRows       []int
	evalWorkers    int
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalEngine, "engine", engineFromEnv(), "Engine to evaluate")
	evalCmd.Flags().StringSliceVar(&evalLanguages, "lang", []string{"en-US"}, "Recognition languages")
	evalCmd.Flags().StringVar(&evalLevel, "level", "accurate", "Recognition level: accurate or fast")
	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data")
	evalCmd.Flags().StringVar(&evalConfigPath, "config", "", "Path to previous evaluation file to rerun")
	evalCmd.Flags().StringVar(&evalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().IntSliceVar(&evalRows, "rows", []int{}, "A list of row numbers to run the test on")
	evalCmd.Flags().IntVar(&evalWorkers, "workers", 2, "Number of images recognized concurrently")

	evalCmd.MarkFlagsOneRequired("csv", "config")
	evalCmd.MarkFlagsMutuallyExclusive("csv", "config")
}

func runEval(cmd *cobra.Command, args []string) error {
	var config EvalConfig
	var err error

	if evalConfigPath != "" {
		config, err = loadEvalConfig(evalConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Loaded configuration from %s\n", evalConfigPath)
	} else {
		config = EvalConfig{
			Engine:    evalEngine,
			Languages: evalLanguages,
			Level:     evalLevel,
			CSVPath:   evalCSVPath,
			Dir:       evalDir,
			Workers:   evalWorkers,
			Timestamp: time.Now().Format("2006-01-02_15-04-05"),
		}
	}
	if cmd.Flags().Changed("rows") || config.TestRows == nil {
		config.TestRows = evalRows
	}

	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	session, closeEngine, err := newSession(config.Engine)
	if err != nil {
		return err
	}
	defer closeEngine()

	results, err := processEvaluation(cmd.Context(), session, config)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	summary := EvalSummary{
		Config:  config,
		Results: results,
	}

	outputPath := filepath.Join(evalsDir, fmt.Sprintf("eval_%s.yaml", config.Timestamp))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nEvaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func loadEvalConfig(configPath string) (EvalConfig, error) {
	var summary EvalSummary

	data, err := os.ReadFile(configPath)
	if err != nil {
		return EvalConfig{}, err
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return EvalConfig{}, err
	}

	// Update timestamp for rerun
	summary.Config.Timestamp = time.Now().Format("2006-01-02_15-04-05")

	return summary.Config, nil
}

// readEvalRows returns the CSV data rows selected by config.TestRows, keyed
// by their zero-based index. An empty selection means every row.
func readEvalRows(config EvalConfig) (map[int][]string, error) {
	file, err := os.Open(config.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// Skip header row if present
	dataRows := records
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "image") {
		dataRows = records[1:]
	}

	selected := make(map[int][]string)
	for i, row := range dataRows {
		if len(config.TestRows) > 0 && !slices.Contains(config.TestRows, i) {
			slog.Debug("Skipping row", "row", i+1)
			continue
		}
		if len(row) < 2 {
			slog.Warn("Insufficient columns", "row", i+1)
			continue
		}
		selected[i] = row
	}
	return selected, nil
}

func processEvaluation(ctx context.Context, session *recognition.Session, config EvalConfig) ([]EvalResult, error) {
	rows, err := readEvalRows(config)
	if err != nil {
		return nil, err
	}
	level, err := recognition.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	recConfig, err := recognition.NewConfig(config.Languages, recognition.WithLevel(level))
	if err != nil {
		return nil, err
	}

	indexes := make([]int, 0, len(rows))
	for i := range rows {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	results := make([]*EvalResult, len(indexes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for slot, i := range indexes {
		g.Go(func() error {
			result, err := processRow(ctx, session, recConfig, rows[i], config.Dir)
			if err != nil {
				slog.Error("Error processing row", "row", i+1, "err", err)
				return nil
			}
			results[slot] = &result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []EvalResult
	for _, r := range results {
		if r == nil {
			continue
		}
		printRowResult(*r)
		out = append(out, *r)
	}
	return out, nil
}

func processRow(ctx context.Context, session *recognition.Session, cfg *recognition.Config, row []string, dir string) (EvalResult, error) {
	imagePath := filepath.Join(dir, strings.TrimSpace(row[0]))
	transcriptPath := filepath.Join(dir, strings.TrimSpace(row[1]))

	groundTruth, err := os.ReadFile(transcriptPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read transcript: %w", err)
	}

	results, err := session.Recognize(ctx, cfg, recognition.FilePath(imagePath), recognition.ShapeText)
	if err != nil {
		return EvalResult{}, fmt.Errorf("recognition failed: %w", err)
	}
	transcription := joinText(results)

	return EvalResult{
		Identifier:     filepath.Base(imagePath),
		ImagePath:      imagePath,
		TranscriptPath: transcriptPath,
		Transcription:  transcription,
		Lines:          len(results),
		Metrics:        CalculateAccuracyMetrics(string(groundTruth), transcription),
	}, nil
}

// joinText joins recognized lines with newlines, skipping the no-text
// sentinel.
func joinText(results []recognition.Result) string {
	var lines []string
	for _, r := range results {
		if r.Text != nil {
			lines = append(lines, *r.Text)
		}
	}
	return strings.Join(lines, "\n")
}

func saveEvalResults(summary EvalSummary, outputPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printRowResult(result EvalResult) {
	fmt.Printf("\n=== Results for %s ===\n", result.Identifier)
	fmt.Printf("Image: %s\n", result.ImagePath)
	fmt.Printf("Transcript: %s\n", result.TranscriptPath)
	fmt.Printf("Lines: %d\n", result.Lines)
	fmt.Printf("Character Similarity: %.3f\n", result.CharacterSimilarity)
	fmt.Printf("Word Similarity: %.3f\n", result.WordSimilarity)
	fmt.Printf("Word Accuracy: %.3f\n", result.WordAccuracy)
	fmt.Printf("Word Error Rate: %.3f\n", result.WordErrorRate)
	fmt.Printf("Correct Words: %d/%d\n", result.CorrectWords, result.TotalWordsOriginal)
}

func printSummaryStats(results []EvalResult) {
	if len(results) == 0 {
		return
	}

	var totalCharSim, totalWordSim, totalWordAcc, totalWER float64

	for _, result := range results {
		totalCharSim += result.CharacterSimilarity
		totalWordSim += result.WordSimilarity
		totalWordAcc += result.WordAccuracy
		totalWER += result.WordErrorRate
	}

	count := float64(len(results))

	fmt.Printf("\n=== SUMMARY STATISTICS ===\n")
	fmt.Printf("Total Evaluations: %d\n", len(results))
	fmt.Printf("Average Character Similarity: %.3f\n", totalCharSim/count)
	fmt.Printf("Average Word Similarity: %.3f\n", totalWordSim/count)
	fmt.Printf("Average Word Accuracy: %.3f\n", totalWordAcc/count)
	fmt.Printf("Average Word Error Rate: %.3f\n", totalWER/count)
}
