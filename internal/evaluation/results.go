package evaluation

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

const (
	yamlFile    = "results.yaml"
	parquetFile = "results.parquet"
)

// SaveResults writes results.yaml and results.parquet into outputDir
func SaveResults(results *Results, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, yamlFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	if err := parquet.WriteFile(filepath.Join(outputDir, parquetFile), results.Results); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}

	return nil
}

// LoadParquet reads the per-item rows written by SaveResults.
func LoadParquet(path string) ([]Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[Result](pf)
	defer reader.Close()

	var results []Result
	rows := make([]Result, 128)
	for {
		n, err := reader.Read(rows)
		results = append(results, rows[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	return results, nil
}

// ResultsPath returns the parquet file inside an output directory
func ResultsPath(outputDir string) string {
	return filepath.Join(outputDir, parquetFile)
}
