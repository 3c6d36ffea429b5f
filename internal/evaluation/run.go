package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pintuan-hub/publisher/internal/codescan"
	"github.com/pintuan-hub/publisher/internal/extraction"
	"golang.org/x/sync/errgroup"
)

type Locator interface {
	Locate(ctx context.Context, src codescan.ImageSource) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*extraction.Record, error)
}

// Result is the outcome for one manifest item.
type Result struct {
	ID            string  `yaml:"id" parquet:"id"`
	Image         string  `yaml:"image" parquet:"image"`
	ExpectedLink  string  `yaml:"expected_link" parquet:"expected_link"`
	Link          string  `yaml:"link" parquet:"link"`
	LinkMatch     bool    `yaml:"link_match" parquet:"link_match"`
	ExpectedTitle string  `yaml:"expected_title" parquet:"expected_title"`
	Title         string  `yaml:"title" parquet:"title"`
	TitleMatch    bool    `yaml:"title_match" parquet:"title_match"`
	Price         float64 `yaml:"price,omitempty" parquet:"price"`
	LocateError   string  `yaml:"locate_error,omitempty" parquet:"locate_error"`
	ExtractError  string  `yaml:"extract_error,omitempty" parquet:"extract_error"`
	DurationMS    int64   `yaml:"duration_ms" parquet:"duration_ms"`
}

type Summary struct {
	Total            int     `yaml:"total"`
	LinksFound       int     `yaml:"links_found"`
	LinkMatches      int     `yaml:"link_matches"`
	TitleMatches     int     `yaml:"title_matches"`
	LocateErrors     int     `yaml:"locate_errors"`
	ExtractionErrors int     `yaml:"extraction_errors"`
	LinkAccuracy     float64 `yaml:"link_accuracy"`
	TitleAccuracy    float64 `yaml:"title_accuracy"`
}

type Results struct {
	Provider  string   `yaml:"provider"`
	Model     string   `yaml:"model"`
	Timestamp string   `yaml:"timestamp"`
	Summary   *Summary `yaml:"summary"`
	Results   []Result `yaml:"results"`
}

type Runner struct {
	Locator     Locator
	Extractor   Extractor
	Concurrency int
}

// Run evaluates every manifest item. Results keep the manifest order.
func (r *Runner) Run(ctx context.Context, manifest *Manifest) []Result {
	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	slog.Info("Processing items", "items", len(manifest.Items), "concurrency", concurrency)

	results := make([]Result, len(manifest.Items))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i, item := range manifest.Items {
		wg.Add(1)
		go func(idx int, item Item) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			slog.Info("Processing item", "id", item.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(manifest.Items)))
			results[idx] = r.processItem(ctx, item)
		}(i, item)
	}
	wg.Wait()

	return results
}

func (r *Runner) processItem(ctx context.Context, item Item) (result Result) {
	start := time.Now()
	result = Result{
		ID:            item.ID,
		Image:         item.Image,
		ExpectedLink:  item.ExpectedLink,
		ExpectedTitle: item.ExpectedTitle,
	}
	defer func() { result.DurationMS = time.Since(start).Milliseconds() }()

	data, err := os.ReadFile(item.Image)
	if err != nil {
		result.LocateError = fmt.Sprintf("failed to read image: %v", err)
		result.ExtractError = result.LocateError
		return result
	}
	src, _, err := codescan.DecodeRaster(data)
	if err != nil {
		result.LocateError = fmt.Sprintf("failed to decode image: %v", err)
		result.ExtractError = result.LocateError
		return result
	}

	var g errgroup.Group
	g.Go(func() error {
		link, err := r.Locator.Locate(ctx, src)
		if err != nil && !errors.Is(err, codescan.ErrNotFound) {
			result.LocateError = err.Error()
		}
		result.Link = link
		return nil
	})
	g.Go(func() error {
		rec, err := r.Extractor.Extract(ctx, data, http.DetectContentType(data))
		if err != nil {
			result.ExtractError = err.Error()
			return nil
		}
		result.Title = rec.Title
		if rec.Price != nil {
			result.Price = *rec.Price
		}
		return nil
	})
	_ = g.Wait()

	result.LinkMatch = result.Link != "" && result.Link == strings.TrimSpace(item.ExpectedLink)
	result.TitleMatch = result.Title != "" && sameTitle(result.Title, item.ExpectedTitle)
	return result
}

// sameTitle compares titles ignoring case and whitespace.
func sameTitle(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), ""), strings.Join(strings.Fields(b), ""))
}

func CalculateSummary(results []Result) *Summary {
	summary := &Summary{Total: len(results)}
	for _, result := range results {
		if result.Link != "" {
			summary.LinksFound++
		}
		if result.LinkMatch {
			summary.LinkMatches++
		}
		if result.TitleMatch {
			summary.TitleMatches++
		}
		if result.LocateError != "" {
			summary.LocateErrors++
		}
		if result.ExtractError != "" {
			summary.ExtractionErrors++
		}
	}
	if summary.Total > 0 {
		summary.LinkAccuracy = float64(summary.LinkMatches) / float64(summary.Total)
		summary.TitleAccuracy = float64(summary.TitleMatches) / float64(summary.Total)
	}
	return summary
}
