package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/pintuan-hub/publisher/internal/config"
	"github.com/pintuan-hub/publisher/internal/draft"
	"github.com/pintuan-hub/publisher/internal/images"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type scanReport struct {
	ListingID string                  `yaml:"listing_id,omitempty"`
	Draft     draft.Draft             `yaml:"draft"`
	Notices   []draft.Notice          `yaml:"notices,omitempty"`
	Prompts   []draft.DuplicatePrompt `yaml:"duplicate_prompts,omitempty"`
}

func newScanCmd() *cobra.Command {
	var submit bool

	cmd := &cobra.Command{
		Use:   "scan <image path or URL>",
		Short: "Recognise one order screenshot",
		Long: `Runs code location, field extraction and the duplicate check on a single
screenshot and prints the resulting draft as YAML. With --submit the draft is
published when it is ready.`,
		Example: `  publisher scan order.png
  publisher scan order.png --submit
  publisher scan https://example.com/order.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			data, mimeType, err := images.NewFetcher().Load(ctx, args[0])
			if err != nil {
				return err
			}
			img, err := draft.NewImage(data, mimeType)
			if err != nil {
				return fmt.Errorf("failed to decode image: %w", err)
			}

			pipeline, closeStore, err := cfg.NewPipeline(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			report, submitErr := runScan(ctx, pipeline, img, submit)
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("failed to marshal YAML: %w", err)
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			return submitErr
		},
	}

	cmd.Flags().BoolVar(&submit, "submit", false, "Publish the draft when it is ready")

	return cmd
}

// runScan recognises img in a fresh session and, when asked, submits it. The
// returned error is the submit error, if any.
func runScan(ctx context.Context, pipeline *draft.Pipeline, img *draft.Image, submit bool) (scanReport, error) {
	var (
		mu     sync.Mutex
		report scanReport
	)
	session := pipeline.NewSession(
		draft.WithNotifier(func(n draft.Notice) {
			mu.Lock()
			defer mu.Unlock()
			report.Notices = append(report.Notices, n)
		}),
		draft.WithDuplicatePrompt(func(p draft.DuplicatePrompt) {
			mu.Lock()
			defer mu.Unlock()
			report.Prompts = append(report.Prompts, p)
		}),
	)

	select {
	case <-session.SelectImage(ctx, img):
	case <-ctx.Done():
		return report, ctx.Err()
	}

	var (
		listingID string
		submitErr error
	)
	if submit {
		listingID, submitErr = session.Submit(ctx)
	}

	mu.Lock()
	defer mu.Unlock()
	report.ListingID = listingID
	report.Draft = session.Snapshot()
	return report, submitErr
}
