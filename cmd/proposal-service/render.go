package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/assets"
	"github.com/studiooh/proposal-export-service/config"
	"github.com/studiooh/proposal-export-service/pipeline"
	"github.com/studiooh/proposal-export-service/proposal"
	"github.com/studiooh/proposal-export-service/render"
)

type renderFlags struct {
	format       string
	mediaPath    string
	optionsPath  string
	out          string
	contentModel string
}

func createRenderCommand(cfg *config.ProposalConfig, log *zap.SugaredLogger) *cobra.Command {
	flags := renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a proposal from JSON files without a database",
		Long: `Render reads a JSON array of media items and an optional JSON options
object, and writes the document to --out. Images may be URLs, data URIs or
local file paths.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runOfflineRender(cmd.Context(), cfg, log, flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", render.FormatPDF, "export format: pdf, excel or ppt")
	cmd.Flags().StringVar(&flags.mediaPath, "media", "", "path to a JSON array of media items")
	cmd.Flags().StringVar(&flags.optionsPath, "options", "", "path to a JSON export options object")
	cmd.Flags().StringVar(&flags.out, "out", "", "output file (default: the format's file name)")
	cmd.Flags().StringVar(&flags.contentModel, "content-model", "", "also write the content model as JSON to this path")
	_ = cmd.MarkFlagRequired("media")

	return cmd
}

// runOfflineRender renders the files named in flags and returns the path
// written.
func runOfflineRender(ctx context.Context, cfg *config.ProposalConfig, log *zap.SugaredLogger, flags renderFlags) (string, error) {
	var items []proposal.MediaItem
	if err := readJSONFile(flags.mediaPath, &items); err != nil {
		return "", fmt.Errorf("failed to read media: %w", err)
	}
	var opts proposal.Options
	if flags.optionsPath != "" {
		if err := readJSONFile(flags.optionsPath, &opts); err != nil {
			return "", fmt.Errorf("failed to read options: %w", err)
		}
	}

	if flags.contentModel != "" {
		model, err := json.MarshalIndent(proposal.BuildContentModel(items, opts), "", "  ")
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(flags.contentModel, model, 0o644); err != nil {
			return "", err
		}
	}

	// run by an operator on their own files, so local hosts are fair game
	fetcher := assets.NewFetcher(assets.FetcherOptions{
		Timeout:              cfg.AssetConfig.FetchTimeout,
		MaxBytes:             cfg.AssetConfig.MaxBytes,
		MaxPixels:            cfg.AssetConfig.MaxPixels,
		AllowLocalFiles:      true,
		AllowPrivateNetworks: true,
	}, log)
	p := pipeline.New(nil, render.NewRegistry(fetcher, log), cfg.ExportConfig.Timeout, log)

	progress := proposal.NewProgress(func(percent int) {
		log.Debugw("render progress", "percent", percent)
	})
	artifact, err := p.Render(ctx, flags.format, items, opts, progress)
	if err != nil {
		return "", err
	}

	out := flags.out
	if out == "" {
		out = artifact.Filename
	}
	if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
		return "", err
	}
	log.Infow("wrote proposal", "format", artifact.Format, "media", artifact.MediaCount, "path", out, "bytes", len(artifact.Data))
	return out, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
