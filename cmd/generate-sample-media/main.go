package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/studiooh/proposal-export-service/proposal"
)

var (
	mediaTypes = []string{"Billboard", "Digital Screen", "Bus Shelter", "Transit", "Wallscape"}
	cities     = []string{"Austin", "Denver", "Portland", "Atlanta", "Chicago"}
	traffic    = []string{"Low", "Medium", "High", "Very High"}
)

type sampleFlags struct {
	count int
	out   string
	image string
}

func createRootCommand() *cobra.Command {
	flags := sampleFlags{}

	cmd := &cobra.Command{
		Use:   "generate-sample-media",
		Short: "Write a JSON array of media items for the render command",
		Long: `generate-sample-media writes --count made up media items to --out, e.g. to
check how long a 500 slide deck takes to render.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.count < 1 {
				return fmt.Errorf("--count must be positive, got %d", flags.count)
			}
			if err := writeSampleMedia(flags.out, sampleMedia(flags.count, flags.image)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d media items to %s\n", flags.count, flags.out)
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.count, "count", 500, "number of media items")
	cmd.Flags().StringVar(&flags.out, "out", "./sample_media.json", "output file")
	cmd.Flags().StringVar(&flags.image, "image", "", "image reference given to every item")

	return cmd
}

func sampleMedia(count int, image string) []proposal.MediaItem {
	items := make([]proposal.MediaItem, 0, count)
	for i := range count {
		width := float64(10 + i%40)
		height := float64(5 + i%20)
		lat := 30.0 + float64(i%100)/10
		lng := -97.0 - float64(i%100)/10
		item := proposal.MediaItem{
			ID:        fmt.Sprintf("sample-%05d", i+1),
			Name:      fmt.Sprintf("%s #%d", mediaTypes[i%len(mediaTypes)], i+1),
			Location:  fmt.Sprintf("%d Main St", 100+i),
			City:      cities[i%len(cities)],
			Type:      mediaTypes[i%len(mediaTypes)],
			Width:     &width,
			Height:    &height,
			Price:     decimal.NewFromInt(int64(500 + (i%20)*250)),
			Traffic:   traffic[i%len(traffic)],
			Available: i%3 != 0,
			Latitude:  &lat,
			Longitude: &lng,
		}
		if image != "" {
			item.ImageURLs = []string{image}
		}
		items = append(items, item)
	}
	return items
}

func writeSampleMedia(out string, items []proposal.MediaItem) error {
	jsonOutput, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	if _, err := writer.Write(jsonOutput); err != nil {
		return err
	}
	return writer.Flush()
}

func main() {
	if err := createRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
