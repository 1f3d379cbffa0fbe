package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fgddem "github.com/twpayne/go-fgddem"
)

// A consoleFeedback prints progress and status to stderr.
type consoleFeedback struct {
	fgddem.NopFeedback
	lastPercent int
}

func (f *consoleFeedback) Progress(percent int) {
	if percent != f.lastPercent {
		fmt.Fprintf(os.Stderr, "\r%3d%%", percent)
		f.lastPercent = percent
	}
	if percent == 100 {
		fmt.Fprintln(os.Stderr)
	}
}

func (f *consoleFeedback) Info(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func (f *consoleFeedback) ReportError(message string) {
	fmt.Fprintln(os.Stderr, "error: "+message)
}

var rootCmd = &cobra.Command{
	Use:   "fgddem <input>",
	Short: "Convert FGD GML elevation mesh tiles to a GeoTIFF raster",
	Long: `fgddem assembles Fundamental Geospatial Data (FGD) GML elevation mesh
tiles into one contiguous, georeferenced GeoTIFF.

The input may be a single .xml document, a directory of documents, or a
.zip archive as downloaded from the GSI site.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	fileName, _ := cmd.Flags().GetString("file-name")
	outputEPSG, _ := cmd.Flags().GetString("output-epsg")
	rgbify, _ := cmd.Flags().GetBool("rgbify")
	seaAtZero, _ := cmd.Flags().GetBool("sea-at-zero")

	input, err := fgddem.OpenInput(args[0])
	if err != nil {
		return err
	}
	defer input.Close()

	converter := fgddem.NewConverter(input, outputDir,
		fgddem.WithFileName(fileName),
		fgddem.WithOutputEPSG(outputEPSG),
		fgddem.WithRGBify(rgbify),
		fgddem.WithConverterSeaAtZero(seaAtZero),
		fgddem.WithFeedback(&consoleFeedback{lastPercent: -1}),
	)

	written, err := converter.Run(cmd.Context())
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintln(os.Stderr, "nothing to produce")
	}
	return nil
}

func init() {
	rootCmd.Flags().StringP("output-dir", "o", ".", "Directory to write the output raster to")
	rootCmd.Flags().String("file-name", "output.tif", "Output raster file name")
	rootCmd.Flags().String("output-epsg", "EPSG:4326", "Output CRS, e.g. EPSG:3857")
	rootCmd.Flags().Bool("rgbify", false, "Write Terrain-RGB instead of Float32 elevation")
	rootCmd.Flags().Bool("sea-at-zero", false, "Substitute 0 for no-data sea surface and sea floor samples")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
