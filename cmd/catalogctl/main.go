// Command catalogctl inspects a question sheet offline: parse it, list
// conditional dependencies, audit it against the built-in catalogs, and
// score a submission file without a database.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/weights"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var weightsFile string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Inspect, audit and score against a mystery-shopper question sheet",
	Long: `catalogctl reads the tabular question sheet (CSV export) the service
loads at startup and reports what the service would see: parsed questions,
conditional dependencies, drift against the built-in catalogs, and scores.

All output is JSON on stdout.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log skipped rows and parser decisions to stderr")
	rootCmd.PersistentFlags().StringVar(&weightsFile, "weights", "", "Section weight YAML (default: built-in table)")
}

func logger() *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadWeights() (wm *weights.Map, err error) {
	if weightsFile == "" {
		wm = weights.Default()
		return wm, err
	}
	wm, err = weights.LoadYAML(weightsFile)
	if err != nil {
		err = errors.Wrapf(err, "failed to load weights: %s", weightsFile)
	}
	return wm, err
}

// loadSheet parses the CSV at path. Unlike the service it does not fall back
// to the built-in catalog: a missing sheet is an error here.
func loadSheet(ctx context.Context, path string) (res catalog.ParseResult, err error) {
	res, err = catalog.NewTabularSource(path, logger()).LoadResult(ctx)
	if err != nil {
		err = errors.Wrapf(err, "failed to load question sheet: %s", path)
	}
	return res, err
}

func printJSON(w io.Writer, v any) (err error) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	err = enc.Encode(v)
	if err != nil {
		err = errors.Wrap(err, "failed to write output")
	}
	return err
}

func jsonDecode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
