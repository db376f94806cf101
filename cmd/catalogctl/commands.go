package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nyashahama/mystery-shopper-backend/internal/audit"
	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/dependency"
	"github.com/nyashahama/mystery-shopper-backend/internal/intake"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
)

// ─── parse ────────────────────────────────────────────────────────────────────

//nolint:gochecknoglobals // Cobra boilerplate
var parseCmd = &cobra.Command{
	Use:   "parse <sheet.csv>",
	Short: "Parse the question sheet and summarize the resulting catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) (err error) {
	res, err := loadSheet(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	wm, err := loadWeights()
	if err != nil {
		return err
	}

	sections := res.Catalog.Sections()
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}
	skipped := make([]string, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, s.Error())
	}

	err = printJSON(cmd.OutOrStdout(), map[string]any{
		"questions":         res.Catalog.Len(),
		"conditional":       len(res.Catalog.Conditional()),
		"sections":          sections,
		"unmapped_sections": wm.UnmappedSections(names),
		"deleted_rows":      res.Deleted,
		"replaced_ids":      res.Replaced,
		"skipped_rows":      skipped,
	})
	return err
}

// ─── deps ─────────────────────────────────────────────────────────────────────

//nolint:gochecknoglobals // Cobra boilerplate
var depsCmd = &cobra.Command{
	Use:   "deps <sheet.csv> [trigger-id]",
	Short: "List conditional dependencies, or the dependents of one trigger",
	Long: `Without a trigger id, prints every trigger with its dependent count and the
conditional questions grouped by identical condition text.

With a trigger id, prints the questions whose condition text mentions it.
The match is a case-insensitive substring match, so Q5 also matches
conditions on Q51.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDeps,
}

func runDeps(cmd *cobra.Command, args []string) (err error) {
	res, err := loadSheet(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	cat := res.Catalog

	if len(args) == 1 {
		idx := dependency.Analyze(cat)
		err = printJSON(cmd.OutOrStdout(), map[string]any{
			"triggers": idx.Triggers(cat),
			"groups":   idx.Groups(),
		})
		return err
	}

	trigger := catalog.NormalizeID(args[1])
	if !catalog.ValidID(trigger) {
		err = errors.Errorf("invalid trigger id: %q", args[1])
		return err
	}
	matches := dependency.DependentsOf(cat, trigger)
	err = printJSON(cmd.OutOrStdout(), map[string]any{
		"trigger_id":    trigger,
		"known":         cat.Has(trigger),
		"matches":       matches,
		"matches_count": len(matches),
	})
	return err
}

// ─── audit ────────────────────────────────────────────────────────────────────

//nolint:gochecknoglobals // Cobra boilerplate
var (
	auditA      string
	auditB      string
	auditTarget string
)

//nolint:gochecknoglobals // Cobra boilerplate
var auditCmd = &cobra.Command{
	Use:   "audit <sheet.csv>",
	Short: "Compare two catalog sources and list the differences",
	Long: `Compares two of the sources "tabular" (the given sheet), "curated" and
"fallback": id sets, question text, and optionally the dependents of one
trigger question.

Examples:
  catalogctl audit data/questions.csv
  catalogctl audit data/questions.csv --a fallback --b tabular --target Q51`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) (err error) {
	res, err := loadSheet(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	sources := map[string]*catalog.Catalog{
		catalog.SourceTabular:  res.Catalog,
		catalog.SourceCurated:  catalog.FromDefinitions(catalog.CuratedDefinitions()),
		catalog.SourceFallback: catalog.FromDefinitions(catalog.FallbackDefinitions()),
	}
	pick := func(name string) (n audit.Named, err error) {
		name = strings.ToLower(name)
		cat, ok := sources[name]
		if !ok {
			err = errors.Errorf("unknown source %q (known: curated, fallback, tabular)", name)
			return n, err
		}
		n = audit.Named{Name: name, Catalog: cat}
		return n, err
	}

	a, err := pick(auditA)
	if err != nil {
		return err
	}
	b, err := pick(auditB)
	if err != nil {
		return err
	}

	target := ""
	if auditTarget != "" {
		target = catalog.NormalizeID(auditTarget)
		if !catalog.ValidID(target) {
			err = errors.Errorf("invalid target id: %q", auditTarget)
			return err
		}
	}

	err = printJSON(cmd.OutOrStdout(), audit.Audit(a, b, target))
	return err
}

// ─── score ────────────────────────────────────────────────────────────────────

//nolint:gochecknoglobals // Cobra boilerplate
var scoreCmd = &cobra.Command{
	Use:   "score <sheet.csv> <submission.json>",
	Short: "Validate and score a submission file against the sheet",
	Long: `Reads a submission in the same JSON shape POST /api/survey/submit accepts,
validates it against the sheet, and prints the score report. Nothing is
stored.`,
	Args: cobra.ExactArgs(2),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) (err error) {
	res, err := loadSheet(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	wm, err := loadWeights()
	if err != nil {
		return err
	}

	f, err := os.Open(args[1])
	if err != nil {
		err = errors.Wrapf(err, "failed to open submission: %s", args[1])
		return err
	}
	defer f.Close()

	var req intake.Request
	if err = jsonDecode(f, &req); err != nil {
		err = errors.Wrapf(err, "failed to decode submission: %s", args[1])
		return err
	}

	accepted, err := intake.NewValidator(res.Catalog).Validate(req)
	if err != nil {
		_ = printJSON(cmd.ErrOrStderr(), map[string]any{
			"error":   "validation failed",
			"details": intake.Fields(err),
		})
		err = errors.New("submission rejected")
		return err
	}

	report := scoring.Score(accepted.Submission, res.Catalog, dependency.Analyze(res.Catalog), wm)
	err = printJSON(cmd.OutOrStdout(), report)
	return err
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(parseCmd, depsCmd, auditCmd, scoreCmd)

	auditCmd.Flags().StringVar(&auditA, "a", catalog.SourceCurated, "First source")
	auditCmd.Flags().StringVar(&auditB, "b", catalog.SourceTabular, "Second source")
	auditCmd.Flags().StringVar(&auditTarget, "target", "", "Trigger question whose dependents are listed")
}
