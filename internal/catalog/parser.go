package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ─── ERRORS ───────────────────────────────────────────────────────────────────

// ErrCatalogUnavailable is returned by a Source whose backing data cannot be
// read at all. LoadWithFallback recovers from it with the built-in catalog.
var ErrCatalogUnavailable = errors.New("catalog: source unavailable")

// MalformedRowError describes a single source row that could not become a
// QuestionDefinition. The parser logs it and moves on.
type MalformedRowError struct {
	Row    int // 1-based data row number, header excluded
	ID     string
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("catalog: row %d (id %q): %s", e.Row, e.ID, e.Reason)
}

// ─── ROWS & FIELDS ────────────────────────────────────────────────────────────

// Row is one tabular record keyed by column header. Missing columns read as "".
type Row map[string]string

// Field names the logical columns the parser understands.
type Field string

const (
	FieldID            Field = "id"
	FieldSection       Field = "section"
	FieldTextPrimary   Field = "text_primary"
	FieldTextSecondary Field = "text_secondary"
	FieldElaboration   Field = "elaboration"
	FieldAnswers       Field = "answers"
	FieldVisitType     Field = "visit_type"
	FieldConditions    Field = "conditions"
	FieldStatus        Field = "status"
)

// fieldAliases lists the header spellings seen in the question sheet, most
// common first. Header matching is case-insensitive and whitespace-trimmed.
var fieldAliases = map[Field][]string{
	FieldID:            {"Quet.Nr", "ID", "Question ID", "Question Number"},
	FieldSection:       {"Criteria", "Section"},
	FieldTextPrimary:   {"Question", "Question (EN)", "Question EN"},
	FieldTextSecondary: {"السؤال", "Question (AR)", "Question AR"},
	FieldElaboration:   {"Elaboration", "Details"},
	FieldAnswers:       {"Possible Answers", "Answers"},
	FieldVisitType:     {"Type of visit", "Visit Type"},
	FieldConditions:    {"Conditions", "Skips/Triggers", "Skips", "Triggers"},
	FieldStatus:        {"Status", "Changes", "Changes/Status"},
}

// Get returns the trimmed value for field, trying every known alias.
func (r Row) Get(f Field) string {
	for _, alias := range fieldAliases[f] {
		if v, ok := r[alias]; ok {
			return strings.TrimSpace(v)
		}
	}
	for key, v := range r {
		for _, alias := range fieldAliases[f] {
			if strings.EqualFold(strings.TrimSpace(key), alias) {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// ReadRows reads a CSV document into Rows keyed by the header line. Ragged
// rows and stray quotes are tolerated; extra columns are kept but ignored by
// the parser.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("catalog: read row %d: %w", len(rows)+1, err)
		}
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ─── PARSER ───────────────────────────────────────────────────────────────────

// ParseResult is the parser output plus the bookkeeping needed to audit it.
type ParseResult struct {
	Catalog  *Catalog
	Skipped  []*MalformedRowError // rows rejected as malformed
	Deleted  int                  // rows flagged as deleted
	Replaced []string             // ids that appeared more than once (last wins)
}

// Parser normalizes raw rows into QuestionDefinitions.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a Parser that logs skipped rows to logger. A nil logger
// discards output.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{logger: logger}
}

// Parse converts rows into a Catalog. It never fails as a whole: blank,
// header-echo and deleted rows are dropped silently, malformed rows are
// logged and recorded in ParseResult.Skipped. When the same id appears more
// than once, the later row replaces the earlier one entirely.
func (p *Parser) Parse(rows []Row) ParseResult {
	res := ParseResult{Catalog: New()}

	for i, row := range rows {
		rowNum := i + 1
		rawID := row.Get(FieldID)

		switch {
		case rawID == "" || isHeaderEcho(rawID):
			continue
		case isDeleted(rawID, row.Get(FieldStatus)):
			res.Deleted++
			continue
		}

		def, err := parseRow(rowNum, rawID, row)
		if err != nil {
			var mre *MalformedRowError
			if errors.As(err, &mre) {
				res.Skipped = append(res.Skipped, mre)
			}
			p.logger.Warn("catalog: skipping malformed row",
				"row", rowNum,
				"id", rawID,
				"error", err,
			)
			continue
		}

		if res.Catalog.Put(def) {
			res.Replaced = append(res.Replaced, def.ID)
			p.logger.Debug("catalog: duplicate id, later row wins", "id", def.ID, "row", rowNum)
		}
	}

	return res
}

func parseRow(rowNum int, rawID string, row Row) (QuestionDefinition, error) {
	id := NormalizeID(rawID)
	if !ValidID(id) {
		return QuestionDefinition{}, &MalformedRowError{
			Row:    rowNum,
			ID:     rawID,
			Reason: "id must be Q followed by a number, optionally with a dotted sub-index",
		}
	}

	answers := strings.ReplaceAll(row.Get(FieldAnswers), "\r\n", "\n")
	enc := ParseAnswerEncoding(answers)
	cond := row.Get(FieldConditions)
	hasCond := conditionPresent(cond)
	if !hasCond {
		cond = ""
	}

	return QuestionDefinition{
		ID:                  id,
		Section:             cleanText(row.Get(FieldSection)),
		TextPrimary:         cleanText(row.Get(FieldTextPrimary)),
		TextSecondary:       cleanText(row.Get(FieldTextSecondary)),
		Elaboration:         cleanText(row.Get(FieldElaboration)),
		VisitType:           cleanText(row.Get(FieldVisitType)),
		AnswerEncoding:      answers,
		MaxScore:            enc.MaxScore,
		AnswerType:          enc.Type,
		AnswerOptions:       enc.Options,
		HasConditions:       hasCond,
		ConditionExpression: cond,
	}, nil
}

func isHeaderEcho(id string) bool {
	for _, alias := range fieldAliases[FieldID] {
		if strings.EqualFold(id, alias) {
			return true
		}
	}
	return false
}

func isDeleted(id, status string) bool {
	if strings.HasSuffix(strings.ToUpper(id), "_DELETED") {
		return true
	}
	return strings.Contains(strings.ToLower(status), "delete")
}

func conditionPresent(cond string) bool {
	return cond != "" && !strings.EqualFold(cond, "N/A")
}

// cleanText trims, collapses internal runs of whitespace and applies NFC so
// Arabic text typed on different keyboards compares equal.
func cleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
