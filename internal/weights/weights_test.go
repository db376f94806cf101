package weights_test

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nyashahama/mystery-shopper-backend/internal/weights"
)

func TestDefault_CategoryWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, cw := range weights.Default().MainCategories() {
		sum += cw.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("category weights sum to %v, want 1.0", sum)
	}
}

func TestDefault_Lookups(t *testing.T) {
	m := weights.Default()

	cat, w, ok := m.CategoryFor("Waiting Area")
	if !ok || cat != "Appearance" || w != 0.05 {
		t.Errorf("Waiting Area: got %q %v %v", cat, w, ok)
	}
	if _, _, ok := m.CategoryFor("Unknown Section"); ok {
		t.Error("unknown section should not resolve")
	}

	appearance := m.MainCategories()["Appearance"]
	if len(appearance.MemberSections) != 5 {
		t.Errorf("Appearance members: got %v", appearance.MemberSections)
	}
	if math.Abs(appearance.TotalWeight-0.25) > 1e-9 {
		t.Errorf("Appearance total weight: got %v", appearance.TotalWeight)
	}

	if got := len(m.Categories()); got != 8 {
		t.Errorf("categories: want 8, got %d", got)
	}
	if got := len(m.Entries()); got != 13 {
		t.Errorf("entries: want 13, got %d", got)
	}
}

func TestWeightFor(t *testing.T) {
	m := weights.Default()

	e, ok := m.WeightFor("Speed of Service")
	if !ok {
		t.Fatal("Speed of Service should resolve")
	}
	want := weights.SectionWeightEntry{Section: "Speed of Service", DisplayCategory: "Speed of Service", Weight: 0.20}
	if e != want {
		t.Errorf("want %+v, got %+v", want, e)
	}
	if _, ok := m.WeightFor("speed of service"); ok {
		t.Error("section lookup is exact")
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []weights.SectionWeightEntry
		wantErr string
	}{
		{
			name:    "missing category",
			entries: []weights.SectionWeightEntry{{Section: "A", Weight: 0.1}},
			wantErr: "required",
		},
		{
			name:    "weight above one",
			entries: []weights.SectionWeightEntry{{Section: "A", DisplayCategory: "X", Weight: 1.5}},
			wantErr: "out of range",
		},
		{
			name:    "negative weight",
			entries: []weights.SectionWeightEntry{{Section: "A", DisplayCategory: "X", Weight: -0.1}},
			wantErr: "out of range",
		},
		{
			name: "duplicate section",
			entries: []weights.SectionWeightEntry{
				{Section: "A", DisplayCategory: "X", Weight: 0.1},
				{Section: "A", DisplayCategory: "X", Weight: 0.1},
			},
			wantErr: "listed twice",
		},
		{
			name: "members disagree",
			entries: []weights.SectionWeightEntry{
				{Section: "A", DisplayCategory: "X", Weight: 0.1},
				{Section: "B", DisplayCategory: "X", Weight: 0.2},
			},
			wantErr: "differs",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := weights.New(tc.entries)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestUnmappedSections(t *testing.T) {
	m := weights.Default()
	got := m.UnmappedSections([]string{"Waiting Area", "Zeta", "Alpha", "Zeta"})
	if want := []string{"Alpha", "Zeta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
	if got := m.UnmappedSections([]string{"Waiting Area"}); len(got) != 0 {
		t.Errorf("want none, got %v", got)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	body := `sections:
  - section: Waiting Area
    display_category: Appearance
    weight: 0.4
  - section: Speed of Service
    display_category: Speed
    weight: 0.6
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := weights.LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cat, w, ok := m.CategoryFor("Speed of Service"); !ok || cat != "Speed" || w != 0.6 {
		t.Errorf("Speed of Service: got %q %v %v", cat, w, ok)
	}
}

func TestLoadYAML_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("sections: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("sections: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.yaml"), empty, broken} {
		if _, err := weights.LoadYAML(path); err == nil {
			t.Errorf("LoadYAML(%s): expected error", filepath.Base(path))
		}
	}
}

func TestLoadYAML_RejectsMixedCategoryWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	body := `sections:
  - section: Center Access
    display_category: Appearance
    weight: 0.05
  - section: Waiting Area
    display_category: Appearance
    weight: 0.10
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := weights.LoadYAML(path)
	if err == nil {
		t.Fatal("expected error for member sections with different weights")
	}
	if !strings.Contains(err.Error(), `category "Appearance"`) {
		t.Errorf("error should name the category: %v", err)
	}
}

func TestShippedWeightsFileMatchesDefault(t *testing.T) {
	m, err := weights.LoadYAML(filepath.Join("..", "..", "data", "section_weights.yaml"))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if !reflect.DeepEqual(m.Entries(), weights.DefaultEntries()) {
		t.Error("data/section_weights.yaml has drifted from the built-in table")
	}
}
