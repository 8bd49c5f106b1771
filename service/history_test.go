package service

import (
	"strings"
	"testing"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
)

func historyFixture(n int) []model.EvaluationResult {
	results := make([]model.EvaluationResult, n)
	for i := range results {
		results[i] = model.EvaluationResult{ID: uint(i + 1), ContractorID: 1, Score: i % 11}
	}
	return results
}

func TestPaginate(t *testing.T) {
	results := historyFixture(25)

	tests := []struct {
		name      string
		pageSize  int
		page      int
		wantLen   int
		wantFirst uint
	}{
		{"first page", 10, 1, 10, 1},
		{"middle page", 10, 2, 10, 11},
		{"short last page", 10, 3, 5, 21},
		{"page past end clamps to last", 10, 99, 5, 21},
		{"page size covers all", 100, 1, 25, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(results, tt.pageSize, tt.page)
			if len(got) != tt.wantLen {
				t.Fatalf("Expected %d items, got %d", tt.wantLen, len(got))
			}
			if got[0].ID != tt.wantFirst {
				t.Errorf("Expected first ID %d, got %d", tt.wantFirst, got[0].ID)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	if got := Paginate(nil, 10, 1); got != nil {
		t.Errorf("Expected nil for empty history, got %v", got)
	}
}

func TestCleanScaffold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full scaffold", "SCORE: 7\nEXPLANATION: **within range**", "within range"},
		{"lowercase", "score 3 explanation weak plan", "weak plan"},
		{"markdown only", "# Heading with `code` and _emphasis_", "Heading with code and emphasis"},
		{"plain prose", "nothing to strip here", "nothing to strip here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanScaffold(tt.input); got != tt.want {
				t.Errorf("CleanScaffold(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExportTable(t *testing.T) {
	results := []model.EvaluationResult{
		{CriteriaPrompt: "ISO 9001 certification", Score: 7, Comment: "SCORE: 7\nEXPLANATION: certified since 2021"},
		{CriteriaPrompt: "Delivery schedule", Score: 4, Comment: "timeline too tight"},
	}

	out, err := ExportTable("Acme", results)
	if err != nil {
		t.Fatalf("ExportTable failed: %v", err)
	}
	body := string(out)

	for _, want := range []string{
		"<th style=\"width: 150px;\">Contractor</th>",
		"Acme",
		"ISO 9001 certification",
		">Pass</td>",
		">Fail</td>",
		"certified since 2021",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Export missing %q", want)
		}
	}

	// Response scaffolding must not leak into the sheet.
	if strings.Contains(body, "SCORE:") || strings.Contains(body, "EXPLANATION:") {
		t.Error("Export still contains scaffold markers")
	}
}

func TestExportTableThreshold(t *testing.T) {
	out, err := ExportTable("Acme", []model.EvaluationResult{
		{CriteriaPrompt: "p", Score: PassThreshold, Comment: "exactly at threshold"},
	})
	if err != nil {
		t.Fatalf("ExportTable failed: %v", err)
	}
	if !strings.Contains(string(out), ">Pass</td>") {
		t.Error("Score at threshold must classify as Pass")
	}
}

func TestExportFilename(t *testing.T) {
	if got := ExportFilename("Acme"); got != "evaluation_Acme.xls" {
		t.Errorf("Unexpected filename: %s", got)
	}
}
