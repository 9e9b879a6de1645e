package anomaly

import (
	"testing"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/depgraph"
	"github.com/cellgraph/sheetgraph/internal/reference"
)

func cell(sheet string, row, col uint32) address.Cell {
	return address.Cell{Sheet: sheet, Row: row, Col: col}
}

func TestDetectCircularReference(t *testing.T) {
	a1, b1 := cell("S", 1, 1), cell("S", 1, 2)
	g, err := depgraph.Build([]depgraph.CellInput{
		{Address: a1, Formula: "B1", HasFormula: true, References: []reference.Reference{{Kind: reference.Direct, Address: b1}}},
		{Address: b1, Formula: "A1", HasFormula: true, References: []reference.Reference{{Kind: reference.Direct, Address: a1}}},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	anomalies := Detect(g, nil, nil)
	var circular []Anomaly
	for _, a := range anomalies {
		if a.Type == CircularReference {
			circular = append(circular, a)
		}
	}
	if len(circular) != 2 {
		t.Fatalf("circular_reference anomalies = %d, want 2 (one per cycle member)", len(circular))
	}
}

func TestDetectMissingDependency(t *testing.T) {
	src, missing := cell("S", 1, 1), cell("Missing", 9, 24)
	g, err := depgraph.Build([]depgraph.CellInput{
		{Address: src, Formula: "Missing!X9", HasFormula: true, References: []reference.Reference{{Kind: reference.Direct, Address: missing}}},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	anomalies := Detect(g, nil, nil)
	if len(anomalies) != 1 || anomalies[0].Type != MissingDependency {
		t.Fatalf("anomalies = %+v, want one missing_dependency", anomalies)
	}
}

func TestDetectUnusedFormulaScenarioS6(t *testing.T) {
	z99 := cell("S", 99, 26)
	g, err := depgraph.Build([]depgraph.CellInput{
		{Address: z99, Formula: "1+1", HasFormula: true},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	anomalies := Detect(g, nil, nil)
	if len(anomalies) != 1 || anomalies[0].Type != UnusedFormula || anomalies[0].Severity != Low {
		t.Fatalf("anomalies = %+v, want one low-severity unused_formula", anomalies)
	}
}

func TestDetectHighComplexity(t *testing.T) {
	a1 := cell("S", 1, 1)
	g, err := depgraph.Build([]depgraph.CellInput{
		{Address: a1, Formula: "(A2+A3)*(A4-A5)/A6^A7", HasFormula: true},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	anomalies := Detect(g, nil, nil)
	found := false
	for _, a := range anomalies {
		if a.Type == HighComplexity {
			found = true
		}
	}
	if !found {
		t.Fatalf("anomalies = %+v, want a high_complexity entry", anomalies)
	}
}

func TestDetectDynamicUnresolved(t *testing.T) {
	a1, b1 := cell("S", 1, 1), cell("S", 1, 2)
	g, err := depgraph.Build([]depgraph.CellInput{
		{Address: b1, RawValue: "5", HasRaw: true},
		{
			Address: a1, Formula: `INDIRECT("S!B"&"2")+B1`, HasFormula: true,
			References: []reference.Reference{{Kind: reference.Direct, Address: b1}},
		},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	hints := DynamicUnresolvedHints{a1: true}
	anomalies := Detect(g, hints, nil)
	var found *Anomaly
	for i := range anomalies {
		if anomalies[i].Type == DynamicUnresolved {
			found = &anomalies[i]
		}
	}
	if found == nil || found.Severity != Low {
		t.Fatalf("anomalies = %+v, want a low-severity dynamic_unresolved entry", anomalies)
	}
}

func TestDetectIsDeterministicAndSorted(t *testing.T) {
	src, missing := cell("S", 1, 1), cell("Missing", 9, 24)
	build := func() *depgraph.Graph {
		g, err := depgraph.Build([]depgraph.CellInput{
			{Address: src, Formula: "Missing!X9", HasFormula: true, References: []reference.Reference{{Kind: reference.Direct, Address: missing}}},
			{Address: cell("S", 2, 1), Formula: "1+1", HasFormula: true},
		})
		if err != nil {
			t.Fatalf("Build error: %v", err)
		}
		return g
	}
	first := Detect(build(), nil, nil)
	second := Detect(build(), nil, nil)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic anomaly count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !anomaliesEqualIgnoringMaps(first[i], second[i]) {
			t.Errorf("anomaly[%d] differs across runs: %+v vs %+v", i, first[i], second[i])
		}
	}
	for i := 1; i < len(first); i++ {
		if severityRank(first[i-1].Severity) > severityRank(first[i].Severity) {
			t.Errorf("anomalies not sorted by severity at index %d", i)
		}
	}
}

func anomaliesEqualIgnoringMaps(a, b Anomaly) bool {
	return a.Type == b.Type && a.CellAddress == b.CellAddress && a.Sheet == b.Sheet &&
		a.Severity == b.Severity && a.Description == b.Description
}
