package analysis

import (
	"context"
	"testing"

	"github.com/cellgraph/sheetgraph/internal/workbook"
)

func rec(sheet string, row, col uint32, raw, formula string) workbook.Record {
	r := workbook.Record{Sheet: sheet, Row: row, Col: col}
	if formula != "" {
		r.Formula = formula
	} else if raw != "" {
		r.RawValue = raw
		r.HasRaw = true
	}
	return r
}

func mustAnalyze(t *testing.T, records []workbook.Record, sheets []string, named []workbook.NamedRangeDef, opts Options) *Result {
	t.Helper()
	reader := workbook.NewSliceReader(records, sheets, named)
	res, err := Analyze(context.Background(), reader, opts)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return res
}

func TestAnalyzeScenarioS1SimpleSum(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "1", ""),
		rec("S", 2, 1, "2", ""),
		rec("S", 3, 1, "", "A1+A2"),
	}
	res := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())

	if res.Graph.Metrics.NodeCount != 3 {
		t.Fatalf("NodeCount = %d, want 3", res.Graph.Metrics.NodeCount)
	}
	if res.Graph.Metrics.EdgeCount != 2 {
		t.Fatalf("EdgeCount = %d, want 2", res.Graph.Metrics.EdgeCount)
	}
	if res.Anomalies.TotalCount != 0 {
		t.Fatalf("TotalCount = %d, want 0; anomalies=%+v", res.Anomalies.TotalCount, res.Anomalies.Anomalies)
	}

	byID := map[string]NodeResult{}
	for _, n := range res.Graph.Nodes {
		byID[n.ID] = n
	}
	if !byID["S!A3"].IsOutput {
		t.Error("S!A3.IsOutput = false, want true")
	}
	if !byID["S!A1"].IsInput || !byID["S!A2"].IsInput {
		t.Error("A1/A2.IsInput = false, want true")
	}
}

func TestAnalyzeScenarioS2Cycle(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "", "B1"),
		rec("S", 1, 2, "", "A1"),
	}
	res := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())

	var cycles []AnomalyResult
	for _, a := range res.Anomalies.Anomalies {
		if a.Type == "circular_reference" {
			cycles = append(cycles, a)
		}
	}
	if len(cycles) != 2 {
		t.Fatalf("got %d circular_reference anomalies, want 2", len(cycles))
	}
	if _, ok := cycles[0].Metadata["cycle"]; !ok {
		t.Error(`circular_reference anomaly missing "cycle" metadata`)
	}

	if res.Graph.Metrics.MaxDepth != 1 {
		t.Fatalf("MaxDepth = %d, want 1", res.Graph.Metrics.MaxDepth)
	}
}

func TestAnalyzeScenarioS3CrossSheetRange(t *testing.T) {
	records := []workbook.Record{
		rec("Summary", 1, 1, "", "SUM(Data!B2:B4)"),
		rec("Data", 2, 2, "1", ""),
		rec("Data", 3, 2, "2", ""),
		rec("Data", 4, 2, "3", ""),
	}
	res := mustAnalyze(t, records, []string{"Summary", "Data"}, nil, DefaultOptions())

	count := 0
	for _, e := range res.Graph.Edges {
		if e.Source == "Summary!A1" && e.Kind == "range_member" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("range_member edges from Summary!A1 = %d, want 3", count)
	}
}

func TestAnalyzeScenarioS4BrokenReference(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "", "Missing!X9"),
	}
	res := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())

	found := false
	for _, a := range res.Anomalies.Anomalies {
		if a.Type == "missing_dependency" && a.CellAddress == "S!A1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no missing_dependency anomaly on S!A1; got %+v", res.Anomalies.Anomalies)
	}

	var a1 NodeResult
	for _, n := range res.Graph.Nodes {
		if n.ID == "S!A1" {
			a1 = n
		}
	}
	if a1.HasError {
		t.Error("S!A1.HasError = true, want false")
	}
}

func TestAnalyzeScenarioS5DynamicUnresolvedByDefault(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "", `INDIRECT("S!B"&"2")`),
		rec("S", 2, 2, "5", ""),
	}
	res := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())

	for _, e := range res.Graph.Edges {
		if e.Source == "S!A1" {
			t.Fatalf("expected no edge from S!A1 with folding disabled, got %+v", e)
		}
	}
	found := false
	for _, a := range res.Anomalies.Anomalies {
		if a.Type == "dynamic_unresolved" && a.CellAddress == "S!A1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no dynamic_unresolved anomaly on S!A1; got %+v", res.Anomalies.Anomalies)
	}
}

func TestAnalyzeScenarioS5DynamicResolvedWithFolding(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "", `INDIRECT("S!B"&"2")`),
		rec("S", 2, 2, "5", ""),
	}
	opts := DefaultOptions()
	opts.FoldStringConcat = true
	res := mustAnalyze(t, records, []string{"S"}, nil, opts)

	found := false
	for _, e := range res.Graph.Edges {
		if e.Source == "S!A1" && e.Target == "S!B2" && e.Kind == "dynamic" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dynamic edge S!A1 -> S!B2 with folding enabled, got %+v", res.Graph.Edges)
	}
}

func TestAnalyzeScenarioS6UnusedFormula(t *testing.T) {
	records := []workbook.Record{
		rec("S", 99, 26, "", "1+1"),
	}
	res := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())

	if res.Anomalies.TotalCount != 1 {
		t.Fatalf("TotalCount = %d, want 1; got %+v", res.Anomalies.TotalCount, res.Anomalies.Anomalies)
	}
	a := res.Anomalies.Anomalies[0]
	if a.Type != "unused_formula" || a.Severity != "low" {
		t.Fatalf("anomaly = %+v, want unused_formula/low", a)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "1", ""),
		rec("S", 2, 1, "", "A1*2"),
		rec("S", 3, 1, "", "B1"),
		rec("S", 4, 1, "", "A1"),
	}
	r1 := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())
	r2 := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())

	if len(r1.Graph.Nodes) != len(r2.Graph.Nodes) || len(r1.Graph.Edges) != len(r2.Graph.Edges) {
		t.Fatalf("graph shapes differ across runs")
	}
	for i := range r1.Graph.Edges {
		if r1.Graph.Edges[i] != r2.Graph.Edges[i] {
			t.Fatalf("edge order differs at %d: %+v vs %+v", i, r1.Graph.Edges[i], r2.Graph.Edges[i])
		}
	}
	for i := range r1.Graph.Nodes {
		if r1.Graph.Nodes[i].ID != r2.Graph.Nodes[i].ID {
			t.Fatalf("node order differs at %d", i)
		}
	}
}

func TestAnalyzeEmptyWorkbook(t *testing.T) {
	res := mustAnalyze(t, nil, nil, nil, DefaultOptions())
	if res.Graph.Metrics.NodeCount != 0 || res.Graph.Metrics.EdgeCount != 0 {
		t.Fatalf("expected empty graph, got %+v", res.Graph.Metrics)
	}
	if res.Anomalies.TotalCount != 0 || res.CostDrivers.TotalDrivers != 0 {
		t.Fatalf("expected no anomalies/drivers on empty workbook")
	}
}

func TestAnalyzeNamedRangeResolvesToConcreteEdges(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "", "SUM(Budget)"),
		rec("S", 2, 1, "10", ""),
		rec("S", 3, 1, "20", ""),
	}
	named := []workbook.NamedRangeDef{{Name: "Budget", Definition: "S!A2:A3"}}
	res := mustAnalyze(t, records, []string{"S"}, named, DefaultOptions())

	count := 0
	for _, e := range res.Graph.Edges {
		if e.Source == "S!A1" && e.Kind == "named" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("named edges from S!A1 = %d, want 2; edges=%+v", count, res.Graph.Edges)
	}
}

func TestAnalyzeOffsetBaseArgumentNotItselfADependency(t *testing.T) {
	records := []workbook.Record{
		rec("S", 1, 1, "", "OFFSET(B2,1,0)"),
		rec("S", 2, 2, "1", ""),
		rec("S", 3, 2, "2", ""),
	}
	res := mustAnalyze(t, records, []string{"S"}, nil, DefaultOptions())

	for _, e := range res.Graph.Edges {
		if e.Source == "S!A1" && e.Target == "S!B2" {
			t.Fatalf("OFFSET base argument B2 should not appear as its own edge, got %+v", e)
		}
	}
	found := false
	for _, e := range res.Graph.Edges {
		if e.Source == "S!A1" && e.Target == "S!B3" && e.Kind == "dynamic" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected resolved OFFSET edge S!A1 -> S!B3, got %+v", res.Graph.Edges)
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := workbook.NewSliceReader([]workbook.Record{rec("S", 1, 1, "1", "")}, []string{"S"}, nil)
	_, err := Analyze(ctx, reader, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error from a pre-cancelled context")
	}
	analysisErr, ok := err.(*Error)
	if !ok || analysisErr.Kind != KindCancelled {
		t.Fatalf("err = %v, want *Error{Kind: KindCancelled}", err)
	}
}

func TestAnalyzeOptionsSkipAnomaliesAndCostDrivers(t *testing.T) {
	records := []workbook.Record{
		rec("S", 99, 26, "", "1+1"),
	}
	opts := DefaultOptions()
	opts.DetectAnomalies = false
	opts.IdentifyCostDrivers = false
	res := mustAnalyze(t, records, []string{"S"}, nil, opts)

	if res.Anomalies.TotalCount != 0 || len(res.Anomalies.Anomalies) != 0 {
		t.Fatalf("expected anomalies skipped, got %+v", res.Anomalies)
	}
	if res.CostDrivers.TotalDrivers != 0 || len(res.CostDrivers.TopDrivers) != 0 {
		t.Fatalf("expected cost drivers skipped, got %+v", res.CostDrivers)
	}
}

func TestAnalyzeIncludeValuesFalseStripsRawValue(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeValues = false
	records := []workbook.Record{rec("S", 1, 1, "42", "")}
	res := mustAnalyze(t, records, []string{"S"}, nil, opts)

	if res.Graph.Nodes[0].Value != "" {
		t.Fatalf("Value = %q, want empty when IncludeValues=false", res.Graph.Nodes[0].Value)
	}
}
