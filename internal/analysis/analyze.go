package analysis

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/anomaly"
	"github.com/cellgraph/sheetgraph/internal/costdriver"
	"github.com/cellgraph/sheetgraph/internal/depgraph"
	"github.com/cellgraph/sheetgraph/internal/lex"
	"github.com/cellgraph/sheetgraph/internal/reference"
	"github.com/cellgraph/sheetgraph/internal/workbook"
)

// cancelPollInterval bounds how often a hot inner loop re-checks ctx.Err(),
// per the engine's documented cancellation granularity.
const cancelPollInterval = 1024

// Analyze runs the full pipeline against reader: drain -> tokenize/extract
// per cell (parallel) -> dynamic resolution -> dependency-graph build ->
// anomaly detection and cost-driver ranking (concurrent with each other) ->
// assemble the result document.
func Analyze(ctx context.Context, reader workbook.Reader, opts Options) (*Result, error) {
	records, err := reader.Records()
	if err != nil {
		return nil, &Error{Kind: KindReader, Message: "reading cell records", Err: err}
	}
	sheets, err := reader.SheetNames()
	if err != nil {
		return nil, &Error{Kind: KindReader, Message: "reading sheet names", Err: err}
	}
	namedDefs, err := reader.NamedRanges()
	if err != nil {
		return nil, &Error{Kind: KindReader, Message: "reading named ranges", Err: err}
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	defaultSheet := ""
	if len(sheets) > 0 {
		defaultSheet = sheets[0]
	}

	log := opts.logger()
	log.Debug("reader drained", "record_count", len(records), "sheet_count", len(sheets), "named_range_count", len(namedDefs))

	literalValues := make(map[string]string)
	for _, rec := range records {
		if rec.Formula == "" && rec.HasRaw {
			c := address.Cell{Sheet: rec.Sheet, Row: rec.Row, Col: rec.Col}
			literalValues[rec.Sheet+"!"+c.BareA1()] = rec.RawValue
		}
	}

	defs := make([][2]string, 0, len(namedDefs))
	for _, d := range namedDefs {
		defs = append(defs, [2]string{d.Name, d.Definition})
	}
	namedTable := reference.NewNamedRangeTable(defs, defaultSheet)
	extractFn := func(formula, homeSheet string) reference.ExtractResult {
		return reference.Extract(lex.New(formula).Tokenize(), homeSheet)
	}

	inputs := make([]depgraph.CellInput, len(records))
	errorTokenCells := anomaly.ErrorTokenCells{}
	dynamicHints := anomaly.DynamicUnresolvedHints{}
	var mu sync.Mutex

	resolverOpts := reference.ResolverOptions{FoldStringConcat: opts.FoldStringConcat}

	if err := runParallel(ctx, len(records), func(i int) error {
		rec := records[i]
		addr := address.Cell{Sheet: rec.Sheet, Row: rec.Row, Col: rec.Col}
		in := depgraph.CellInput{
			Address:    addr,
			RawValue:   rec.RawValue,
			HasRaw:     rec.HasRaw,
			Formula:    rec.Formula,
			HasFormula: rec.Formula != "",
		}

		if rec.Formula != "" {
			toks := lex.New(rec.Formula).Tokenize()
			extracted := reference.Extract(toks, rec.Sheet)
			dyn := reference.ResolveDynamic(toks, rec.Sheet, literalValues, resolverOpts)

			refs := make([]reference.Reference, 0, len(extracted.References))
			for _, r := range extracted.References {
				// OFFSET/INDEX's first argument is a positional base, not a
				// value read; it never stands on its own as a dependency.
				if r.EnclosingFunc == "OFFSET" || r.EnclosingFunc == "INDEX" {
					continue
				}
				refs = append(refs, r)
			}

			hadUnresolvedDynamic := false
			for _, d := range dyn {
				if d.Resolved != nil {
					refs = append(refs, *d.Resolved)
				} else {
					hadUnresolvedDynamic = true
				}
			}

			in.References = resolveNamedReferences(refs, namedTable, extractFn)

			if extracted.HasErrorTok || hadUnresolvedDynamic {
				mu.Lock()
				if extracted.HasErrorTok {
					errorTokenCells[addr] = true
				}
				if hadUnresolvedDynamic {
					dynamicHints[addr] = true
				}
				mu.Unlock()
			}
		}

		inputs[i] = in
		return nil
	}); err != nil {
		return nil, err
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	log.Debug("tokenization complete", "cell_count", len(inputs))

	g, err := depgraph.Build(inputs)
	if err != nil {
		return nil, &Error{Kind: KindInternalInvariant, Message: "building dependency graph", Err: err}
	}
	sccs := depgraph.TarjanSCC(g)
	g.Metrics.MaxDepth = depgraph.MaxDepth(g, sccs)
	log.Debug("dependency graph built", "node_count", g.Metrics.NodeCount, "edge_count", g.Metrics.EdgeCount, "max_depth", g.Metrics.MaxDepth)

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	var anomalies []anomaly.Anomaly
	var drivers []costdriver.Driver
	var wg sync.WaitGroup
	if opts.DetectAnomalies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			anomalies = anomaly.Detect(g, dynamicHints, errorTokenCells)
		}()
	}
	if opts.IdentifyCostDrivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drivers = costdriver.Analyze(g, opts.resolvedTopDrivers())
		}()
	}
	wg.Wait()
	log.Debug("anomalies and cost drivers complete", "anomaly_count", len(anomalies), "driver_count", len(drivers))

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	return assembleResult(g, anomalies, drivers, sheets, opts), nil
}

// resolveNamedReferences replaces every Named reference in refs with the
// concrete references it resolves to, dropping any name that is undefined,
// cyclic, or exceeds the resolution-depth bound.
func resolveNamedReferences(refs []reference.Reference, table *reference.NamedRangeTable, extractFn func(string, string) reference.ExtractResult) []reference.Reference {
	out := make([]reference.Reference, 0, len(refs))
	for _, r := range refs {
		if r.Kind != reference.Named {
			out = append(out, r)
			continue
		}
		resolved, err := table.Resolve(r.Name, extractFn)
		if err != nil {
			continue
		}
		for _, rg := range resolved.Ranges {
			out = append(out, reference.Reference{Kind: reference.Named, IsRange: true, Range: rg, EnclosingFunc: r.EnclosingFunc})
		}
		for _, fr := range resolved.FormulaRefs {
			out = append(out, reference.Reference{Kind: reference.Named, IsRange: fr.IsRange, Address: fr.Address, Range: fr.Range, EnclosingFunc: r.EnclosingFunc})
		}
	}
	return out
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &Error{Kind: KindCancelled, Message: "analysis cancelled", Err: ctx.Err()}
	default:
		return nil
	}
}

// runParallel runs fn(0), fn(1), ..., fn(n-1) across a worker pool sized to
// runtime.NumCPU(), polling ctx for cancellation every cancelPollInterval
// dispatched items. The first error returned by any fn aborts the run.
func runParallel(ctx context.Context, n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	indices := make(chan int)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count := 0
			for i := range indices {
				if err := fn(i); err != nil {
					errs <- err
					return
				}
				count++
				if count%cancelPollInterval == 0 {
					if err := checkCancelled(ctx); err != nil {
						errs <- err
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()

	wg.Wait()
	close(errs)

	if err := checkCancelled(ctx); err != nil {
		return err
	}
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func assembleResult(g *depgraph.Graph, anomalies []anomaly.Anomaly, drivers []costdriver.Driver, sheets []string, opts Options) *Result {
	nodes := g.SortedNodes()
	nodeResults := make([]NodeResult, 0, len(nodes))
	formulaCount, inputCount := 0, 0
	complexitySum := 0

	for _, addr := range nodes {
		c := g.Nodes[addr]
		nr := NodeResult{
			ID:         addr.String(),
			Sheet:      addr.Sheet,
			Row:        addr.Row,
			Col:        addr.Col,
			Formula:    c.Formula,
			HasFormula: c.Flags.Has(depgraph.HasFormula),
			IsInput:    c.Flags.Has(depgraph.IsInput),
			IsOutput:   c.Flags.Has(depgraph.IsOutput),
			HasError:   c.Flags.Has(depgraph.HasError),
		}
		if opts.IncludeValues {
			nr.Value = c.RawValue
		}
		if nr.HasFormula {
			formulaCount++
			complexitySum += anomaly.ComplexityCount(c.Formula)
		}
		if nr.IsInput {
			inputCount++
		}
		nodeResults = append(nodeResults, nr)
	}

	edgeResults := make([]EdgeResult, 0, len(g.Edges))
	for _, e := range g.Edges {
		edgeResults = append(edgeResults, EdgeResult{
			Source: e.Source.String(),
			Target: e.Target.String(),
			Kind:   e.Kind.String(),
		})
	}

	anomalyResults := make([]AnomalyResult, 0, len(anomalies))
	for _, a := range anomalies {
		anomalyResults = append(anomalyResults, anomalyToResult(a))
	}

	driverResults := make([]DriverResult, 0, len(drivers))
	for _, d := range drivers {
		driverResults = append(driverResults, driverToResult(d))
	}

	avgComplexity := 0.0
	if formulaCount > 0 {
		avgComplexity = float64(complexitySum) / float64(formulaCount)
	}

	return &Result{
		JobID: uuid.New().String(),
		Graph: GraphResult{
			Nodes: nodeResults,
			Edges: edgeResults,
			Metrics: GraphMetrics{
				NodeCount: g.Metrics.NodeCount,
				EdgeCount: g.Metrics.EdgeCount,
				MaxDepth:  g.Metrics.MaxDepth,
			},
		},
		Anomalies: AnomaliesResult{
			TotalCount: len(anomalyResults),
			Anomalies:  anomalyResults,
		},
		CostDrivers: CostDriversResult{
			TotalDrivers: len(driverResults),
			TopDrivers:   driverResults,
		},
		Metrics: SummaryMetrics{
			SheetCount:    len(sheets),
			FormulaCount:  formulaCount,
			InputCount:    inputCount,
			AvgComplexity: avgComplexity,
		},
	}
}
