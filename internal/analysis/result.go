package analysis

import (
	"github.com/cellgraph/sheetgraph/internal/anomaly"
	"github.com/cellgraph/sheetgraph/internal/costdriver"
)

// NodeResult is one cell node in the output graph document.
type NodeResult struct {
	ID         string `json:"id"`
	Sheet      string `json:"sheet"`
	Row        uint32 `json:"row"`
	Col        uint32 `json:"col"`
	Value      string `json:"value,omitempty"`
	Formula    string `json:"formula,omitempty"`
	HasFormula bool   `json:"has_formula"`
	IsInput    bool   `json:"is_input"`
	IsOutput   bool   `json:"is_output"`
	HasError   bool   `json:"has_error"`
}

// EdgeResult is one coalesced dependency edge in the output graph document.
type EdgeResult struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// GraphMetrics summarizes the dependency graph.
type GraphMetrics struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
	MaxDepth  int `json:"max_depth"`
}

// GraphResult is the graph section of the output document.
type GraphResult struct {
	Nodes   []NodeResult `json:"nodes"`
	Edges   []EdgeResult `json:"edges"`
	Metrics GraphMetrics `json:"metrics"`
}

// AnomalyResult is one anomaly entry in the output document.
type AnomalyResult struct {
	Type        string         `json:"type"`
	CellAddress string         `json:"cell_address"`
	Sheet       string         `json:"sheet"`
	Severity    string         `json:"severity"`
	Description string         `json:"description"`
	Suggestion  string         `json:"suggestion,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AnomaliesResult is the anomalies section of the output document.
type AnomaliesResult struct {
	TotalCount int             `json:"total_count"`
	Anomalies  []AnomalyResult `json:"anomalies"`
}

// DriverResult is one ranked cost driver in the output document.
type DriverResult struct {
	CellAddress     string  `json:"cell_address"`
	CentralityScore float64 `json:"centrality_score"`
	ImpactScore     float64 `json:"impact_score"`
	DependentCount  int     `json:"dependent_count"`
	Description     string  `json:"description"`
}

// CostDriversResult is the cost_drivers section of the output document.
type CostDriversResult struct {
	TotalDrivers int            `json:"total_drivers"`
	TopDrivers   []DriverResult `json:"top_drivers"`
}

// SummaryMetrics is the top-level metrics section of the output document.
type SummaryMetrics struct {
	SheetCount    int     `json:"sheet_count"`
	FormulaCount  int     `json:"formula_count"`
	InputCount    int     `json:"input_count"`
	AvgComplexity float64 `json:"avg_complexity"`
}

// Result is the single document analyze produces.
type Result struct {
	JobID       string            `json:"job_id"`
	Graph       GraphResult       `json:"graph"`
	Anomalies   AnomaliesResult   `json:"anomalies"`
	CostDrivers CostDriversResult `json:"cost_drivers"`
	Metrics     SummaryMetrics    `json:"metrics"`
}

func anomalyToResult(a anomaly.Anomaly) AnomalyResult {
	return AnomalyResult{
		Type:        string(a.Type),
		CellAddress: a.CellAddress.String(),
		Sheet:       a.Sheet,
		Severity:    string(a.Severity),
		Description: a.Description,
		Suggestion:  a.Suggestion,
		Metadata:    a.Metadata,
	}
}

func driverToResult(d costdriver.Driver) DriverResult {
	return DriverResult{
		CellAddress:     d.CellAddress.String(),
		CentralityScore: d.CentralityScore,
		ImpactScore:     d.ImpactScore,
		DependentCount:  d.DependentCount,
		Description:     d.Description,
	}
}
