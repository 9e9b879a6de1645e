package workbook

// SliceReader is an in-memory Reader fixture: its contents are supplied
// directly rather than decoded from a file, for tests and for any caller
// that has already materialized its records.
type SliceReader struct {
	records     []Record
	sheetNames  []string
	namedRanges []NamedRangeDef
}

// NewSliceReader builds a SliceReader over the given records, sheet names,
// and named-range definitions.
func NewSliceReader(records []Record, sheetNames []string, namedRanges []NamedRangeDef) *SliceReader {
	return &SliceReader{records: records, sheetNames: sheetNames, namedRanges: namedRanges}
}

func (r *SliceReader) Records() ([]Record, error) { return r.records, nil }

func (r *SliceReader) SheetNames() ([]string, error) { return r.sheetNames, nil }

func (r *SliceReader) NamedRanges() ([]NamedRangeDef, error) { return r.namedRanges, nil }
