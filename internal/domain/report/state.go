// Package report defines the state container for one report-generation run.
package report

// Field identifies one slot of the run State. Steps declare which fields
// they read and write so the executor can validate the graph wiring.
type Field string

const (
	FieldTenant   Field = "tenant"
	FieldRawData  Field = "raw_data"
	FieldGoals    Field = "goals"
	FieldAnalysis Field = "analysis"
	FieldCharts   Field = "charts"
	FieldReport   Field = "report"
)

// NoDataNotice is the marker emitted when a run has no analytics rows to
// report on. Downstream steps pass it through instead of fabricating content.
const NoDataNotice = "No data was found for this reporting period."

// Record is one metric row of an analytics report: field name to value.
type Record map[string]any

// Chart is one rendered chart artifact referenced by the compiled report.
type Chart struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// TenantContext carries the immutable identifiers and credentials a run
// needs. It is set once when the run is dispatched and never mutated.
type TenantContext struct {
	TenantID       string
	GAAccessToken  string
	GARefreshToken string
	GAPropertyID   string
	NotionToken    string
	ReportDays     int // lookback window for the analytics date range
}

// State is the evolving data of a single run. It is owned by the run
// coordinator; steps only ever see clones and return partial Updates.
type State struct {
	Tenant   TenantContext
	RawData  map[string][]Record
	Goals    string
	Analysis string
	Charts   []Chart
	Report   string
}

// Update is a partial set of field writes produced by one step.
// A nil pointer / nil map means the field was not written.
type Update struct {
	RawData  map[string][]Record
	Goals    *string
	Analysis *string
	Charts   []Chart
	Report   *string
}

// Text returns a pointer to s, for populating optional Update fields.
func Text(s string) *string { return &s }

// Fields returns the set of fields this update writes, in declaration order.
func (u Update) Fields() []Field {
	var fields []Field
	if u.RawData != nil {
		fields = append(fields, FieldRawData)
	}
	if u.Goals != nil {
		fields = append(fields, FieldGoals)
	}
	if u.Analysis != nil {
		fields = append(fields, FieldAnalysis)
	}
	if u.Charts != nil {
		fields = append(fields, FieldCharts)
	}
	if u.Report != nil {
		fields = append(fields, FieldReport)
	}
	return fields
}

// Apply merges a partial update into the state.
func (s *State) Apply(u Update) {
	if u.RawData != nil {
		s.RawData = u.RawData
	}
	if u.Goals != nil {
		s.Goals = *u.Goals
	}
	if u.Analysis != nil {
		s.Analysis = *u.Analysis
	}
	if u.Charts != nil {
		s.Charts = u.Charts
	}
	if u.Report != nil {
		s.Report = *u.Report
	}
}

// AllFields lists every State field in declaration order.
func AllFields() []Field {
	return []Field{FieldTenant, FieldRawData, FieldGoals, FieldAnalysis, FieldCharts, FieldReport}
}

// Populated returns the fields carrying a non-zero value. It describes the
// initial state a run starts from; once steps execute, what counts is which
// fields were written, not whether the written value is empty.
func (s *State) Populated() []Field {
	var fields []Field
	for _, f := range AllFields() {
		if s.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Has reports whether the given field holds a non-zero value.
func (s *State) Has(f Field) bool {
	switch f {
	case FieldTenant:
		return s.Tenant.TenantID != ""
	case FieldRawData:
		return s.RawData != nil
	case FieldGoals:
		return s.Goals != ""
	case FieldAnalysis:
		return s.Analysis != ""
	case FieldCharts:
		return s.Charts != nil
	case FieldReport:
		return s.Report != ""
	}
	return false
}

// HasData reports whether any analytics report returned at least one row.
func (s *State) HasData() bool {
	for _, rows := range s.RawData {
		if len(rows) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state. Steps receive clones so a
// misbehaving step cannot mutate the snapshot shared with its siblings.
func (s *State) Clone() State {
	out := *s
	if s.RawData != nil {
		out.RawData = make(map[string][]Record, len(s.RawData))
		for name, rows := range s.RawData {
			copied := make([]Record, len(rows))
			for i, row := range rows {
				rec := make(Record, len(row))
				for k, v := range row {
					rec[k] = v
				}
				copied[i] = rec
			}
			out.RawData[name] = copied
		}
	}
	if s.Charts != nil {
		out.Charts = make([]Chart, len(s.Charts))
		copy(out.Charts, s.Charts)
	}
	return out
}
