package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alytics/alytics/internal/domain"
	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/domain/tenant"
	"github.com/alytics/alytics/internal/graph"
	"github.com/alytics/alytics/internal/port/analytics"
	"github.com/alytics/alytics/internal/port/charts"
	"github.com/alytics/alytics/internal/port/textgen"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- collaborator stubs ---

type stubTenants struct {
	goals    string
	goalsErr error
}

func (s *stubTenants) GetTenant(context.Context, string) (*tenant.Config, error) {
	return nil, domain.ErrNotFound
}

func (s *stubTenants) ListDueTenants(context.Context, time.Time) ([]tenant.Config, error) {
	return nil, nil
}

func (s *stubTenants) UpdateNextRun(context.Context, string, time.Time) error { return nil }

func (s *stubTenants) Goals(context.Context, string) (string, error) {
	return s.goals, s.goalsErr
}

type stubAnalytics struct {
	data map[string][]report.Record
	err  error
}

func (s *stubAnalytics) FetchReports(context.Context, analytics.Credentials, analytics.DateRange) (map[string][]report.Record, error) {
	return s.data, s.err
}

type stubGen struct {
	mu     sync.Mutex
	calls  []textgen.Role
	inputs map[textgen.Role]textgen.Input
	err    error
}

func (s *stubGen) Generate(_ context.Context, role textgen.Role, in textgen.Input) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, role)
	if s.inputs == nil {
		s.inputs = make(map[textgen.Role]textgen.Input)
	}
	s.inputs[role] = in
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "text from " + string(role), nil
}

func (s *stubGen) input(role textgen.Role) textgen.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs[role]
}

func (s *stubGen) roles() []textgen.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]textgen.Role(nil), s.calls...)
}

type stubRenderer struct {
	mu       sync.Mutex
	requests []charts.RenderRequest
	err      error
}

func (s *stubRenderer) Render(_ context.Context, req charts.RenderRequest) ([]byte, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []byte("png-bytes"), nil
}

func (s *stubRenderer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubObjects struct {
	mu      sync.Mutex
	uploads []string
	err     error
}

func (s *stubObjects) Upload(_ context.Context, name string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	s.uploads = append(s.uploads, name)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "https://signed.example/" + name, nil
}

type createdDoc struct {
	locationID string
	title      string
	markdown   string
}

type stubDocs struct {
	mu         sync.Mutex
	created    []createdDoc
	resolveErr error
	createErr  error
}

func (s *stubDocs) ResolveLocation(_ context.Context, _, hint string) (string, error) {
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	return "page-for-" + hint, nil
}

func (s *stubDocs) CreateDocument(_ context.Context, _, locationID, title, markdown string) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, createdDoc{locationID: locationID, title: title, markdown: markdown})
	s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	return "doc-1", nil
}

func (s *stubDocs) docs() []createdDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]createdDoc(nil), s.created...)
}

// --- workflow tests ---

type workflowFixture struct {
	tenants  *stubTenants
	data     *stubAnalytics
	gen      *stubGen
	renderer *stubRenderer
	objects  *stubObjects
	docs     *stubDocs
}

func newFixture(data map[string][]report.Record) *workflowFixture {
	return &workflowFixture{
		tenants:  &stubTenants{goals: "Grow weekly active users."},
		data:     &stubAnalytics{data: data},
		gen:      &stubGen{},
		renderer: &stubRenderer{},
		objects:  &stubObjects{},
		docs:     &stubDocs{},
	}
}

func (f *workflowFixture) run(t *testing.T) (*report.State, error) {
	t.Helper()
	def, err := ReportDefinition()
	if err != nil {
		t.Fatalf("ReportDefinition: %v", err)
	}
	reg := NewRegistry(Collaborators{
		Tenants:    f.tenants,
		Analytics:  f.data,
		TextGen:    f.gen,
		Charts:     f.renderer,
		Objects:    f.objects,
		Docs:       f.docs,
		ParentHint: "Reports",
	}, report.DefaultChartSpecs())

	initial := report.State{Tenant: report.TenantContext{
		TenantID:    "tenant-1",
		NotionToken: "tok",
		ReportDays:  7,
	}}
	return graph.NewExecutor(discardLogger()).Run(context.Background(), def, reg, initial)
}

func sampleData() map[string][]report.Record {
	return map[string][]report.Record{
		"Top Pages": {
			{"pagePath": "/", "screenPageViews": 120.0},
			{"pagePath": "/pricing", "screenPageViews": 45.0},
		},
		"Source Engagement": {},
		"Country Report": {
			{"country": "Germany", "activeUsers": 80.0},
		},
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	f := newFixture(sampleData())

	state, err := f.run(t)
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}

	// One chart per spec that had rows; the empty Source Engagement report
	// is skipped rather than rendered blank.
	if got := f.renderer.count(); got != 2 {
		t.Fatalf("rendered %d charts, want 2", got)
	}
	if len(state.Charts) != 2 {
		t.Fatalf("state has %d charts, want 2: %+v", len(state.Charts), state.Charts)
	}
	if state.Charts[0].Title != "Top_Pages" || state.Charts[1].Title != "Source_Country" {
		t.Fatalf("charts out of spec order: %+v", state.Charts)
	}
	for _, c := range state.Charts {
		if !strings.HasPrefix(c.URL, "https://signed.example/tenant-1/") {
			t.Fatalf("chart URL not signed upload: %q", c.URL)
		}
	}

	roles := f.gen.roles()
	if len(roles) != 3 {
		t.Fatalf("generator called %d times, want 3: %v", len(roles), roles)
	}
	seen := map[textgen.Role]bool{}
	for _, r := range roles {
		seen[r] = true
	}
	if !seen[textgen.RoleAnalyst] || !seen[textgen.RoleCopywriter] || !seen[textgen.RoleCriticalThinker] {
		t.Fatalf("missing persona: %v", roles)
	}

	// The critique rewrite is what gets published, not the compile draft.
	if state.Report != "text from critical_thinker" {
		t.Fatalf("final report = %q", state.Report)
	}
	docs := f.docs.docs()
	if len(docs) != 1 {
		t.Fatalf("created %d documents, want 1", len(docs))
	}
	if docs[0].locationID != "page-for-Reports" {
		t.Fatalf("published under %q", docs[0].locationID)
	}
	wantTitle := "Weekly Report " + time.Now().UTC().Format("2006-01-02")
	if docs[0].title != wantTitle {
		t.Fatalf("title = %q, want %q", docs[0].title, wantTitle)
	}
	if docs[0].markdown != state.Report {
		t.Fatal("published markdown differs from final report")
	}
}

func TestCompileReceivesGatheredData(t *testing.T) {
	f := newFixture(sampleData())

	if _, err := f.run(t); err != nil {
		t.Fatalf("workflow: %v", err)
	}

	in := f.gen.input(textgen.RoleCopywriter)
	if in.Data == nil {
		t.Fatal("copywriter input carried no raw data")
	}
	if got := len(in.Data["Top Pages"]); got != 2 {
		t.Fatalf("copywriter saw %d Top Pages rows, want 2", got)
	}
	if in.Goals == "" || in.Analysis == "" || len(in.Charts) != 2 {
		t.Fatalf("copywriter input incomplete: %+v", in)
	}
}

func TestWorkflowNoData(t *testing.T) {
	f := newFixture(map[string][]report.Record{
		"Top Pages":         {},
		"Source Engagement": {},
		"Country Report":    {},
	})

	state, err := f.run(t)
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}

	if state.Report != report.NoDataNotice {
		t.Fatalf("report = %q, want no-data notice", state.Report)
	}
	if got := f.gen.roles(); len(got) != 0 {
		t.Fatalf("generator should not run without data, calls: %v", got)
	}
	if f.renderer.count() != 0 {
		t.Fatal("no charts should render without data")
	}

	// The notice is still published so the tenant sees the period was covered.
	docs := f.docs.docs()
	if len(docs) != 1 || docs[0].markdown != report.NoDataNotice {
		t.Fatalf("notice not published: %+v", docs)
	}
}

func TestWorkflowGatherFailureAborts(t *testing.T) {
	f := newFixture(nil)
	f.data.err = errors.New("analytics down")

	_, err := f.run(t)
	var stepErr *graph.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T: %v", err, err)
	}
	if stepErr.Step != StepGatherData {
		t.Fatalf("failing step = %q, want %q", stepErr.Step, StepGatherData)
	}
	if len(f.docs.docs()) != 0 {
		t.Fatal("nothing should publish after a gather failure")
	}
	if got := f.gen.roles(); len(got) != 0 {
		t.Fatalf("generator should not run after a gather failure: %v", got)
	}
}

func TestWorkflowRenderFailureAborts(t *testing.T) {
	f := newFixture(sampleData())
	f.renderer.err = errors.New("renderer down")

	_, err := f.run(t)
	var stepErr *graph.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T: %v", err, err)
	}
	if stepErr.Step != StepRenderCharts {
		t.Fatalf("failing step = %q, want %q", stepErr.Step, StepRenderCharts)
	}
	if len(f.docs.docs()) != 0 {
		t.Fatal("nothing should publish after a render failure")
	}
}

func TestWorkflowPublishFailureSurfaces(t *testing.T) {
	f := newFixture(sampleData())
	f.docs.createErr = errors.New("notion 500")

	_, err := f.run(t)
	var stepErr *graph.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T: %v", err, err)
	}
	if stepErr.Step != StepPublish {
		t.Fatalf("failing step = %q, want %q", stepErr.Step, StepPublish)
	}
}

func TestBuildRenderRequest(t *testing.T) {
	spec := report.ChartSpec{
		DataKey:   "Source Engagement",
		Title:     "Source_Engagement",
		LabelKey:  "sessionSource",
		ValueKeys: []string{"activeUsers", "averageSessionDuration"},
		Kind:      "line",
	}
	rows := []report.Record{
		{"sessionSource": "google", "activeUsers": 10.0, "averageSessionDuration": 92.5},
		{"sessionSource": nil, "activeUsers": 3, "averageSessionDuration": "bogus"},
	}

	req := buildRenderRequest(spec, rows)
	if fmt.Sprint(req.Labels) != "[google unknown]" {
		t.Fatalf("labels = %v", req.Labels)
	}
	if len(req.Datasets) != 2 {
		t.Fatalf("datasets = %d, want 2", len(req.Datasets))
	}
	if req.Datasets[0].Data[0] != 10 || req.Datasets[0].Data[1] != 3 {
		t.Fatalf("activeUsers series = %v", req.Datasets[0].Data)
	}
	// Non-numeric metric values degrade to zero rather than failing.
	if req.Datasets[1].Data[1] != 0 {
		t.Fatalf("bogus metric should plot as 0, got %v", req.Datasets[1].Data[1])
	}
}
