package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	cv "github.com/cohortkit/validator"
	"github.com/cohortkit/validator/cohort"
	"github.com/cohortkit/validator/engine"
	"github.com/cohortkit/validator/provider"
	"github.com/cohortkit/validator/schema"
)

const testDefs = `{
	"AgePhenotype": [
		{"param": "value_filter", "required": true}
	]
}`

func newValidator(t *testing.T) *engine.Validator {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(testDefs))
	}))
	t.Cleanup(srv.Close)

	reg := schema.NewRegistry(schema.NewHTTPSource(srv.URL))
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("registry load: %v", err)
	}
	return engine.New(reg)
}

func brokenCohort() *cohort.Cohort {
	return &cohort.Cohort{
		EntryCriterion: cohort.Phenotype{"id": "p1", "class_name": "AgePhenotype"},
	}
}

func cleanCohort() *cohort.Cohort {
	return &cohort.Cohort{
		EntryCriterion: cohort.Phenotype{
			"id":           "p1",
			"class_name":   "AgePhenotype",
			"value_filter": map[string]any{"min": float64(18)},
		},
	}
}

func TestHub_InitialValidation(t *testing.T) {
	p := provider.NewStatic(brokenCohort())
	h := New(newValidator(t), p)
	defer h.Close()

	report := h.Report()
	if report == nil {
		t.Fatal("Report() = nil; want initial report")
	}
	if report.IssueCount != 1 {
		t.Errorf("IssueCount = %d; want 1", report.IssueCount)
	}
}

func TestHub_NilCohortNoReport(t *testing.T) {
	p := provider.NewStatic(nil)
	h := New(newValidator(t), p)
	defer h.Close()

	if h.Report() != nil {
		t.Error("Report() != nil before any cohort published")
	}
}

func TestHub_ListenerInvokedOncePerPublish(t *testing.T) {
	p := provider.NewStatic(brokenCohort())
	h := New(newValidator(t), p)
	defer h.Close()

	var calls int
	sub := h.AddListener(func(*cv.Report) { calls++ })
	defer sub.Remove()

	if calls != 1 {
		t.Fatalf("calls = %d after AddListener; want 1 (immediate replay)", calls)
	}

	p.Publish(brokenCohort())
	if calls != 2 {
		t.Errorf("calls = %d after publish; want 2", calls)
	}

	p.Publish(cleanCohort())
	if calls != 3 {
		t.Errorf("calls = %d after second publish; want 3", calls)
	}
}

func TestHub_ListenerSeesFreshReport(t *testing.T) {
	p := provider.NewStatic(brokenCohort())
	h := New(newValidator(t), p)
	defer h.Close()

	var last *cv.Report
	sub := h.AddListener(func(r *cv.Report) { last = r })
	defer sub.Remove()

	if last.IssueCount != 1 {
		t.Errorf("IssueCount = %d; want 1", last.IssueCount)
	}

	p.Publish(cleanCohort())
	if last.IssueCount != 0 {
		t.Errorf("IssueCount = %d after clean publish; want 0", last.IssueCount)
	}
}

func TestHub_RemoveStopsInvocations(t *testing.T) {
	p := provider.NewStatic(brokenCohort())
	h := New(newValidator(t), p)
	defer h.Close()

	var calls int
	sub := h.AddListener(func(*cv.Report) { calls++ })
	sub.Remove()
	sub.Remove() // second remove is a no-op

	p.Publish(brokenCohort())
	if calls != 1 {
		t.Errorf("calls = %d; want 1 (initial replay only)", calls)
	}
}

func TestHub_ListenerOrder(t *testing.T) {
	p := provider.NewStatic(nil)
	h := New(newValidator(t), p)
	defer h.Close()

	var order []string
	h.AddListener(func(*cv.Report) { order = append(order, "a") })
	h.AddListener(func(*cv.Report) { order = append(order, "b") })
	h.AddListener(func(*cv.Report) { order = append(order, "c") })

	p.Publish(brokenCohort())

	want := "abc"
	var got string
	for _, s := range order {
		got += s
	}
	if got != want {
		t.Errorf("listener order = %q; want %q", got, want)
	}
}

func TestHub_ReportSwapped(t *testing.T) {
	p := provider.NewStatic(brokenCohort())
	h := New(newValidator(t), p)
	defer h.Close()

	first := h.Report()
	p.Publish(cleanCohort())
	second := h.Report()

	if first == second {
		t.Error("Report() not swapped after publish")
	}
	if second.IssueCount != 0 {
		t.Errorf("IssueCount = %d; want 0", second.IssueCount)
	}
}

func TestHub_CloseDetaches(t *testing.T) {
	p := provider.NewStatic(brokenCohort())
	h := New(newValidator(t), p)

	var calls int
	h.AddListener(func(*cv.Report) { calls++ })

	h.Close()

	p.Publish(brokenCohort())
	if calls != 1 {
		t.Errorf("calls = %d after Close; want 1", calls)
	}
	if h.Report() != nil {
		t.Error("Report() != nil after Close")
	}
}
