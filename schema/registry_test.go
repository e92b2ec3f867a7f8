package schema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	cv "github.com/cohortkit/validator"
)

func TestRegistry_Load(t *testing.T) {
	reg := NewRegistry(NewEmbeddedSource())

	if reg.Loaded() {
		t.Error("Loaded() = true before Load")
	}

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !reg.Loaded() {
		t.Error("Loaded() = false after Load")
	}
	if reg.Len() == 0 {
		t.Error("Len() = 0 after Load")
	}
}

func TestRegistry_LoadIdempotent(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(validDoc))
	}))
	defer srv.Close()

	reg := NewRegistry(NewHTTPSource(srv.URL))
	for i := 0; i < 3; i++ {
		if err := reg.Load(context.Background()); err != nil {
			t.Fatalf("Load() #%d error: %v", i, err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("fetches = %d; want 1 (load is idempotent after success)", got)
	}
}

func TestRegistry_LoadFailureLeavesRegistryEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := NewRegistry(NewHTTPSource(srv.URL))
	if err := reg.Load(context.Background()); err == nil {
		t.Fatal("Load() error = nil; want error")
	}

	if reg.Loaded() {
		t.Error("Loaded() = true after failed load")
	}
	if _, ok := reg.Definition("AgePhenotype"); ok {
		t.Error("Definition() found a class after failed load")
	}
}

func TestRegistry_RetryAfterFailure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(validDoc))
	}))
	defer srv.Close()

	reg := NewRegistry(NewHTTPSource(srv.URL))

	if err := reg.Load(context.Background()); err == nil {
		t.Fatal("first Load() should fail")
	}

	// Explicit re-invocation after failure re-attempts the fetch.
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
	if !reg.Loaded() {
		t.Error("Loaded() = false after successful retry")
	}
}

func TestRegistry_Definition(t *testing.T) {
	reg := NewRegistry(NewEmbeddedSource())

	// Before load every lookup misses.
	if _, ok := reg.Definition("AgePhenotype"); ok {
		t.Error("Definition() found a class before load")
	}

	if err := reg.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	params, ok := reg.Definition("AgePhenotype")
	if !ok {
		t.Fatal("Definition(AgePhenotype) not found after load")
	}

	want := []ParamSpec{
		{Param: "value_filter", Required: true},
		{Param: "anchor_phenotype", Required: false},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("Definition(AgePhenotype) mismatch (-want +got):\n%s", diff)
	}

	if _, ok := reg.Definition("NoSuchPhenotype"); ok {
		t.Error("Definition(NoSuchPhenotype) found; want miss")
	}
}

func TestRegistry_Classes(t *testing.T) {
	reg := NewRegistry(NewEmbeddedSource())

	if got := reg.Classes(); got != nil {
		t.Errorf("Classes() before load = %v; want nil", got)
	}

	if err := reg.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	classes := reg.Classes()
	if len(classes) == 0 {
		t.Fatal("Classes() empty after load")
	}
	for i := 1; i < len(classes); i++ {
		if classes[i-1] >= classes[i] {
			t.Errorf("Classes() not sorted: %q >= %q", classes[i-1], classes[i])
		}
	}
}

func TestRegistry_Metrics(t *testing.T) {
	m := cv.NewMetrics()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := NewRegistry(NewHTTPSource(srv.URL), WithRegistryMetrics(m))
	_ = reg.Load(context.Background())

	if got := m.LoadsTotal(); got != 1 {
		t.Errorf("LoadsTotal() = %d; want 1", got)
	}
	if got := m.LoadsFailed(); got != 1 {
		t.Errorf("LoadsFailed() = %d; want 1", got)
	}
}

func TestRegistry_ConcurrentLoadAndLookup(t *testing.T) {
	reg := NewRegistry(NewEmbeddedSource())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Load(context.Background())
			reg.Definition("AgePhenotype")
			reg.Loaded()
		}()
	}
	wg.Wait()

	if !reg.Loaded() {
		t.Error("Loaded() = false after concurrent loads")
	}
}
