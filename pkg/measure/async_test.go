package measure

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/masonry/pkg/catalog"
)

func lengthMeasurer() Measurer {
	return MeasurerFunc(func(ctx context.Context, text string, width float64) (float64, error) {
		if strings.HasPrefix(text, "fail") {
			return 0, errors.New("cannot shape")
		}
		return float64(len(text)), nil
	})
}

func collect(t *testing.T, ch <-chan catalog.Report, n int) []catalog.Report {
	t.Helper()
	var out []catalog.Report
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case r := <-ch:
			out = append(out, r)
		case <-timeout:
			t.Fatalf("got %d reports, want %d", len(out), n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func TestAsyncProbe(t *testing.T) {
	p := NewAsyncProbe(context.Background(), lengthMeasurer(), AsyncOptions{Workers: 2})
	defer p.Close()

	p.Request(Request{ID: "a", Text: "one", Width: 100})
	p.Request(Request{ID: "b", Text: "three", Width: 100})
	p.Request(Request{ID: "c", Text: "seventeen", Width: 100})

	got := collect(t, p.Reports(), 3)
	want := []catalog.Report{{ID: "a", Height: 3}, {ID: "b", Height: 5}, {ID: "c", Height: 9}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("report %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAsyncProbeFailureIsSilent(t *testing.T) {
	p := NewAsyncProbe(context.Background(), lengthMeasurer(), AsyncOptions{Buffer: 4})

	p.Request(Request{ID: "bad", Text: "fail now", Width: 100})
	p.Request(Request{ID: "ok", Text: "fine", Width: 100})

	got := collect(t, p.Reports(), 1)
	if got[0].ID != "ok" {
		t.Errorf("report = %+v, want ok", got[0])
	}
	p.Close()
	for r := range p.Reports() {
		t.Errorf("unexpected report after close: %+v", r)
	}
}

func TestAsyncProbeClose(t *testing.T) {
	block := make(chan struct{})
	m := MeasurerFunc(func(ctx context.Context, _ string, _ float64) (float64, error) {
		select {
		case <-block:
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	p := NewAsyncProbe(context.Background(), m, AsyncOptions{Workers: 1})
	p.Request(Request{ID: "a", Text: "x", Width: 1})
	p.Request(Request{ID: "b", Text: "y", Width: 1})

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	if _, ok := <-p.Reports(); ok {
		t.Error("reports channel should be closed")
	}
	p.Request(Request{ID: "late", Text: "z", Width: 1})
	if err := p.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestAsyncProbeWithCoordinator(t *testing.T) {
	p := NewAsyncProbe(context.Background(), lengthMeasurer(), AsyncOptions{})
	defer p.Close()

	cat := newCatalog(t, pin("a", "four"), pin("b", ""), pin("c", "sixsix"))
	c := NewCoordinator(p, CoordinatorOptions{Width: 224})
	issued := c.Issue(cat)
	if len(issued.Probed) != 2 {
		t.Fatalf("probed %v", issued.Probed)
	}

	for _, r := range collect(t, p.Reports(), 2) {
		c.Deliver(cat, r)
	}
	if !cat.AllResolved() {
		t.Fatal("catalog should be resolved")
	}
	if it, _ := cat.Item("c"); it.CaptionHeight != 6 {
		t.Errorf("c height = %v, want 6", it.CaptionHeight)
	}
}
