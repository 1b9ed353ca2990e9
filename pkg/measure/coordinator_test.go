package measure

import (
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/masonry/pkg/catalog"
)

type recorder struct{ reqs []Request }

func (r *recorder) Request(req Request) { r.reqs = append(r.reqs, req) }

func (r *recorder) ids() []string {
	out := make([]string, len(r.reqs))
	for i, req := range r.reqs {
		out[i] = req.ID
	}
	return out
}

// reply answers the most recent request for id.
func (r *recorder) reply(id string, h float64) catalog.Report {
	for i := len(r.reqs) - 1; i >= 0; i-- {
		if r.reqs[i].ID == id {
			return r.reqs[i].Report(h)
		}
	}
	return catalog.Report{ID: id, Height: h}
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func pin(id, caption string) catalog.Item {
	return catalog.Item{ID: id, Caption: caption, NaturalWidth: 236, NaturalHeight: 300}
}

func newCatalog(t *testing.T, items ...catalog.Item) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(items...)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func TestIssueEmptyCaptionSkipsProbe(t *testing.T) {
	cat := newCatalog(t, pin("a", ""), pin("b", "   "), pin("c", "Harbour at dusk"))
	rec := &recorder{}
	c := NewCoordinator(rec, CoordinatorOptions{Width: 224})

	got := c.Issue(cat)

	if !slices.Equal(got.Resolved, []string{"a", "b"}) {
		t.Errorf("Resolved = %v, want [a b]", got.Resolved)
	}
	if !slices.Equal(got.Probed, []string{"c"}) {
		t.Errorf("Probed = %v, want [c]", got.Probed)
	}
	if !slices.Equal(rec.ids(), []string{"c"}) {
		t.Errorf("probe requests = %v, want [c]", rec.ids())
	}
	a, _ := cat.Item("a")
	if a.State != catalog.Resolved || a.CaptionHeight != 0 {
		t.Errorf("empty caption: state=%s height=%v, want resolved 0", a.State, a.CaptionHeight)
	}
	cItem, _ := cat.Item("c")
	if cItem.State != catalog.Pending {
		t.Errorf("captioned item state = %s, want pending", cItem.State)
	}
	if rec.reqs[0].Width != 224 || rec.reqs[0].Text != "Harbour at dusk" {
		t.Errorf("request = %+v", rec.reqs[0])
	}
}

func TestIssueNonPositiveWidth(t *testing.T) {
	for _, w := range []float64{0, -12} {
		cat := newCatalog(t, pin("a", "caption"))
		rec := &recorder{}
		c := NewCoordinator(rec, CoordinatorOptions{Width: w})
		c.Issue(cat)

		if len(rec.reqs) != 0 {
			t.Errorf("width %v: issued %d probes, want 0", w, len(rec.reqs))
		}
		if !cat.AllResolved() {
			t.Errorf("width %v: item should resolve to 0", w)
		}
	}
}

func TestIssueOncePerItem(t *testing.T) {
	cat := newCatalog(t, pin("a", "x"), pin("b", "y"))
	rec := &recorder{}
	c := NewCoordinator(rec, CoordinatorOptions{Width: 100})

	c.Issue(cat)
	c.Issue(cat)

	if len(rec.reqs) != 2 {
		t.Errorf("issued %d probes, want 2", len(rec.reqs))
	}
	if c.InFlight() != 2 {
		t.Errorf("InFlight = %d, want 2", c.InFlight())
	}
}

func TestDeliverOutOfOrder(t *testing.T) {
	cat := newCatalog(t, pin("a", "x"), pin("b", "y"), pin("c", "z"))
	rec := &recorder{}
	c := NewCoordinator(rec, CoordinatorOptions{Width: 100})
	c.Issue(cat)

	for _, r := range []catalog.Report{rec.reply("c", 30), rec.reply("a", 10), rec.reply("b", 20)} {
		if out := c.Deliver(cat, r); out != catalog.Applied {
			t.Fatalf("Deliver(%s) = %s, want applied", r.ID, out)
		}
	}
	if !cat.AllResolved() {
		t.Fatal("catalog should be fully resolved")
	}
	for id, want := range map[string]float64{"a": 10, "b": 20, "c": 30} {
		it, _ := cat.Item(id)
		if it.CaptionHeight != want {
			t.Errorf("%s height = %v, want %v", id, it.CaptionHeight, want)
		}
	}
	if c.InFlight() != 0 {
		t.Errorf("InFlight = %d, want 0", c.InFlight())
	}
}

func TestDeliverDuplicateIsIgnored(t *testing.T) {
	cat := newCatalog(t, pin("a", "x"))
	rec := &recorder{}
	c := NewCoordinator(rec, CoordinatorOptions{Width: 100})
	c.Issue(cat)

	c.Deliver(cat, rec.reply("a", 18))
	if out := c.Deliver(cat, rec.reply("a", 99)); out != catalog.AlreadyResolved {
		t.Errorf("second report outcome = %s, want already resolved", out)
	}
	it, _ := cat.Item("a")
	if it.CaptionHeight != 18 {
		t.Errorf("height = %v, want first write 18", it.CaptionHeight)
	}
}

func TestDeliverAfterRemove(t *testing.T) {
	cat := newCatalog(t, pin("a", "x"), pin("b", "y"))
	rec := &recorder{}
	c := NewCoordinator(rec, CoordinatorOptions{Width: 100})
	c.Issue(cat)

	cat.Remove("a")
	c.Forget("a")
	before := cat.Items()

	if out := c.Deliver(cat, rec.reply("a", 18)); out != catalog.Unknown {
		t.Errorf("outcome = %s, want unknown item", out)
	}
	if !slices.Equal(before, cat.Items()) {
		t.Error("late report for removed item mutated the catalog")
	}
}

func TestDeliverStaleAfterReAdd(t *testing.T) {
	cat := newCatalog(t, pin("a", "old caption"))
	rec := &recorder{}
	c := NewCoordinator(rec, CoordinatorOptions{Width: 100})
	c.Issue(cat)
	old := rec.reqs[0]

	cat.Remove("a")
	c.Forget("a")
	if err := cat.Append(pin("a", "a very different new caption")); err != nil {
		t.Fatal(err)
	}
	c.Issue(cat)
	current := rec.reqs[1]
	if current.Seq == old.Seq {
		t.Fatalf("re-issued request reused seq %d", old.Seq)
	}

	for _, r := range []catalog.Report{old.Report(999), {ID: "a", Height: 999}} {
		if out := c.Deliver(cat, r); out != catalog.Stale {
			t.Errorf("Deliver(seq %d) = %s, want stale report", r.Seq, out)
		}
	}
	if it, _ := cat.Item("a"); it.State != catalog.Pending {
		t.Fatalf("state = %s, want pending", it.State)
	}
	if out := c.Deliver(cat, current.Report(40)); out != catalog.Applied {
		t.Fatalf("current report = %s, want applied", out)
	}
	if it, _ := cat.Item("a"); it.CaptionHeight != 40 {
		t.Errorf("height = %v, want 40", it.CaptionHeight)
	}
}

func TestExpireFallback(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cat := newCatalog(t, pin("a", "x"), pin("b", "y"))
	rec := &recorder{}
	c := NewCoordinator(rec, CoordinatorOptions{
		Width:          100,
		Timeout:        5 * time.Second,
		FallbackHeight: DefaultFallbackHeight,
		Clock:          clock.Now,
	})
	c.Issue(cat)

	deadline, ok := c.NextDeadline()
	if !ok || !deadline.Equal(clock.now.Add(5*time.Second)) {
		t.Errorf("NextDeadline = %v, %v", deadline, ok)
	}

	clock.Advance(4 * time.Second)
	if got := c.Expire(cat); len(got) != 0 {
		t.Errorf("expired early: %v", got)
	}
	if w, ok := c.Waited("a"); !ok || w != 4*time.Second {
		t.Errorf("Waited = %v, %v", w, ok)
	}

	c.Deliver(cat, rec.reply("a", 36))
	clock.Advance(time.Second)

	if got := c.Expire(cat); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Expire = %v, want [b]", got)
	}
	b, _ := cat.Item("b")
	if b.CaptionHeight != DefaultFallbackHeight || b.State != catalog.Resolved {
		t.Errorf("b = %s %v, want resolved %v", b.State, b.CaptionHeight, DefaultFallbackHeight)
	}
	a, _ := cat.Item("a")
	if a.CaptionHeight != 36 {
		t.Errorf("a height = %v, want 36", a.CaptionHeight)
	}

	// A real report after the fallback loses.
	if out := c.Deliver(cat, rec.reply("b", 50)); out != catalog.AlreadyResolved {
		t.Errorf("late report outcome = %s", out)
	}
	if _, ok := c.NextDeadline(); ok {
		t.Error("NextDeadline should be unset with nothing in flight")
	}
}

func TestExpireDisabled(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cat := newCatalog(t, pin("a", "x"))
	c := NewCoordinator(&recorder{}, CoordinatorOptions{Width: 100, Clock: clock.Now})
	c.Issue(cat)

	clock.Advance(24 * time.Hour)
	if got := c.Expire(cat); got != nil {
		t.Errorf("Expire without timeout = %v", got)
	}
	if _, ok := c.NextDeadline(); ok {
		t.Error("NextDeadline should be unset without timeout")
	}
	if it, _ := cat.Item("a"); it.State != catalog.Pending {
		t.Errorf("state = %s, want pending", it.State)
	}
}
