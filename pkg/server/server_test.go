package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/layout"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(pipeline.NewRunner(nil, nil, nil), opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

const layoutBody = `{
  "items": [
    {"id": "a", "caption": "Harbour", "natural_width": 100, "natural_height": 100},
    {"id": "b", "caption": "", "natural_width": 100, "natural_height": 50},
    {"id": "c", "natural_width": 100, "natural_height": 80}
  ],
  "config": {"column_width": 100, "gutter": 0, "caption_offset": 0, "viewport_width": 200, "viewport_height": 400}
}`

func post(t *testing.T, url, body, accept string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/v1/layout", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Build.Version == "" {
		t.Errorf("body = %+v", body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestLayoutJSON(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := post(t, srv.URL, layoutBody, "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != contentTypeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	snap, err := layout.UnmarshalSnapshot(buf.Bytes(), layout.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Columns != 2 || snap.Len() != 3 {
		t.Fatalf("columns=%d placements=%d", snap.Columns, snap.Len())
	}
	if snap.PassID == "" || resp.Header.Get("X-Layout-Pass") != snap.PassID {
		t.Errorf("pass id header %q vs body %q", resp.Header.Get("X-Layout-Pass"), snap.PassID)
	}

	// b has no caption and lands in the empty second column; c follows b
	// because b's column is shorter than a's captioned tile.
	b, _ := snap.Position("b")
	c, _ := snap.Position("c")
	if b.Left != 0 || b.Top != 200 {
		t.Errorf("b = %+v", b)
	}
	if c.Left != 0 || c.Top != 150 {
		t.Errorf("c = %+v", c)
	}
}

func TestLayoutCBOR(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := post(t, srv.URL, layoutBody, "application/cbor, application/json;q=0.5")

	if ct := resp.Header.Get("Content-Type"); ct != contentTypeCBOR {
		t.Fatalf("Content-Type = %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	snap, err := layout.UnmarshalSnapshot(buf.Bytes(), layout.FormatCBOR)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Len() != 3 {
		t.Errorf("placements = %d", snap.Len())
	}
}

func TestLayoutErrors(t *testing.T) {
	srv := newTestServer(t, Options{MaxItems: 2})

	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{"items": [`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", `{"itemz": []}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"too many", layoutBody, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"repeat over limit", `{"items": [{"id":"a","natural_width":1,"natural_height":1}], "repeat": 3}`,
			http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"huge repeat", `{"items": [{"id":"a","natural_width":1,"natural_height":1}], "repeat": 100000000}`,
			http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"huge repeat empty", `{"items": [], "repeat": 100000000}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"duplicate", `{"items": [{"id":"a","natural_width":1,"natural_height":1},{"id":"a","natural_width":1,"natural_height":1}]}`,
			http.StatusBadRequest, errors.ErrCodeDuplicateItem},
		{"bad config", `{"items": [], "config": {"column_width": -5}}`, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL, tt.body, "")
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			json.NewDecoder(resp.Body).Decode(&body)
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, want %q (%s)", body.Error.Code, tt.code, body.Error.Message)
			}
		})
	}
}

func TestLayoutRepeatWithinLimit(t *testing.T) {
	srv := newTestServer(t, Options{MaxItems: 4})
	resp := post(t, srv.URL, `{"items": [{"id":"a","natural_width":1,"natural_height":1},{"id":"b","natural_width":1,"natural_height":1}], "repeat": 2}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var snap layout.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Placements) != 4 {
		t.Errorf("placements = %d, want 4", len(snap.Placements))
	}
}

func TestLayoutEmptyCatalog(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := post(t, srv.URL, `{"items": []}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var snap layout.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	if len(snap.Placements) != 0 || snap.Extent != 0 {
		t.Errorf("empty catalog snapshot = %+v", snap)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(t, Options{})
	const id = "9b2f6c1e-3f7a-4a8e-9d55-0c1b2a3d4e5f"

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	req.Header.Set(RequestIDHeader, "not-a-uuid")
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Errorf("malformed id should be replaced, got %q", got)
	}
}

func TestNegotiate(t *testing.T) {
	tests := map[string]string{
		"":                                  layout.FormatJSON,
		"*/*":                               layout.FormatJSON,
		"application/json":                  layout.FormatJSON,
		"application/cbor":                  layout.FormatCBOR,
		"text/html, application/cbor;q=0.9": layout.FormatCBOR,
	}
	for accept, want := range tests {
		if got := negotiate(accept); got != want {
			t.Errorf("negotiate(%q) = %q, want %q", accept, got, want)
		}
	}
}
