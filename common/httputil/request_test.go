package httputil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: 50},
		{name: "explicit values", query: "page=3&limit=10", wantPage: 3, wantLimit: 10},
		{name: "page zero normalizes", query: "page=0", wantPage: 1, wantLimit: 50},
		{name: "negative page normalizes", query: "page=-4&limit=5", wantPage: 1, wantLimit: 5},
		{name: "garbage falls back", query: "page=abc&limit=xyz", wantPage: 1, wantLimit: 50},
		{name: "zero limit falls back", query: "limit=0", wantPage: 1, wantLimit: 50},
		{name: "no upper bound on limit", query: "limit=5000", wantPage: 1, wantLimit: 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?"+tt.query, nil)
			p := ParsePagination(r, 50)
			if p.Page != tt.wantPage || p.Limit != tt.wantLimit {
				t.Errorf("got page=%d limit=%d, want page=%d limit=%d", p.Page, p.Limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestPagination_Offset(t *testing.T) {
	if got := (Pagination{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Errorf("Offset = %d, want 40", got)
	}
	if got := (Pagination{Page: 1, Limit: 50}).Offset(); got != 0 {
		t.Errorf("Offset = %d, want 0", got)
	}
}

func TestPagination_OffsetSaturates(t *testing.T) {
	cases := []Pagination{
		{Page: math.MaxInt, Limit: 1000},
		{Page: 2, Limit: math.MaxInt},
		{Page: math.MaxInt / 2, Limit: 3},
	}
	for _, p := range cases {
		if got := p.Offset(); got != math.MaxInt {
			t.Errorf("Offset(%+v) = %d, want %d", p, got, math.MaxInt)
		}
	}
}

func TestParsePagination_HugeValues(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=9223372036854775807&limit=9223372036854775807", nil)
	p := ParsePagination(r, 50)
	if p.Offset() < 0 {
		t.Errorf("Offset = %d, want non-negative", p.Offset())
	}
	if got := TotalPages(3, p.Limit); got != 1 {
		t.Errorf("TotalPages = %d, want 1", got)
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ total, limit, want int }{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{10, 0, 0},
		{3, math.MaxInt, 1},
	}
	for _, c := range cases {
		if got := TotalPages(c.total, c.limit); got != c.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", c.total, c.limit, got, c.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Note string `json:"note"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"note":"checked firewall"}`},
		{name: "empty body", payload: "", wantErr: true},
		{name: "malformed", payload: `{"note":`, wantErr: true},
		{name: "unknown field", payload: `{"note":"x","extra":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var dst body
			err := DecodeJSON(r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
