package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	today := core.NewDate(2024, 3, 15)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{"all values provided", url.Values{"year": {"2023"}, "month": {"6"}}, 2023, 6, false},
		{"only month", url.Values{"month": {"2"}}, 2024, 2, false},
		{"empty query uses today", url.Values{}, 2024, 3, false},
		{"out of range month is passed through", url.Values{"month": {"13"}}, 2024, 13, false},
		{"non numeric month", url.Values{"month": {"abc"}}, 0, 0, true},
		{"non numeric year", url.Values{"year": {"x"}}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, today)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func newParser(body string) *RequestBodyParser {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParserFields(t *testing.T) {
	p := newParser(`{"amount": 12.50, "note": "  hi\u0007 ", "flag": true, "text_amount": "3.10"}`)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := p.Get("note"); got != "hi" {
		t.Errorf("Get(note) = %q, want %q", got, "hi")
	}
	if got := p.Get("flag"); got != "true" {
		t.Errorf("Get(flag) = %q", got)
	}
	if !p.Has("amount") || p.Has("missing") {
		t.Error("Has reported wrong presence")
	}

	for key, want := range map[string]string{"amount": "12.5", "text_amount": "3.1"} {
		d, err := p.Decimal(key)
		if err != nil || d.String() != want {
			t.Errorf("Decimal(%s) = %s, %v; want %s", key, d, err, want)
		}
	}
	if _, err := p.Decimal("missing"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing decimal err = %v", err)
	}
}

func TestRequestBodyParserDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid object", `{"name":"x"}`, false},
		{"empty body keeps defaults", ``, false},
		{"malformed", `{"name":`, true},
		{"wrong type", `{"name": 5}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := struct {
				Name string `json:"name"`
			}{Name: "default"}
			err := newParser(tt.body).Decode(&v)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if tt.body == "" && v.Name != "default" {
				t.Errorf("empty body overwrote defaults: %+v", v)
			}
		})
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	var v map[string]any
	if err := newParser(body).Decode(&v); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestQueryHelpers(t *testing.T) {
	q := url.Values{"start_date": {"2024-02-01"}, "bad_date": {"02/01/2024"}, "category": {"7"}, "is_active": {"TRUE"}}

	if d, err := queryDate(q, "start_date"); err != nil || d.String() != "2024-02-01" {
		t.Errorf("queryDate = %v, %v", d, err)
	}
	if _, err := queryDate(q, "bad_date"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad date err = %v", err)
	}
	if d, err := queryDate(q, "absent"); err != nil || !d.IsZero() {
		t.Errorf("absent date = %v, %v", d, err)
	}
	if id, err := queryID(q, "category"); err != nil || id == nil || *id != 7 {
		t.Errorf("queryID = %v, %v", id, err)
	}
	if b := queryBool(q, "is_active"); b == nil || !*b {
		t.Errorf("queryBool = %v", b)
	}
	if b := queryBool(q, "absent"); b != nil {
		t.Errorf("absent bool = %v", *b)
	}
	if c, err := queryCurrency(url.Values{"from": {"kes"}}, "from", core.USD); err != nil || c != core.KES {
		t.Errorf("queryCurrency = %v, %v", c, err)
	}
	if _, err := queryCurrency(url.Values{"from": {"EUR"}}, "from", core.USD); !errors.Is(err, core.ErrValidation) {
		t.Errorf("unsupported currency err = %v", err)
	}
}
