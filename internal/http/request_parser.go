// Package http provides the JSON API server and its handlers.
//
// This file implements helpers for reading request bodies, path values and
// query parameters. Malformed input is reported as a core.ValidationError so
// it maps to 400 like any other invalid field.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// today as the default for each missing value.
func ParseMonthParams(query url.Values, today core.Date) (MonthParams, error) {
	params := MonthParams{Year: today.Year(), Month: int(today.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, core.Invalid("year", "must be a number")
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, core.Invalid("month", "must be a number")
		}
		params.Month = m
	}
	return params, nil
}

// RequestBodyParser reads a JSON body once and serves it either as a whole
// (Decode) or field by field (Get, Decimal) for small action payloads.
type RequestBodyParser struct {
	body   []byte
	fields map[string]json.RawMessage
	parsed bool
	err    error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(p.err, &tooLarge) {
			p.err = core.Invalid("", "Request body too large")
		}
	}
	return p
}

// Decode unmarshals the whole body into v. An empty body leaves v untouched.
func (p *RequestBodyParser) Decode(v any) error {
	if p.err != nil {
		return p.err
	}
	if len(bytes.TrimSpace(p.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(p.body, v); err != nil {
		return invalidJSON(err)
	}
	return nil
}

// Parse splits a JSON object body into its fields.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	p.fields = map[string]json.RawMessage{}
	if len(bytes.TrimSpace(p.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(p.body, &p.fields); err != nil {
		p.err = invalidJSON(err)
	}
	return p.err
}

// Has reports whether the body carries key.
func (p *RequestBodyParser) Has(key string) bool {
	_, ok := p.fields[key]
	return ok
}

// Get returns a field as trimmed text. Numbers and booleans are returned in
// their JSON spelling.
func (p *RequestBodyParser) Get(key string) string {
	raw, ok := p.fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return sanitizeInput(s)
	}
	return strings.TrimSpace(string(raw))
}

// Decimal returns a money field. Both "12.50" and 12.50 are accepted.
func (p *RequestBodyParser) Decimal(key string) (decimal.Decimal, error) {
	v := p.Get(key)
	if v == "" || v == "null" {
		return decimal.Zero, core.Invalid(key, "This field is required")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, core.Invalid(key, "Invalid amount")
	}
	return d, nil
}

func invalidJSON(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return core.Invalid(typeErr.Field, "invalid value")
	}
	return core.Invalid("", fmt.Sprintf("Invalid JSON body: %v", err))
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NotFound("resource", 0)
	}
	return id, nil
}

// queryDate parses an optional ISO date query parameter.
func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(key, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(q url.Values, key string) *bool {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	b := strings.EqualFold(v, "true") || v == "1"
	return &b
}

// queryID parses an optional numeric ID query parameter.
func queryID(q url.Values, key string) (*int64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, core.Invalid(key, "must be a number")
	}
	return &id, nil
}

// queryCurrency parses a required currency query parameter.
func queryCurrency(q url.Values, key string, fallback core.Currency) (core.Currency, error) {
	v := strings.ToUpper(strings.TrimSpace(q.Get(key)))
	if v == "" {
		return fallback, nil
	}
	c := core.Currency(v)
	if !c.Valid() {
		return "", core.Invalid(key, "unsupported currency")
	}
	return c, nil
}
