package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
)

// queryReader collects the first parse failure so handlers can read every
// parameter and check once.
type queryReader struct {
	values url.Values
	err    error
}

func newQueryReader(values url.Values) *queryReader {
	return &queryReader{values: values}
}

func (q *queryReader) fail(name string, raw string) {
	if q.err == nil {
		q.err = fmt.Errorf("invalid %s: %q", name, raw)
	}
}

func (q *queryReader) String(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *queryReader) Int(name string) int {
	raw := q.String(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, raw)
		return 0
	}
	return v
}

func (q *queryReader) IntPtr(name string) *int {
	if q.String(name) == "" {
		return nil
	}
	v := q.Int(name)
	return &v
}

func (q *queryReader) ID(name string) int64 {
	raw := q.String(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		q.fail(name, raw)
		return 0
	}
	return v
}

func (q *queryReader) Bool(name string) *bool {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, raw)
		return nil
	}
	return &v
}

func (q *queryReader) Decimal(name string) *decimal.Decimal {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		q.fail(name, raw)
		return nil
	}
	return &v
}

// Time accepts RFC 3339 timestamps or plain dates. A plain date used as an
// upper bound covers the whole day.
func (q *queryReader) Time(name string, endOfDay bool) *time.Time {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		q.fail(name, raw)
		return nil
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t
}

func (q *queryReader) TimeValue(name string, endOfDay bool) time.Time {
	if t := q.Time(name, endOfDay); t != nil {
		return *t
	}
	return time.Time{}
}

func (q *queryReader) List() domain.ListQuery {
	return domain.ListQuery{
		Page:      q.Int("page"),
		Limit:     q.Int("limit"),
		SortBy:    q.String("sort_by"),
		SortOrder: strings.ToLower(q.String("sort_order")),
	}
}

func (q *queryReader) Err() error {
	return q.err
}
