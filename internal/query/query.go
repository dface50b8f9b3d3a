// Package query parses the string parameters of the history endpoint into
// typed, optional filters.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nam-ha/human-detection-app/internal/models"
)

const (
	DefaultPageIndex = 1
	DefaultPageSize  = 10

	MsgInvalidQueryID   = "Invalid query id. Must be an integer."
	MsgInvalidTime      = "Invalid time format. Must be in the format: YYYY-MM-DD_HH-MM-SS"
	MsgInvalidNumHumans = "Invalid number of humans. Must be an integer."
	MsgInvalidPageIndex = "Invalid page index. Must be an integer greater than or equal to 1."
	MsgInvalidPageSize  = "Invalid page size. Must be an integer greater than or equal to 1."
)

// Optional holds a value that may be absent
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// ValidationError reports a parameter that failed to parse
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Parse converts raw with fn. An empty raw string yields an unset Optional.
func Parse[T any](field, raw string, fn func(string) (T, error), msg string) (Optional[T], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Optional[T]{}, nil
	}
	v, err := fn(raw)
	if err != nil {
		return Optional[T]{}, &ValidationError{Field: field, Msg: msg}
	}
	return Some(v), nil
}

// HistoryQuery is a validated history request. All filters are conjunctive.
type HistoryQuery struct {
	QueryID      Optional[int64]
	TimeMin      Optional[time.Time]
	TimeMax      Optional[time.Time]
	NumHumansMin Optional[int]
	NumHumansMax Optional[int]
	PageIndex    int
	PageSize     int
}

// Offset is the number of records skipped before the current page
func (q HistoryQuery) Offset() int {
	return q.PageSize * (q.PageIndex - 1)
}

// NewHistoryQuery returns an unfiltered query for the first page
func NewHistoryQuery() HistoryQuery {
	return HistoryQuery{PageIndex: DefaultPageIndex, PageSize: DefaultPageSize}
}

// Values encodes the query back into URL parameters
func (q HistoryQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page_index", strconv.Itoa(q.PageIndex))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.QueryID.Set {
		v.Set("query_id", strconv.FormatInt(q.QueryID.Value, 10))
	}
	if q.TimeMin.Set {
		v.Set("time_min", FormatTime(q.TimeMin.Value))
	}
	if q.TimeMax.Set {
		v.Set("time_max", FormatTime(q.TimeMax.Value))
	}
	if q.NumHumansMin.Set {
		v.Set("num_humans_min", strconv.Itoa(q.NumHumansMin.Value))
	}
	if q.NumHumansMax.Set {
		v.Set("num_humans_max", strconv.Itoa(q.NumHumansMax.Value))
	}
	return v
}

// ParseTime reads a YYYY-MM-DD_HH-MM-SS timestamp in local time. The year
// has four digits. Other fields may drop their leading zero, as in
// 2024-1-5_3-4-5.
func ParseTime(raw string) (time.Time, error) {
	date, clock, ok := strings.Cut(raw, "_")
	if !ok {
		return time.Time{}, fmt.Errorf("missing '_' between date and time in %q", raw)
	}
	dateParts := strings.Split(date, "-")
	clockParts := strings.Split(clock, "-")
	if len(dateParts) != 3 || len(clockParts) != 3 {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD_HH-MM-SS, got %q", raw)
	}

	limits := []struct {
		minDigits, maxDigits int
		min, max             int
	}{
		{minDigits: 4, maxDigits: 4, min: 1, max: 9999},
		{minDigits: 1, maxDigits: 2, min: 1, max: 12},
		{minDigits: 1, maxDigits: 2, min: 1, max: 31},
		{minDigits: 1, maxDigits: 2, min: 0, max: 23},
		{minDigits: 1, maxDigits: 2, min: 0, max: 59},
		{minDigits: 1, maxDigits: 2, min: 0, max: 59},
	}

	var fields [6]int
	for i, part := range append(dateParts, clockParts...) {
		n, err := parseDigits(part, limits[i].minDigits, limits[i].maxDigits)
		if err != nil || n < limits[i].min || n > limits[i].max {
			return time.Time{}, fmt.Errorf("field %q out of range in %q", part, raw)
		}
		fields[i] = n
	}

	t := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, time.Local)
	// time.Date normalizes Feb 30 into March
	if t.Day() != fields[2] || int(t.Month()) != fields[1] {
		return time.Time{}, fmt.Errorf("invalid date in %q", raw)
	}
	return t, nil
}

// parseDigits reads between minDigits and maxDigits ASCII digits
func parseDigits(s string, minDigits, maxDigits int) (int, error) {
	if len(s) < minDigits || len(s) > maxDigits {
		return 0, fmt.Errorf("expected %d to %d digits, got %q", minDigits, maxDigits, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("expected digits, got %q", s)
		}
	}
	return strconv.Atoi(s)
}

// FormatTime writes t in local time as YYYY-MM-DD_HH-MM-SS
func FormatTime(t time.Time) string {
	return t.In(time.Local).Format(models.TimeLayout)
}

// parseID accepts any signed integer. Ids below 1 are valid input that
// match no record.
func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func parsePositive(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	return n, nil
}

// ParseHistory validates every history parameter once
func ParseHistory(values url.Values) (HistoryQuery, error) {
	q := NewHistoryQuery()

	pageIndex, err := Parse("page_index", values.Get("page_index"), parsePositive, MsgInvalidPageIndex)
	if err != nil {
		return q, err
	}
	if pageIndex.Set {
		q.PageIndex = pageIndex.Value
	}

	pageSize, err := Parse("page_size", values.Get("page_size"), parsePositive, MsgInvalidPageSize)
	if err != nil {
		return q, err
	}
	if pageSize.Set {
		q.PageSize = pageSize.Value
	}

	if q.QueryID, err = Parse("query_id", values.Get("query_id"), parseID, MsgInvalidQueryID); err != nil {
		return q, err
	}
	if q.TimeMin, err = Parse("time_min", values.Get("time_min"), ParseTime, MsgInvalidTime); err != nil {
		return q, err
	}
	if q.TimeMax, err = Parse("time_max", values.Get("time_max"), ParseTime, MsgInvalidTime); err != nil {
		return q, err
	}
	if q.NumHumansMin, err = Parse("num_humans_min", values.Get("num_humans_min"), strconv.Atoi, MsgInvalidNumHumans); err != nil {
		return q, err
	}
	if q.NumHumansMax, err = Parse("num_humans_max", values.Get("num_humans_max"), strconv.Atoi, MsgInvalidNumHumans); err != nil {
		return q, err
	}

	return q, nil
}
