package query

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
)

// Row is one decoded JSON object of a fixture table.
type Row map[string]interface{}

// MemoryQuerier serves tables from an in-memory fixture, with the same filter
// and ordering semantics as the remote backends.
type MemoryQuerier struct {
	mu     sync.RWMutex
	tables map[string][]Row
}

func NewMemoryQuerier(tables map[string][]Row) *MemoryQuerier {
	if tables == nil {
		tables = map[string][]Row{}
	}
	return &MemoryQuerier{tables: tables}
}

// LoadMemoryQuerier reads a fixture file shaped as {"table": [row, ...], ...}.
func LoadMemoryQuerier(path string) (*MemoryQuerier, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	tables := map[string][]Row{}
	if err := json.Unmarshal(b, &tables); err != nil {
		return nil, fmt.Errorf("failed to decode fixture %s: %w", path, err)
	}
	return NewMemoryQuerier(tables), nil
}

// Put replaces the rows of table.
func (m *MemoryQuerier) Put(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = rows
}

func (m *MemoryQuerier) Select(ctx context.Context, q Query) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	source := m.tables[q.Table]
	m.mu.RUnlock()

	var matched []Row
	for _, row := range source {
		if matches(row, q.Filters) {
			matched = append(matched, row)
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Order {
				a, b := matched[i][o.Column], matched[j][o.Column]
				if (a == nil) != (b == nil) {
					return (b == nil) == o.NullsLast
				}
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Row, len(matched))
	for i, row := range matched {
		out[i] = project(row, q.Columns)
	}
	return marshalRows(out)
}

func matches(row Row, filters []Filter) bool {
	for _, f := range filters {
		v, present := row[f.Column]
		switch f.Op {
		case OpIs:
			want := ""
			if len(f.Values) > 0 {
				want = f.Values[0]
			}
			if want == "null" {
				if present && v != nil {
					return false
				}
				continue
			}
			if !present || v == nil || stringify(v) != want {
				return false
			}
		case OpIn:
			if !present || v == nil {
				return false
			}
			s := stringify(v)
			found := false
			for _, want := range f.Values {
				if s == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !present || v == nil || len(f.Values) == 0 || stringify(v) != f.Values[0] {
				return false
			}
		}
	}
	return true
}

func project(row Row, columns []string) Row {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return row
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// compareValues orders numbers numerically and everything else as strings.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		return 0
	}

	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}

	sa, sb := stringify(a), stringify(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
