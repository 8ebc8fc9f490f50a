// Package query describes table reads against the menu store and the
// backends that execute them.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
	OpIs Op = "is"
)

type Filter struct {
	Column string
	Op     Op
	Values []string
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Op: OpEq, Values: []string{value}}
}

func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

// Is matches null, true or false.
func Is(column, value string) Filter {
	return Filter{Column: column, Op: OpIs, Values: []string{value}}
}

type Order struct {
	Column    string
	Desc      bool
	NullsLast bool
}

func Asc(column string) Order { return Order{Column: column, NullsLast: true} }

type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

// Querier executes a Query and returns one raw JSON object per row. No rows is
// an empty result, never an error.
type Querier interface {
	Select(ctx context.Context, q Query) ([]json.RawMessage, error)
}

var ErrConfig = errors.New("menu source is not configured")

type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: missing %s", ErrConfig, strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// HTTPError is a non-2xx answer from the remote query interface.
type HTTPError struct {
	Table  string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("query %s failed with status %d: %s", e.Table, e.Status, e.Body)
}

func marshalRows(rows interface{}) ([]json.RawMessage, error) {
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = []json.RawMessage{}
	}
	return raw, nil
}
