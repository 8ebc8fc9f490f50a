package query

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
)

// DBQuerier reads tables directly from postgres through gorm, scanning into the
// typed models so the rows match the PostgREST JSON shape.
type DBQuerier struct {
	db *gorm.DB
}

func NewDBQuerier(db *gorm.DB) *DBQuerier {
	return &DBQuerier{db: db}
}

func (d *DBQuerier) Select(ctx context.Context, q Query) ([]json.RawMessage, error) {
	if d.db == nil {
		return nil, &ConfigError{Missing: []string{"MENU_DSN"}}
	}

	dest, ok := models.NewSlice(q.Table)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", q.Table)
	}

	tx := d.db.WithContext(ctx).Table(q.Table)
	if len(q.Columns) > 0 {
		tx = tx.Select(q.Columns)
	}

	for _, f := range q.Filters {
		col := clause.Column{Name: f.Column}
		switch f.Op {
		case OpIn:
			values := make([]interface{}, len(f.Values))
			for i, v := range f.Values {
				values[i] = v
			}
			tx = tx.Where(clause.IN{Column: col, Values: values})
		case OpIs:
			var value interface{}
			if len(f.Values) > 0 {
				switch f.Values[0] {
				case "true":
					value = true
				case "false":
					value = false
				}
			}
			tx = tx.Where(clause.Eq{Column: col, Value: value})
		default:
			if len(f.Values) == 0 {
				return nil, fmt.Errorf("filter on %s.%s has no value", q.Table, f.Column)
			}
			tx = tx.Where(clause.Eq{Column: col, Value: f.Values[0]})
		}
	}

	for _, o := range q.Order {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		nulls := " NULLS FIRST"
		if o.NullsLast {
			nulls = " NULLS LAST"
		}
		tx = tx.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "? " + dir + nulls,
			Vars: []interface{}{clause.Column{Name: o.Column}},
		}})
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	if err := tx.Find(dest).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}

	return marshalRows(dest)
}
