// Package cart prices a customer's selection against a composed menu.
package cart

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/compose"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/price"
)

type Selection struct {
	GroupID       string   `json:"group_id"`
	ComplementIDs []string `json:"complement_ids"`
}

type Line struct {
	DishID     string      `json:"dish_id"`
	Quantity   int         `json:"quantity"`
	Selections []Selection `json:"complements,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

type QuotedComplement struct {
	GroupID string `json:"group_id"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   string `json:"price"`
}

type QuotedLine struct {
	DishID      string             `json:"dish_id"`
	Name        string             `json:"name"`
	Quantity    int                `json:"quantity"`
	UnitPrice   string             `json:"unit_price"`
	Complements []QuotedComplement `json:"complements"`
	Notes       string             `json:"notes,omitempty"`
	Total       string             `json:"total"`
}

type Quote struct {
	RestaurantID string       `json:"restaurant_id"`
	Lines        []QuotedLine `json:"lines"`
	ItemCount    int          `json:"item_count"`
	Total        string       `json:"total"`
}

type Problem struct {
	Line    int    `json:"line"`
	DishID  string `json:"dish_id,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a cart.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = fmt.Sprintf("line %d: %s", p.Line, p.Message)
	}
	return "invalid cart: " + strings.Join(msgs, "; ")
}

// Build prices lines against r. Either every line is valid and a Quote is
// returned, or a *ValidationError describes all invalid lines.
func Build(r *compose.Restaurant, lines []Line) (Quote, error) {
	var problems []Problem
	report := func(i int, dishID, format string, args ...interface{}) {
		problems = append(problems, Problem{Line: i, DishID: dishID, Message: fmt.Sprintf(format, args...)})
	}

	if len(lines) == 0 {
		return Quote{}, &ValidationError{Problems: []Problem{{Line: -1, Message: "cart is empty"}}}
	}

	quote := Quote{RestaurantID: r.ID, Lines: make([]QuotedLine, 0, len(lines))}
	total := decimal.Zero

	for i, l := range lines {
		item, ok := r.Item(l.DishID)
		if !ok {
			report(i, l.DishID, "dish %q is not on the menu", l.DishID)
			continue
		}
		if !item.IsAvailable {
			report(i, l.DishID, "%s is not available", item.Name)
			continue
		}
		if l.Quantity <= 0 {
			report(i, l.DishID, "quantity must be positive, got %d", l.Quantity)
			continue
		}

		unit, err := price.Parse(item.Price)
		if err != nil {
			report(i, l.DishID, "%s has no valid price", item.Name)
			continue
		}

		complements, extra, msgs := selectComplements(item, l.Selections)
		if len(msgs) > 0 {
			for _, m := range msgs {
				report(i, l.DishID, "%s", m)
			}
			continue
		}
		unit = unit.Add(extra)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(l.Quantity)))

		quote.Lines = append(quote.Lines, QuotedLine{
			DishID:      item.ID,
			Name:        item.Name,
			Quantity:    l.Quantity,
			UnitPrice:   price.FormatDecimal(unit),
			Complements: complements,
			Notes:       strings.TrimSpace(l.Notes),
			Total:       price.FormatDecimal(lineTotal),
		})
		quote.ItemCount += l.Quantity
		total = total.Add(lineTotal)
	}

	if len(problems) > 0 {
		return Quote{}, &ValidationError{Problems: problems}
	}

	quote.Total = price.FormatDecimal(total)
	return quote, nil
}

func selectComplements(item compose.MenuItem, selections []Selection) ([]QuotedComplement, decimal.Decimal, []string) {
	var (
		msgs   []string
		picked = []QuotedComplement{}
		extra  = decimal.Zero
	)

	groups := make(map[string]compose.ComplementGroup, len(item.ComplementGroups))
	for _, g := range item.ComplementGroups {
		groups[g.ID] = g
	}

	// a group may be listed in several selections; duplicates count across all of them
	chosen := make(map[string]int)
	seen := make(map[string]map[string]bool)
	for _, sel := range selections {
		g, ok := groups[sel.GroupID]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("complement group %q does not apply to %s", sel.GroupID, item.Name))
			continue
		}

		byID := make(map[string]compose.Complement, len(g.Complements))
		for _, c := range g.Complements {
			byID[c.ID] = c
		}

		if seen[g.ID] == nil {
			seen[g.ID] = make(map[string]bool)
		}
		for _, id := range sel.ComplementIDs {
			c, ok := byID[id]
			if !ok {
				msgs = append(msgs, fmt.Sprintf("complement %q is not part of %s", id, g.Title))
				continue
			}
			if seen[g.ID][id] {
				msgs = append(msgs, fmt.Sprintf("%s selected twice in %s", c.Name, g.Title))
				continue
			}
			seen[g.ID][id] = true

			p, err := price.Parse(c.Price)
			if err != nil {
				msgs = append(msgs, fmt.Sprintf("%s has no valid price", c.Name))
				continue
			}
			extra = extra.Add(p)
			picked = append(picked, QuotedComplement{GroupID: g.ID, ID: c.ID, Name: c.Name, Price: c.Price})
			chosen[g.ID]++
		}
	}

	for _, g := range item.ComplementGroups {
		n := chosen[g.ID]
		if g.Required && n == 0 {
			msgs = append(msgs, fmt.Sprintf("%s requires a choice", g.Title))
		}
		if g.MaxSelections > 0 && n > g.MaxSelections {
			msgs = append(msgs, fmt.Sprintf("%s allows at most %d choices, got %d", g.Title, g.MaxSelections, n))
		}
	}

	return picked, extra, msgs
}
