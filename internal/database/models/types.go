package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray maps a text[] column to a []string. Scan accepts both the JSON
// form (`["a","b"]`) returned by the REST source and the postgres array
// literal form (`{a,"b c"}`); Value always writes the literal form.
type StringArray []string

func (a *StringArray) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("failed to scan StringArray: %v", value)
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		items, err := parseArrayLiteral(raw)
		if err != nil {
			return err
		}
		*a = items
		return nil
	}

	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return fmt.Errorf("failed to scan StringArray: %w", err)
	}
	*a = items
	return nil
}

// Value writes a postgres array literal with every element quoted, so the
// column type can stay text[].
func (a StringArray) Value() (driver.Value, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, item := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(arrayEscaper.Replace(item))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String(), nil
}

var arrayEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func parseArrayLiteral(raw string) (StringArray, error) {
	if !strings.HasSuffix(raw, "}") {
		return nil, fmt.Errorf("malformed array literal %q", raw)
	}
	body := raw[1 : len(raw)-1]
	items := StringArray{}
	if body == "" {
		return items, nil
	}

	var (
		cur     strings.Builder
		quoted  bool
		escaped bool
		wasQuot bool
	)
	flush := func() {
		s := cur.String()
		if wasQuot || !strings.EqualFold(s, "NULL") {
			items = append(items, s)
		}
		cur.Reset()
		wasQuot = false
	}

	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
			wasQuot = true
		case r == ',' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in array literal %q", raw)
	}
	flush()
	return items, nil
}
