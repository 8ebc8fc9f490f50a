package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RestClient reads tables through a PostgREST endpoint (Supabase /rest/v1).
type RestClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewRestClient(baseURL, apiKey string, timeout time.Duration) *RestClient {
	return &RestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *RestClient) Select(ctx context.Context, q Query) ([]json.RawMessage, error) {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.apiKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	endpoint := c.baseURL + "/rest/v1/" + url.PathEscape(q.Table) + "?" + Encode(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", q.Table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", q.Table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Table: q.Table, Status: resp.StatusCode, Body: string(body)}
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", q.Table, err)
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return rows, nil
}

// Encode renders q as PostgREST query parameters.
func Encode(q Query) string {
	v := url.Values{}

	if len(q.Columns) > 0 {
		v.Set("select", strings.Join(q.Columns, ","))
	} else {
		v.Set("select", "*")
	}

	for _, f := range q.Filters {
		switch f.Op {
		case OpIn:
			quoted := make([]string, len(f.Values))
			for i, val := range f.Values {
				quoted[i] = quoteListValue(val)
			}
			v.Add(f.Column, "in.("+strings.Join(quoted, ",")+")")
		default:
			val := ""
			if len(f.Values) > 0 {
				val = f.Values[0]
			}
			v.Add(f.Column, string(f.Op)+"."+val)
		}
	}

	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			p := o.Column + ".asc"
			if o.Desc {
				p = o.Column + ".desc"
			}
			if o.NullsLast {
				p += ".nullslast"
			}
			parts[i] = p
		}
		v.Set("order", strings.Join(parts, ","))
	}

	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	return v.Encode()
}

func quoteListValue(s string) string {
	if !strings.ContainsAny(s, `,()". `) {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
