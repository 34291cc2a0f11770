package backend

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// noDocs is what the backend answers when it knows nothing about a symbol.
const noDocs = "No documentation found"

// Location is a definition site. Line and Column are 0-based. A Line of 0
// often means the backend only knows the file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// payload builds a JSON object from alternating keys and values.
func payload(kv ...any) (string, error) {
	doc := "{}"
	for i := 0; i+1 < len(kv); i += 2 {
		var err error
		if doc, err = sjson.Set(doc, kv[i].(string), kv[i+1]); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func (c *Client) call(ctx context.Context, command string, kv ...any) (gjson.Result, error) {
	body, err := payload(kv...)
	if err != nil {
		return gjson.Result{}, err
	}
	return c.Call(ctx, command, body)
}

// IndentStyle asks how symbol indents: "body", or "none" when it has no
// declared style.
func (c *Client) IndentStyle(ctx context.Context, symbol string) (string, error) {
	res, err := c.call(ctx, "indent-style", "symbol", symbol)
	if err != nil {
		return "", err
	}
	if res.Type != gjson.String {
		return "none", nil
	}
	return res.String(), nil
}

// Completions returns the symbols the backend knows that start with prefix.
func (c *Client) Completions(ctx context.Context, prefix string) ([]string, error) {
	res, err := c.call(ctx, "complete", "prefix", prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range res.Array() {
		if v.Type == gjson.String && v.String() != "" {
			out = append(out, v.String())
		}
	}
	return out, nil
}

// Docs returns markdown documentation for symbol. The surrounding text and
// the context stack help the backend resolve local bindings. ok is false
// when there is no documentation.
func (c *Client) Docs(ctx context.Context, symbol, text string, stack []string) (doc string, ok bool, err error) {
	res, err := c.call(ctx, "docs", "symbol", symbol, "text", text, "context", nonNil(stack))
	if err != nil {
		return "", false, err
	}
	doc = res.String()
	if res.Type != gjson.String || strings.TrimSpace(doc) == "" || strings.Contains(doc, noDocs) {
		return "", false, nil
	}
	return doc, true, nil
}

// Definition asks where symbol is defined. ok is false when the backend
// does not know.
func (c *Client) Definition(ctx context.Context, symbol, text string, stack []string) (loc Location, ok bool, err error) {
	res, err := c.call(ctx, "definition", "symbol", symbol, "text", text, "context", nonNil(stack))
	if err != nil {
		return Location{}, false, err
	}
	if !res.IsObject() || res.Get("file").String() == "" {
		return Location{}, false, nil
	}
	return Location{
		File:   res.Get("file").String(),
		Line:   int(res.Get("line").Int()),
		Column: int(res.Get("column").Int()),
	}, true, nil
}

// Eval evaluates code in module (or the backend's default module when
// module is empty) and returns the printed result.
func (c *Client) Eval(ctx context.Context, code, module string) (string, error) {
	res, err := c.call(ctx, "eval", "code", code, "module", module)
	if err != nil {
		return "", err
	}
	if res.Type == gjson.String {
		return res.String(), nil
	}
	return res.Raw, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
