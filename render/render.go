// Package render fills mustache-style placeholders in SQL text.
//
// Supported tags are {{name}}, {{ name }}, dotted paths into nested maps
// ({{hero.name}}), the unescaped forms {{{name}}} and {{&name}}, and comments
// {{! ... }}. Values are substituted verbatim; SQL text is never HTML-escaped.
// Unknown names render as the empty string. Sections are not supported.
package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// tripleTag matches {{{name}}}. Braces are excluded from the name so JSON
// literals such as '{"a":{"b":{}}}' are left alone.
var tripleTag = regexp.MustCompile(`\{\{\{([^{}]*)\}\}\}`)

// View maps placeholder names to substitution values.
type View = map[string]any

// Render substitutes every placeholder in text with its value from view.
// A nil view leaves text untouched.
func Render(text string, view View) (string, error) {
	if view == nil || !strings.Contains(text, startTag) {
		return text, nil
	}

	text = tripleTag.ReplaceAllString(text, "{{&$1}}")

	out, err := fasttemplate.ExecuteFuncStringWithErr(text, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		tag = strings.TrimSpace(tag)
		switch {
		case strings.HasPrefix(tag, "!"):
			return 0, nil
		case strings.HasPrefix(tag, "&"):
			tag = strings.TrimSpace(tag[1:])
		}
		v, ok := lookup(view, tag)
		if !ok || v == nil {
			return 0, nil
		}
		return io.WriteString(w, format(v))
	})
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}

// Merge returns a new view holding base overlaid with override.
func Merge(base, override View) View {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}
	out := make(View, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func lookup(view View, name string) (any, bool) {
	if v, ok := view[name]; ok {
		return v, true
	}
	if name == "." || !strings.Contains(name, ".") {
		return nil, false
	}

	var cur any = view
	for _, part := range strings.Split(name, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
