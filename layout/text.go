package layout

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"text/template"
)

// ErrNoURL is returned when neither a URL template nor a url attribute
// provides the QR payload.
var ErrNoURL = errors.New("layout: object has no url")

var brReplacer = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "\r\n", "\n")

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join":  func(sep string, v any) string { return strings.Join(stringsOf(v), sep) },
}

// Text builds the label text for an object from cfg's template, or from its
// field list followed by the custom text. Lines are separated by "\n".
func Text(cfg Config, attrs map[string]any) (string, error) {
	if cfg.TextTemplate != "" {
		out, err := execute("text", cfg.TextTemplate, attrs)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(brReplacer.Replace(out), "\n"), nil
	}

	var lines []string
	for _, field := range cfg.TextFields {
		v, ok := Lookup(attrs, field)
		if !ok {
			continue
		}
		if s := strings.Join(stringsOf(v), ", "); s != "" {
			lines = append(lines, s)
		}
	}
	if cfg.CustomText != "" {
		lines = append(lines, brReplacer.Replace(cfg.CustomText))
	}
	return strings.Join(lines, "\n"), nil
}

// URL returns the QR payload for an object.
func URL(cfg Config, attrs map[string]any) (string, error) {
	if cfg.URLTemplate != "" {
		out, err := execute("url", cfg.URLTemplate, attrs)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(out), nil
	}
	v, ok := Lookup(attrs, "url")
	if !ok {
		return "", ErrNoURL
	}
	s := strings.Join(stringsOf(v), "")
	if s == "" {
		return "", ErrNoURL
	}
	return s, nil
}

func execute(name, text string, data map[string]any) (string, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("layout: parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("layout: execute %s template: %w", name, err)
	}
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// Lookup resolves a dotted path such as "a_terminations.device" in nested
// maps. A path step applied to a list is applied to every element.
func Lookup(attrs map[string]any, path string) (any, bool) {
	var cur any = attrs
	for _, part := range strings.Split(path, ".") {
		next, ok := step(cur, part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func step(v any, key string) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		r, ok := t[key]
		return r, ok
	case []any:
		var out []any
		for _, e := range t {
			if r, ok := step(e, key); ok && r != nil {
				out = append(out, r)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

func stringsOf(v any) []string {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		var out []string
		for i := 0; i < rv.Len(); i++ {
			out = append(out, stringsOf(rv.Index(i).Interface())...)
		}
		return out
	}
	if m, ok := v.(map[string]any); ok {
		// related objects render as their display name
		for _, k := range []string{"display", "name"} {
			if n, ok := m[k]; ok {
				return stringsOf(n)
			}
		}
		return nil
	}
	s := fmt.Sprint(v)
	if s == "" {
		return nil
	}
	return []string{s}
}
