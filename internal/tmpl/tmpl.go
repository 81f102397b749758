// Package tmpl renders text templates in the blueimp-tmpl dialect.
//
//	<%= expr %>   writes expr, HTML escaped
//	<%# expr %>   writes expr unescaped
//	<% code %>    runs JavaScript statements
//
// Template code sees its data as o and may call print(s, raw) to write output.
// Go structs are exposed through their json tag names, and their methods are
// exposed with a lowercase first letter.
package tmpl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

const (
	openTag  = "<%"
	closeTag = "%>"
)

// ErrUnterminatedTag indicates a template opens a tag it never closes
var ErrUnterminatedTag = errors.New("unterminated template tag")

const prelude = `(function (o) {
var _m = {"&": "&amp;", "<": "&lt;", ">": "&gt;", "\"": "&quot;", "'": "&#39;"};
var _e = function (s) {
	return s == null ? "" : String(s).replace(/[&<>"']/g, function (c) { return _m[c]; });
};
var _s = "", _v;
var print = function (s, raw) { _s += raw ? (s == null ? "" : s) : _e(s); };
`

const epilogue = `return _s;
})`

// Template is a compiled template. It is safe for concurrent use; every
// execution gets its own JavaScript runtime.
type Template struct {
	name    string
	program *goja.Program
}

// Compile translates text into a JavaScript function and compiles it.
func Compile(name, text string) (*Template, error) {
	src, err := translate(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	program, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile template %s: %w", name, err)
	}

	return &Template{name: name, program: program}, nil
}

// Execute renders the template with data bound to o.
func (t *Template) Execute(data any) (string, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	value, err := vm.RunProgram(t.program)
	if err != nil {
		return "", fmt.Errorf("failed to load template %s: %w", t.name, err)
	}

	fn, ok := goja.AssertFunction(value)
	if !ok {
		return "", fmt.Errorf("template %s did not compile to a function", t.name)
	}

	result, err := fn(goja.Undefined(), vm.ToValue(data))
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.name, err)
	}

	return result.String(), nil
}

// Render compiles and executes text in one step.
func Render(name, text string, data any) (string, error) {
	t, err := Compile(name, text)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}

func translate(text string) (string, error) {
	var b strings.Builder
	b.WriteString(prelude)

	offset := 0
	for {
		start := strings.Index(text[offset:], openTag)
		if start == -1 {
			writeLiteral(&b, text[offset:])
			break
		}
		start += offset
		writeLiteral(&b, text[offset:start])

		bodyStart := start + len(openTag)
		end := strings.Index(text[bodyStart:], closeTag)
		if end == -1 {
			return "", fmt.Errorf("%w at offset %d", ErrUnterminatedTag, start)
		}
		end += bodyStart
		body := text[bodyStart:end]

		switch {
		case strings.HasPrefix(body, "="):
			fmt.Fprintf(&b, "_s += _e(%s);\n", strings.TrimSpace(body[1:]))
		case strings.HasPrefix(body, "#"):
			fmt.Fprintf(&b, "_s += ((_v = (%s)) == null ? \"\" : _v);\n", strings.TrimSpace(body[1:]))
		default:
			b.WriteString(body)
			b.WriteString("\n")
		}

		offset = end + len(closeTag)
	}

	b.WriteString(epilogue)
	return b.String(), nil
}

func writeLiteral(b *strings.Builder, literal string) {
	if literal == "" {
		return
	}
	// a JSON string is a valid JavaScript string literal
	quoted, _ := json.Marshal(literal)
	b.WriteString("_s += ")
	b.Write(quoted)
	b.WriteString(";\n")
}
