package extract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	ErrNoStructuredBlock        = errors.New("no json block found in reply")
	ErrMalformedPayload         = errors.New("malformed json payload")
	ErrMissingPagesOrComponents = errors.New("reply has no pages or components")
	ErrUnknownComponentType     = errors.New("unknown component type")
)

//go:embed schema.json
var schemaJSON []byte

var replySchema = compileSchema()

func compileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("load reply schema: %v", err))
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile reply schema: %v", err))
	}
	return schema
}

type reply struct {
	Pages []struct {
		Components []Component `json:"components"`
	} `json:"pages"`
}

// ParseComponents extracts the components of the first page from a
// classification reply. The reply must carry a fenced json block holding an
// object with a non-empty pages array whose first entry has a components
// array. Only title, paragraph and disclaimer components are accepted.
func ParseComponents(content string) ([]Component, error) {
	payload, err := structuredBlock(content)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := replySchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingPagesOrComponents, err)
	}

	var r reply
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	comps := r.Pages[0].Components
	for i, c := range comps {
		if !classifiedTypes[c.Type] {
			return nil, fmt.Errorf("%w: %q at index %d", ErrUnknownComponentType, c.Type, i)
		}
	}
	if comps == nil {
		comps = []Component{}
	}
	return comps, nil
}

const jsonFence = "```json"

// structuredBlock returns the JSON object carried by the first json fenced
// code block of content that holds one. Single-line fences, which CommonMark
// reads as code spans, are matched literally as a fallback.
func structuredBlock(content string) (string, error) {
	src := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var bodies []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fb, ok := n.(*ast.FencedCodeBlock)
		if !ok || !strings.EqualFold(string(fb.Language(src)), "json") {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		lines := fb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		bodies = append(bodies, buf.String())
		return ast.WalkSkipChildren, nil
	})

	for _, body := range bodies {
		if obj, ok := balancedObject(body); ok {
			return obj, nil
		}
	}

	for rest := content; ; {
		i := strings.Index(rest, jsonFence)
		if i < 0 {
			break
		}
		rest = rest[i+len(jsonFence):]
		if obj, ok := balancedObject(rest); ok {
			return obj, nil
		}
	}
	if len(bodies) > 0 {
		return "", fmt.Errorf("%w: json block holds no complete object", ErrMalformedPayload)
	}
	return "", ErrNoStructuredBlock
}

// balancedObject returns the object that starts at the first non-space byte
// of s and ends at its matching brace. Braces inside strings are ignored.
func balancedObject(s string) (string, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
