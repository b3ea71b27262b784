package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dgallion1/pdftojson/internal/tables"
)

// ComponentType tags a page component.
type ComponentType string

const (
	TypeTitle      ComponentType = "title"
	TypeParagraph  ComponentType = "paragraph"
	TypeDisclaimer ComponentType = "disclaimer"
	TypeTable      ComponentType = "table_general_purposes"
)

// ScreenID is the fixed screen identifier written on every page record.
const ScreenID = "template_styles"

var classifiedTypes = map[ComponentType]bool{
	TypeTitle:      true,
	TypeParagraph:  true,
	TypeDisclaimer: true,
}

// Component is one typed content block on a page. Components returned by the
// classification service keep their JSON verbatim so fields beyond the known
// ones survive the round trip.
type Component struct {
	Type  ComponentType
	Title string
	Text  string
	Table *tables.Table

	raw json.RawMessage
}

type componentFields struct {
	Type  ComponentType `json:"type"`
	Title string        `json:"title,omitempty"`
	Text  string        `json:"text,omitempty"`
}

func (c *Component) UnmarshalJSON(b []byte) error {
	var f componentFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	raw, err := literalJSON(b)
	if err != nil {
		return err
	}
	c.Type, c.Title, c.Text = f.Type, f.Title, f.Text
	c.raw = raw
	return nil
}

func (c Component) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	if c.Type == TypeTable {
		if c.Table == nil {
			return nil, fmt.Errorf("table component without table")
		}
		return marshalLiteral(struct {
			Type  ComponentType `json:"type"`
			Table *tables.Table `json:"table"`
		}{c.Type, c.Table})
	}
	return marshalLiteral(componentFields{Type: c.Type, Title: c.Title, Text: c.Text})
}

// marshalLiteral encodes v without escaping HTML characters. The outer
// encoder only compacts what a Marshaler returns, so escaping has to be
// avoided here.
func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// literalJSON re-encodes a JSON value compactly with key order kept, writing
// \uXXXX escapes and HTML characters in strings as literal text.
func literalJSON(b []byte) (json.RawMessage, error) {
	type level struct {
		object bool
		n      int
	}
	var (
		buf   bytes.Buffer
		stack []level
	)
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			buf.WriteByte(byte(d))
			if len(stack) > 0 {
				stack[len(stack)-1].n++
			}
			continue
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			switch {
			case top.object && top.n%2 == 1:
				buf.WriteByte(':')
			case top.n > 0:
				buf.WriteByte(',')
			}
		}
		switch v := tok.(type) {
		case json.Delim:
			buf.WriteByte(byte(v))
			stack = append(stack, level{object: v == '{'})
			continue
		case string:
			s, err := marshalLiteral(v)
			if err != nil {
				return nil, err
			}
			buf.Write(s)
		case json.Number:
			buf.WriteString(v.String())
		case bool:
			buf.WriteString(strconv.FormatBool(v))
		case nil:
			buf.WriteString("null")
		}
		if len(stack) > 0 {
			stack[len(stack)-1].n++
		}
	}
	return buf.Bytes(), nil
}

// NewTableComponent wraps a detected table.
func NewTableComponent(t tables.Table) Component {
	return Component{Type: TypeTable, Table: &t}
}

// PageRecord is the output entry for one page.
type PageRecord struct {
	ScreenID   string      `json:"screen_id"`
	PageIndex  int         `json:"page_index"`
	Components []Component `json:"components"`
}

// Output is the document-level accumulator written at the end of a run.
type Output struct {
	Pages []PageRecord `json:"pages"`
}

// Empty reports whether no page produced a record.
func (o Output) Empty() bool { return len(o.Pages) == 0 }
