package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// element is a decoded markup element. Attributes keep document order.
type element struct {
	Name  string
	Attrs []xml.Attr
	// Text is the element's first text node; later text nodes, such as the
	// text after a nested <br/>, are not kept.
	Text     string
	HasText  bool
	Children []*element
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// decodeTree decodes a fragment holding exactly one top-level element.
func decodeTree(fragment []byte) (*element, error) {
	d := xml.NewDecoder(bytes.NewReader(fragment))
	d.Entity = xml.HTMLEntity

	var root *element
	var stack []*element
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode fragment: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{Name: t.Name.Local, Attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: more than one top-level element", ErrUnrecognizedFragment)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				el := stack[len(stack)-1]
				if !el.HasText {
					el.Text = string(t)
					el.HasText = true
				}
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("%w: text outside of an element", ErrUnrecognizedFragment)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no element", ErrUnrecognizedFragment)
	}
	return root, nil
}
