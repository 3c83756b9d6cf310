// Package xmltree parses XML into a generic, version-tolerant element tree.
//
// The workbook document schema is underspecified and varies across versions,
// so the structural parser queries a plain node tree instead of decoding into
// fixed structs: unknown elements and attributes are carried along untouched
// rather than rejected.
package xmltree

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Attr is one element attribute, preserving document order.
type Attr struct {
	Name  string
	Value string
}

// Node is one element in the document tree. Text accumulates the element's
// own character data, trimmed.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// Parse reads an XML document and returns its root element.
// Comments, processing instructions, and directives are discarded.
func Parse(r io.Reader) (*Node, error) {
	decoder := xml.NewDecoder(r)

	var root *Node
	var stack []*Node

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			for _, a := range t.Attr {
				node.Attrs = append(node.Attrs, Attr{Name: attrName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("malformed XML: multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("malformed XML: unexpected end element %q", t.Name.Local)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				text := strings.TrimSpace(string(t))
				if text != "" {
					current := stack[len(stack)-1]
					if current.Text != "" {
						current.Text += " "
					}
					current.Text += text
				}
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("malformed XML: no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("malformed XML: unclosed element %q", stack[len(stack)-1].Name)
	}
	return root, nil
}

func attrName(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

// Attr returns the value of the named attribute, or "" when absent.
func (n *Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present, even when empty.
func (n *Node) HasAttr(name string) bool {
	for _, a := range n.Attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Child returns the first direct child with the given element name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given element name,
// in document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first descendant (depth-first, document order) with the
// given element name, or nil. The receiver itself is not considered.
func (n *Node) Find(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant with the given element name, depth-first
// in document order. The receiver itself is not considered.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.findAll(name, &out)
	return out
}

func (n *Node) findAll(name string, out *[]*Node) {
	for _, c := range n.Children {
		if c.Name == name {
			*out = append(*out, c)
		}
		c.findAll(name, out)
	}
}

// String reconstructs a compact XML rendering of the node. Used to preserve
// raw node text for unrecognized filter shapes; not guaranteed to round-trip
// whitespace or entity encoding.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		fmt.Fprintf(b, " %s='%s'", a.Name, a.Value)
	}
	if len(n.Children) == 0 && n.Text == "" {
		b.WriteString(" />")
		return
	}
	b.WriteByte('>')
	b.WriteString(n.Text)
	for _, c := range n.Children {
		c.write(b)
	}
	b.WriteString("</" + n.Name + ">")
}
