package blastxml

import (
	"encoding/xml"
	"strings"
)

// Node is one element of the report tree. Text keeps every character-data
// token of the element in document order, unmodified.
type Node struct {
	Name     string
	Text     []string
	Children []*Node
}

// Child returns the first direct child named name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every direct child named name, in document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Field returns the trimmed text of the direct child named name.
// The boolean is false when the child is absent.
func Field(n *Node, name string) (string, bool) {
	c := n.Child(name)
	if c == nil {
		return "", false
	}
	return strings.TrimSpace(strings.Join(c.Text, "")), true
}

// RawField returns the first character-data token of the direct child named
// name, with interior and surrounding whitespace preserved.
func RawField(n *Node, name string) (string, bool) {
	c := n.Child(name)
	if c == nil {
		return "", false
	}
	if len(c.Text) == 0 {
		return "", true
	}
	return c.Text[0], true
}

// readNode consumes tokens up to the end element matching start.
func readNode(d *xml.Decoder, start xml.StartElement) (*Node, error) {
	n := &Node{Name: start.Name.Local}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := readNode(d, t)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			n.Text = append(n.Text, string(t))
		case xml.EndElement:
			return n, nil
		}
	}
}
