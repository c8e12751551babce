// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jats parses PubMed Central article XML (the JATS dialect) and
// locates the methods section via layered heuristics.
//
// The section heuristics are defined over element order and the text that
// trails each element, so the package keeps its own lightweight document
// tree instead of decoding into fixed structs: every node records the text
// before its first child (Text) and the text following its end tag (Tail).
package jats

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is one element of a parsed article document.
type Node struct {
	// Name is the element's local name (namespace prefixes stripped).
	Name string

	// Attrs holds the element's attributes in source order.
	Attrs []xml.Attr

	// Children holds child elements in document order.
	Children []*Node

	// Text is the character data between the start tag and the first child
	// element (or the end tag, for childless elements).
	Text string

	// Tail is the character data between this element's end tag and the
	// next sibling (or the parent's end tag).
	Tail string
}

// Parse reads an XML document and returns its root element. A document with
// no root element is an error; the caller treats it as an unparseable fetch.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	type frame struct {
		node       *Node
		lastClosed *Node
	}

	var root *Node
	var stack []frame

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, frame{node: n})

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced end element %q", t.Name.Local)
			}
			closed := stack[len(stack)-1].node
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				stack[len(stack)-1].lastClosed = closed
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			top := &stack[len(stack)-1]
			if top.lastClosed != nil {
				top.lastClosed.Tail += string(t)
			} else {
				top.node.Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return root, nil
}

// Attr returns the value of the named attribute, or "" if absent.
func (n *Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find returns the first descendant with the given name in document order,
// or nil.
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

// FindAll returns all descendants with the given name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.FindAll(name)...)
	}
	return out
}

// Iter returns the node followed by all its descendants in document order.
func (n *Node) Iter() []*Node {
	out := []*Node{n}
	for _, c := range n.Children {
		out = append(out, c.Iter()...)
	}
	return out
}

// itertext visits the text content of the subtree in document order: the
// node's own text, then recursively each child's text followed by that
// child's tail.
func itertext(n *Node, visit func(string)) {
	visit(n.Text)
	for _, c := range n.Children {
		itertext(c, visit)
		visit(c.Tail)
	}
}

// FlatText concatenates the subtree's text content without separators and
// trims the result. Used for single-valued fields such as titles and
// identifiers.
func (n *Node) FlatText() string {
	var b strings.Builder
	itertext(n, func(s string) { b.WriteString(s) })
	return strings.TrimSpace(b.String())
}

// JoinedText concatenates the subtree's non-blank text segments with single
// spaces. Used for running text such as abstracts and body content.
func (n *Node) JoinedText() string {
	var parts []string
	itertext(n, func(s string) {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}
