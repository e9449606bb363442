// Package events extracts specific attribute values out of a renderer's
// LastChange eventing bodies, translating RSP state events into values the
// controller can consume.
package events

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// envelope is the outer GENA event body: a propertyset whose property holds
// a LastChange element, whose text content is itself an embedded XML
// document.
type envelope struct {
	LastChange string `xml:"property>LastChange"`
}

// element is a generic attribute-bag node used to walk the embedded
// document without a fixed schema, since the Tag/attribute names are
// supplied by the caller at each call site.
type element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nested  []element  `xml:",any"`
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

// ExtractChangeItem parses the LastChange event body, finds the first
// element of type tag whose searchAttr attribute matches searchVal
// (case-insensitive), and returns the value of that element's "val"
// attribute. Attribute order is not guaranteed, so both sibling directions
// are effectively covered since the whole attribute set of the matching
// element is searched directly rather than probed positionally.
func ExtractChangeItem(body []byte, tag, searchAttr, searchVal string) (string, bool, error) {
	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return "", false, fmt.Errorf("events: parse event body: %w", err)
	}
	if env.LastChange == "" {
		return "", false, nil
	}

	var root element
	if err := xml.Unmarshal([]byte(env.LastChange), &root); err != nil {
		return "", false, fmt.Errorf("events: parse embedded LastChange document: %w", err)
	}

	if found, ok := search(&root, tag, searchAttr, searchVal); ok {
		return found, true, nil
	}
	return "", false, nil
}

func search(e *element, tag, searchAttr, searchVal string) (string, bool) {
	if strings.EqualFold(e.XMLName.Local, tag) {
		if v, ok := e.attr(searchAttr); ok && strings.EqualFold(v, searchVal) {
			if val, ok := e.attr("val"); ok {
				return val, true
			}
		}
	}
	for i := range e.Nested {
		if v, ok := search(&e.Nested[i], tag, searchAttr, searchVal); ok {
			return v, true
		}
	}
	return "", false
}
