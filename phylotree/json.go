package phylotree

import (
	"encoding/json"

	"github.com/grailbio/base/errors"
)

// nodeWire is the on-disk shape of a Node: Kind as a readable string,
// Support as a pointer so it's present iff HasSupport, and empty slices
// omitted so a Leaf's JSON doesn't carry a stray "children":null.
type nodeWire struct {
	ID          int          `json:"id"`
	Kind        string       `json:"kind"`
	Support     *float64     `json:"support,omitempty"`
	Length      float64      `json:"length"`
	Name        string       `json:"name,omitempty"`
	Children    []*Node      `json:"children,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := nodeWire{
		ID:          n.ID,
		Kind:        n.Kind.String(),
		Length:      n.Length,
		Name:        n.Name,
		Children:    n.Children,
		Annotations: SortedAnnotations(n.Annotations),
	}
	if n.HasSupport {
		s := n.Support
		w.Support = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := parseKind(w.Kind)
	if err != nil {
		return err
	}
	*n = Node{
		ID:          w.ID,
		Kind:        kind,
		Length:      w.Length,
		Name:        w.Name,
		Children:    w.Children,
		Annotations: w.Annotations,
	}
	if w.Support != nil {
		n.Support = *w.Support
		n.HasSupport = true
	}
	return nil
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "Root":
		return Root, nil
	case "Internal":
		return Internal, nil
	case "Leaf":
		return Leaf, nil
	default:
		return 0, errors.E("phylotree: unknown node kind " + s)
	}
}
