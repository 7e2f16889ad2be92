package phylotree

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
)

// idNamespace is classeq2's fixed UUIDv3 namespace: every database derives
// its tree id by hashing the canonical textual form of its sanitized tree
// under this namespace, so the same sanitized tree always yields the same
// id regardless of when or where it was built.
var idNamespace = uuid.MustParse("6f1b1a0e-6b1f-4c9d-8f2a-0c8e7a2b9d31")

// Tree is a rooted reference tree plus the metadata needed to reproduce its
// id and interpret its node ids.
type Tree struct {
	// ID is a version-3 UUID derived deterministically from the canonical
	// textual form of the sanitized Root. Two runs over the same tree (same
	// topology, branch lengths, and support values) always produce the same
	// ID, independent of reference FASTA content.
	ID uuid.UUID `json:"id"`
	// SourceName is the original file name, informational only.
	SourceName string `json:"sourceName"`
	// MinSupportThreshold is the sanitization cutoff that was applied.
	MinSupportThreshold float64 `json:"minSupportThreshold"`
	// Root is the sanitized, re-identified root node.
	Root *Node `json:"root"`
}

// New sanitizes root at minSupportThreshold, validates the result, assigns
// deterministic ids, and derives the tree's id. root is consumed (mutated)
// by sanitization; callers should not use it afterwards except through the
// returned Tree.
func New(root *Node, sourceName string, minSupportThreshold float64) (*Tree, error) {
	if root == nil {
		return nil, errors.E("phylotree: nil root")
	}
	sanitized := Sanitize(root, minSupportThreshold)
	AssignIDs(sanitized)
	if err := Validate(sanitized); err != nil {
		return nil, err
	}
	text := CanonicalText(sanitized)
	return &Tree{
		ID:                  uuid.NewMD5(idNamespace, []byte(text)),
		SourceName:          sourceName,
		MinSupportThreshold: minSupportThreshold,
		Root:                sanitized,
	}, nil
}

// CanonicalText renders root into a deterministic textual form suitable for
// content-hashing: leaves as "name:length", internal nodes as
// "(children)support:length", and the root as "(children):length". Floats
// are formatted to a fixed precision so the text — and hence the derived
// id — does not depend on the formatting choices of whatever produced the
// in-memory floats.
func CanonicalText(n *Node) string {
	var b strings.Builder
	writeCanonical(&b, n)
	b.WriteByte(';')
	return b.String()
}

func writeCanonical(b *strings.Builder, n *Node) {
	switch n.Kind {
	case Leaf:
		b.WriteString(n.Name)
		b.WriteByte(':')
		b.WriteString(formatFloat(n.Length))
		return
	}
	b.WriteByte('(')
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(b, c)
	}
	b.WriteByte(')')
	if n.Kind == Internal {
		b.WriteString(formatFloat(n.Support))
	}
	b.WriteByte(':')
	b.WriteString(formatFloat(n.Length))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 10, 64)
}

// SortedAnnotations returns a's annotations sorted by (Label, Value), a
// convenience for deterministic serialization of caller-supplied metadata.
func SortedAnnotations(a []Annotation) []Annotation {
	out := make([]Annotation, len(a))
	copy(out, a)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Value < out[j].Value
	})
	return out
}
