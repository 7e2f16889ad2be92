package phylotree

// Sanitize collapses every non-Root internal node whose Support is below
// threshold, reparenting its children onto its parent and adding the
// collapsed edge's Length to each promoted child. Root is never removed.
//
// A single bottom-up pass suffices to reach the collapse fixed point: a
// node's own Support never changes as a result of collapsing its children,
// so once a node's children are finalized, the decision to collapse that
// node itself is final too.
//
// Sanitize mutates and returns root; it does not reassign ids — call
// AssignIDs afterwards (New does this for you).
func Sanitize(root *Node, threshold float64) *Node {
	sanitizeChildren(root, threshold)
	return root
}

func sanitizeChildren(n *Node, threshold float64) {
	if n.Kind == Leaf {
		return
	}
	var replaced []*Node
	for _, c := range n.Children {
		sanitizeChildren(c, threshold)
		if c.Kind == Internal && c.HasSupport && c.Support < threshold {
			for _, gc := range c.Children {
				gc.Length += c.Length
				replaced = append(replaced, gc)
			}
			continue
		}
		replaced = append(replaced, c)
	}
	n.Children = replaced
}
