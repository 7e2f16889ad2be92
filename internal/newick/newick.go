// Package newick reads the minimal subset of Newick tree notation classeq2
// needs: nested parenthesized groups, leaf names, and ":branch_length", with
// an internal node's label position after its closing parenthesis read as a
// branch-support value. Full Newick grammar (quoted labels, comments, NHX
// annotations) is out of scope; callers needing that should parse upstream
// and build a *phylotree.Node tree directly.
package newick

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

// Parse reads a single Newick tree from s and returns its root, with
// Kind/Name/Support/Length set but ID left unassigned — call
// phylotree.AssignIDs (or phylotree.New, which does it for you) before using
// the result.
func Parse(s string) (*phylotree.Node, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	p := &parser{src: s}
	root, err := p.parseNode()
	if err != nil {
		return nil, errors.Wrap(err, "newick: parse")
	}
	if p.pos != len(p.src) {
		return nil, errors.Errorf("newick: unexpected trailing input at offset %d", p.pos)
	}
	root.Kind = phylotree.Root
	root.Length = 0
	root.HasSupport = false
	root.Support = 0
	return root, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseNode() (*phylotree.Node, error) {
	n := &phylotree.Node{Kind: phylotree.Leaf}
	if p.peek() == '(' {
		p.pos++
		n.Kind = phylotree.Internal
		for {
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			switch p.peek() {
			case ',':
				p.pos++
				continue
			case ')':
				p.pos++
			default:
				return nil, errors.Errorf("newick: expected ',' or ')' at offset %d", p.pos)
			}
			break
		}
		label := p.readToken()
		if label != "" {
			support, err := strconv.ParseFloat(label, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "newick: internal node support %q at offset %d", label, p.pos)
			}
			n.Support = support
			n.HasSupport = true
		}
	} else {
		n.Name = p.readToken()
		if n.Name == "" {
			return nil, errors.Errorf("newick: expected leaf name at offset %d", p.pos)
		}
	}
	if p.peek() == ':' {
		p.pos++
		lenTok := p.readNumber()
		length, err := strconv.ParseFloat(lenTok, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "newick: branch length %q at offset %d", lenTok, p.pos)
		}
		n.Length = length
	}
	return n, nil
}

// readToken consumes a run of bytes up to the next Newick structural
// character; whitespace is not a delimiter and is kept in the token.
func (p *parser) readToken() string {
	start := p.pos
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '(', ')', ',', ':', ';':
			return p.src[start:p.pos]
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

// readNumber consumes a run of bytes that can appear in a floating-point
// literal (branch lengths never contain Newick structural characters).
func (p *parser) readNumber() string {
	return p.readToken()
}
