package syntax

// FindOptimizations describes how an engine should look for the next
// position a match could start at, built from the tree's hints.
type FindOptimizations struct {
	rightToLeft bool

	FindMode          FindNextStartingPositionMode
	LeadingAnchor     NodeType
	TrailingAnchor    NodeType
	MinRequiredLength int
	// MaxPossibleLength is -1 when a match can be arbitrarily long
	MaxPossibleLength int
	LeadingPrefix     string
	LeadingChar       rune
	// FirstChars is nil when any char could start a match
	FirstChars *Prefix
	Anchors    AnchorLoc
}

type FindNextStartingPositionMode int

const (
	NoSearch FindNextStartingPositionMode = iota
	// A "beginning" anchor at the beginning of the pattern.
	LeadingAnchor_LeftToRight_Beginning
	// A "start" anchor at the beginning of the pattern.
	LeadingAnchor_LeftToRight_Start
	// An "endz" anchor at the beginning of the pattern.  This is rare.
	LeadingAnchor_LeftToRight_EndZ
	// An "end" anchor at the beginning of the pattern.  This is rare.
	LeadingAnchor_LeftToRight_End
	// A "beginning" anchor at the beginning of the right-to-left pattern.
	LeadingAnchor_RightToLeft_Beginning
	// A "start" anchor at the beginning of the right-to-left pattern.
	LeadingAnchor_RightToLeft_Start
	// An "endz" anchor at the beginning of the right-to-left pattern.  This is rare.
	LeadingAnchor_RightToLeft_EndZ
	// An "end" anchor at the beginning of the right-to-left pattern.  This is rare.
	LeadingAnchor_RightToLeft_End
	// An "end" anchor at the end of the pattern, with the pattern always matching a fixed-length expression.
	TrailingAnchor_FixedLength_LeftToRight_End
	// An "endz" anchor at the end of the pattern, with the pattern always matching a fixed-length expression.
	TrailingAnchor_FixedLength_LeftToRight_EndZ
	// A multi-character substring at the beginning of the pattern.
	LeadingString_LeftToRight
	// A multi-character substring at the beginning of the right-to-left pattern.
	LeadingString_RightToLeft
	// A multi-character ordinal case-insensitive substring at the beginning of the pattern.
	LeadingString_OrdinalIgnoreCase_LeftToRight

	// A set starting the pattern.
	LeadingSet_LeftToRight
	// A set starting the right-to-left pattern.
	LeadingSet_RightToLeft

	// A single character at the start of the pattern.
	LeadingChar_LeftToRight
	// A single character at the start of the right-to-left pattern.
	LeadingChar_RightToLeft
)

var findModeStr = []string{
	"NoSearch",
	"LeadingAnchor_LeftToRight_Beginning",
	"LeadingAnchor_LeftToRight_Start",
	"LeadingAnchor_LeftToRight_EndZ",
	"LeadingAnchor_LeftToRight_End",
	"LeadingAnchor_RightToLeft_Beginning",
	"LeadingAnchor_RightToLeft_Start",
	"LeadingAnchor_RightToLeft_EndZ",
	"LeadingAnchor_RightToLeft_End",
	"TrailingAnchor_FixedLength_LeftToRight_End",
	"TrailingAnchor_FixedLength_LeftToRight_EndZ",
	"LeadingString_LeftToRight",
	"LeadingString_RightToLeft",
	"LeadingString_OrdinalIgnoreCase_LeftToRight",
	"LeadingSet_LeftToRight",
	"LeadingSet_RightToLeft",
	"LeadingChar_LeftToRight",
	"LeadingChar_RightToLeft",
}

func (m FindNextStartingPositionMode) String() string {
	if m >= 0 && int(m) < len(findModeStr) {
		return findModeStr[m]
	}
	return "Unknown"
}

func newFindOptimizations(tree *RegexTree, opt RegexOptions) (*FindOptimizations, error) {
	f := &FindOptimizations{
		rightToLeft:       opt&RightToLeft != 0,
		MinRequiredLength: tree.Root.computeMinLength(),
		MaxPossibleLength: tree.Root.computeMaxLength(),
		LeadingAnchor:     findLeadingOrTrailingAnchor(tree.Root, true),
		Anchors:           Anchors(tree),
	}

	var err error
	if f.FirstChars, err = FirstChars(tree); err != nil {
		return nil, err
	}

	if f.rightToLeft && f.LeadingAnchor == NtBol {
		// Filter out Bol for RightToLeft, as we don't currently optimize for it.
		f.LeadingAnchor = NtUnknown
	}

	f.FindMode = getFindMode(f.rightToLeft, f.LeadingAnchor)
	if f.FindMode != NoSearch {
		return f, nil
	}

	// Compute any anchor trailing the expression.  If there is one, and we can also compute a fixed length
	// for the whole expression, we can use that to quickly jump to the right location in the input.
	if !f.rightToLeft {
		f.TrailingAnchor = findLeadingOrTrailingAnchor(tree.Root, false)
		if (f.TrailingAnchor == NtEnd || f.TrailingAnchor == NtEndZ) && f.MinRequiredLength == f.MaxPossibleLength {
			if f.TrailingAnchor == NtEnd {
				f.FindMode = TrailingAnchor_FixedLength_LeftToRight_End
			} else {
				f.FindMode = TrailingAnchor_FixedLength_LeftToRight_EndZ
			}
			return f, nil
		}
	}

	// If there's a leading substring, just use IndexOf and inherit all of its optimizations.
	prefix := LeadingPrefix(tree)
	if len(prefix.PrefixStr) > 1 {
		switch {
		case !prefix.CaseInsensitive && f.rightToLeft:
			f.FindMode = LeadingString_RightToLeft
		case !prefix.CaseInsensitive:
			f.FindMode = LeadingString_LeftToRight
		case !f.rightToLeft:
			f.FindMode = LeadingString_OrdinalIgnoreCase_LeftToRight
		}
		if f.FindMode != NoSearch {
			f.LeadingPrefix = string(prefix.PrefixStr)
			return f, nil
		}
	}

	// At this point there are no fast-searchable anchors or prefixes; fall back
	// to the set of chars that can start a match.
	if f.FirstChars == nil {
		return f, nil
	}

	set := f.FirstChars.PrefixSet
	if !f.FirstChars.CaseInsensitive && set.IsSingleton() {
		f.LeadingChar = set.SingletonChar()
		if f.rightToLeft {
			f.FindMode = LeadingChar_RightToLeft
		} else {
			f.FindMode = LeadingChar_LeftToRight
		}
		return f, nil
	}

	if f.rightToLeft {
		f.FindMode = LeadingSet_RightToLeft
	} else {
		f.FindMode = LeadingSet_LeftToRight
	}
	return f, nil
}

func getFindMode(rtl bool, t NodeType) FindNextStartingPositionMode {
	if rtl {
		switch t {
		case NtBeginning:
			return LeadingAnchor_RightToLeft_Beginning
		case NtStart:
			return LeadingAnchor_RightToLeft_Start
		case NtEnd:
			return LeadingAnchor_RightToLeft_End
		case NtEndZ:
			return LeadingAnchor_RightToLeft_EndZ
		}
	} else {
		switch t {
		case NtBeginning:
			return LeadingAnchor_LeftToRight_Beginning
		case NtStart:
			return LeadingAnchor_LeftToRight_Start
		case NtEnd:
			return LeadingAnchor_LeftToRight_End
		case NtEndZ:
			return LeadingAnchor_LeftToRight_EndZ
		}
	}

	return NoSearch
}

func findLeadingOrTrailingAnchor(node *RegexNode, leading bool) NodeType {
	for {
		switch node.T {
		case NtBol, NtEol, NtBeginning, NtStart, NtEndZ, NtEnd, NtBoundary, NtECMABoundary:
			// anchor found
			return node.T
		case NtAtomic, NtCapture, NtGroup:
			// For groups, continue exploring the sole child.
			if len(node.Children) == 0 {
				return NtUnknown
			}
			node = node.Children[0]
			continue
		case NtConcatenate:
			// For concatenations, we expect primarily to explore its first (for leading) or last (for trailing) child,
			// but we can also skip over certain kinds of nodes (e.g. Empty).
			var child *RegexNode

			if leading {
				for i := 0; i < len(node.Children); i++ {
					t := node.Children[i].T
					if t != NtEmpty && t != NtPosLook && t != NtNegLook {
						child = node.Children[i]
						break
					}
				}
			} else {
				for i := len(node.Children) - 1; i >= 0; i-- {
					t := node.Children[i].T
					if t != NtEmpty && t != NtPosLook && t != NtNegLook {
						child = node.Children[i]
						break
					}
				}
			}
			if child != nil {
				node = child
				continue
			}

		case NtAlternate:
			// For alternations, every branch needs to lead or trail with the same anchor.
			if len(node.Children) == 0 {
				return NtUnknown
			}
			anchor := findLeadingOrTrailingAnchor(node.Children[0], leading)
			if anchor == NtUnknown {
				return NtUnknown
			}

			for i := 1; i < len(node.Children); i++ {
				if findLeadingOrTrailingAnchor(node.Children[i], leading) != anchor {
					return NtUnknown
				}
			}

			return anchor
		}

		// no anchor
		return NtUnknown
	}
}

// computeMinLength returns the length of the shortest string the node can match
func (n *RegexNode) computeMinLength() int {
	switch n.T {
	case NtOne, NtNotone, NtSet:
		return 1

	case NtMulti:
		return len(n.Str)

	case NtOneloop, NtNotoneloop, NtSetloop, NtOnelazy, NtNotonelazy, NtSetlazy,
		NtOneloopatomic, NtNotoneloopatomic, NtSetloopatomic:
		return n.M

	case NtLoop, NtLazyloop:
		if len(n.Children) == 0 {
			return 0
		}
		return mulCapped(n.M, n.Children[0].computeMinLength())

	case NtAlternate:
		if len(n.Children) == 0 {
			return 0
		}
		min := n.Children[0].computeMinLength()
		for _, c := range n.Children[1:] {
			if l := c.computeMinLength(); l < min {
				min = l
			}
		}
		return min

	case NtBackRefCond, NtExprCond:
		branches := n.Children
		if n.T == NtExprCond && len(branches) > 0 {
			branches = branches[1:]
		}
		if len(branches) < 2 {
			// a missing branch matches empty
			return 0
		}
		min := branches[0].computeMinLength()
		if l := branches[1].computeMinLength(); l < min {
			min = l
		}
		return min

	case NtConcatenate:
		sum := 0
		for _, c := range n.Children {
			sum = addCapped(sum, c.computeMinLength())
		}
		return sum

	case NtAtomic, NtCapture, NtGroup:
		if len(n.Children) == 0 {
			return 0
		}
		return n.Children[0].computeMinLength()
	}

	// zero-width nodes, back references and nothing
	return 0
}

// computeMaxLength returns the length of the longest string the node can
// match, or -1 if there's no bound
func (n *RegexNode) computeMaxLength() int {
	switch n.T {
	case NtOne, NtNotone, NtSet:
		return 1

	case NtMulti:
		return len(n.Str)

	case NtOneloop, NtNotoneloop, NtSetloop, NtOnelazy, NtNotonelazy, NtSetlazy,
		NtOneloopatomic, NtNotoneloopatomic, NtSetloopatomic:
		if n.N == infinite {
			return -1
		}
		return n.N

	case NtLoop, NtLazyloop:
		if len(n.Children) == 0 {
			return 0
		}
		child := n.Children[0].computeMaxLength()
		if n.N == infinite && child != 0 || child < 0 {
			return -1
		}
		return mulCapped(n.N, child)

	case NtAlternate, NtBackRefCond, NtExprCond:
		branches := n.Children
		if n.T == NtExprCond && len(branches) > 0 {
			branches = branches[1:]
		}
		max := 0
		for _, c := range branches {
			l := c.computeMaxLength()
			if l < 0 {
				return -1
			}
			if l > max {
				max = l
			}
		}
		return max

	case NtConcatenate:
		sum := 0
		for _, c := range n.Children {
			l := c.computeMaxLength()
			if l < 0 {
				return -1
			}
			sum = addCapped(sum, l)
		}
		return sum

	case NtAtomic, NtCapture, NtGroup:
		if len(n.Children) == 0 {
			return 0
		}
		return n.Children[0].computeMaxLength()

	case NtRef:
		return -1
	}

	return 0
}

func addCapped(a, b int) int {
	if a > infinite-b {
		return infinite
	}
	return a + b
}

func mulCapped(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > infinite/b {
		return infinite
	}
	return a * b
}
