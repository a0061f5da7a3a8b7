package syntax

import (
	"bytes"
	"unicode"
)

// Prefix is the result of the first-char and leading-literal analyses.
// FirstChars fills PrefixSet, LeadingPrefix fills PrefixStr.
type Prefix struct {
	PrefixStr       []rune
	PrefixSet       CharSet
	CaseInsensitive bool
}

// FirstChars computes the set of chars that can start a match of the tree.
// It returns nil when there's no constraint: the pattern can match an empty
// string at its start, or the sets along the way couldn't be merged.
// The error is only set if the tree contains a node type the analysis
// doesn't know about.
func FirstChars(tree *RegexTree) (*Prefix, error) {
	s := &regexFcd{}
	s.frames = s.frameBuf[:0]
	s.fcStack = s.fcBuf[:0]

	fc, err := s.regexFCFromRegexTree(tree)
	if err != nil {
		return nil, err
	}
	if fc == nil || fc.nullable {
		return nil, nil
	}

	var culture unicode.SpecialCase
	if tree.Options&CultureInvariant == 0 {
		culture = tree.Culture
	}

	return &Prefix{
		PrefixSet:       fc.getFirstChars(culture),
		CaseInsensitive: fc.caseInsensitive,
	}, nil
}

// stackInline is how deep a tree gets before the walker's stacks move to the heap
const stackInline = 32

type fcdFrame struct {
	node  *RegexNode
	child int
}

type regexFcd struct {
	// frames holds the interior nodes we're inside of and the child to resume at
	frames   []fcdFrame
	fcStack  []regexFc
	frameBuf [stackInline]fcdFrame
	fcBuf    [stackInline]regexFc

	skipAllChildren bool // don't process any more children at the current level
	skipchild       bool // don't process the current child.
	failed          bool
}

// The main FC computation. It does a shortcutted depth-first walk
// through the tree and calls the hooks before and after each child
// of an interior node, and at each leaf.
func (s *regexFcd) regexFCFromRegexTree(tree *RegexTree) (*regexFc, error) {
	curNode := tree.Root
	curChild := 0

	for {
		if len(curNode.Children) == 0 {
			// This is a leaf node
			if err := s.leaf(curNode); err != nil {
				return nil, err
			}
		} else if curChild < len(curNode.Children) && !s.skipAllChildren {
			// This is an interior node, and we have more children to analyze
			if err := s.beforeChild(curNode, curChild); err != nil {
				return nil, err
			}

			if !s.skipchild {
				s.frames = append(s.frames, fcdFrame{node: curNode, child: curChild})
				curNode = curNode.Children[curChild]
				curChild = 0
			} else {
				curChild++
				s.skipchild = false
			}
			continue
		}

		// This is an interior node where we've finished analyzing all the children, or
		// the end of a leaf node.
		s.skipAllChildren = false

		if len(s.frames) == 0 {
			break
		}

		f := s.frames[len(s.frames)-1]
		s.frames = s.frames[:len(s.frames)-1]
		curNode, curChild = f.node, f.child

		s.afterChild(curNode, curChild)
		if s.failed {
			return nil, nil
		}

		curChild++
	}

	if len(s.fcStack) == 0 {
		return nil, nil
	}

	return s.popFC(), nil
}

func (s *regexFcd) pushFC(fc regexFc) {
	s.fcStack = append(s.fcStack, fc)
}

func (s *regexFcd) popFC() *regexFc {
	fc := s.fcStack[len(s.fcStack)-1]
	s.fcStack = s.fcStack[:len(s.fcStack)-1]
	return &fc
}

func (s *regexFcd) topFC() *regexFc {
	return &s.fcStack[len(s.fcStack)-1]
}

// merges the result on top of the stack into the one below it
func (s *regexFcd) mergeTop(concatenate bool) {
	child := s.popFC()
	s.failed = !s.topFC().addFC(*child, concatenate)
}

// leaf pushes the result of a node without children
func (s *regexFcd) leaf(node *RegexNode) error {
	ci := node.Options&IgnoreCase != 0

	switch node.T {
	case NtOne, NtNotone:
		s.pushFC(newRegexFc(node.Ch, node.T == NtNotone, false, ci))

	case NtOneloop, NtOnelazy, NtOneloopatomic:
		s.pushFC(newRegexFc(node.Ch, false, node.M == 0, ci))

	case NtNotoneloop, NtNotonelazy, NtNotoneloopatomic:
		s.pushFC(newRegexFc(node.Ch, true, node.M == 0, ci))

	case NtMulti:
		if len(node.Str) == 0 {
			s.pushFC(regexFc{nullable: true})
		} else if node.Options&RightToLeft == 0 {
			s.pushFC(newRegexFc(node.Str[0], false, false, ci))
		} else {
			s.pushFC(newRegexFc(node.Str[len(node.Str)-1], false, false, ci))
		}

	case NtSet:
		s.pushFC(regexFc{cc: node.Set.Copy(), nullable: false, caseInsensitive: ci})

	case NtSetloop, NtSetlazy, NtSetloopatomic:
		s.pushFC(regexFc{cc: node.Set.Copy(), nullable: node.M == 0, caseInsensitive: ci})

	case NtRef:
		s.pushFC(regexFc{cc: *AnyClass(), nullable: true, caseInsensitive: false})

	case NtEmpty, NtNothing, NtBol, NtEol, NtBoundary, NtNonboundary, NtECMABoundary, NtNonECMABoundary,
		NtBeginning, NtStart, NtEndZ, NtEnd, NtUpdateBumpalong:
		s.pushFC(regexFc{nullable: true})

	// interior kinds that came without children
	case NtConcatenate, NtAlternate, NtLoop, NtLazyloop, NtCapture, NtGroup, NtAtomic,
		NtPosLook, NtNegLook, NtBackRefCond, NtExprCond:
		s.pushFC(regexFc{nullable: true})

	default:
		return &Error{Code: ErrUnexpectedNode, Expr: node.Description(), Args: []interface{}{node.T}}
	}

	return nil
}

// beforeChild runs before descending into child i of an interior node
func (s *regexFcd) beforeChild(node *RegexNode, i int) error {
	switch node.T {
	case NtConcatenate, NtAlternate, NtBackRefCond, NtLoop, NtLazyloop,
		NtGroup, NtCapture, NtAtomic:

	case NtExprCond:
		// the condition is a zero-width test
		if i == 0 {
			s.skipchild = true
			if len(node.Children) == 1 {
				s.pushFC(regexFc{nullable: true})
			}
		}

	case NtPosLook, NtNegLook:
		s.skipchild = true
		s.pushFC(regexFc{nullable: true})

	default:
		return &Error{Code: ErrUnexpectedNode, Expr: node.Description(), Args: []interface{}{node.T}}
	}

	return nil
}

// afterChild runs once child i of an interior node has its result on the stack
func (s *regexFcd) afterChild(node *RegexNode, i int) {
	switch node.T {
	case NtConcatenate:
		if i != 0 {
			s.mergeTop(true)
			if s.failed {
				return
			}
		}

		if !s.topFC().nullable {
			s.skipAllChildren = true
		}

	case NtExprCond:
		if i > 1 {
			s.mergeTop(false)
		} else if len(node.Children) == 2 {
			// no "no" branch, it matches empty
			s.topFC().nullable = true
		}

	case NtAlternate:
		if i != 0 {
			s.mergeTop(false)
		}

	case NtBackRefCond:
		if i != 0 {
			s.mergeTop(false)
		} else if len(node.Children) == 1 {
			s.topFC().nullable = true
		}

	case NtLoop, NtLazyloop:
		if node.M == 0 {
			s.topFC().nullable = true
		}
	}
}

type regexFc struct {
	cc              CharSet
	nullable        bool
	caseInsensitive bool
}

func newRegexFc(ch rune, not, nullable, caseInsensitive bool) regexFc {
	r := regexFc{
		caseInsensitive: caseInsensitive,
		nullable:        nullable,
	}
	if not {
		if ch > 0 {
			r.cc.addRange('\x00', ch-1)
		}
		if ch < MaxChar {
			r.cc.addRange(ch+1, MaxChar)
		}
	} else {
		r.cc.addRange(ch, ch)
	}
	return r
}

func (r *regexFc) getFirstChars(culture unicode.SpecialCase) CharSet {
	if r.caseInsensitive {
		r.cc.addLowercase(culture)
	}

	return r.cc
}

// addFC merges fc into r. concatenate selects sequential composition (fc
// follows r) over alternation. It returns false if either set can't be merged,
// leaving r unusable.
func (r *regexFc) addFC(fc regexFc, concatenate bool) bool {
	if !r.cc.IsMergeable() || !fc.cc.IsMergeable() {
		return false
	}

	if concatenate {
		if !r.nullable {
			return true
		}

		if !fc.nullable {
			r.nullable = false
		}
	} else {
		if fc.nullable {
			r.nullable = true
		}
	}

	r.caseInsensitive = r.caseInsensitive || fc.caseInsensitive
	r.cc.addSet(fc.cc)

	return true
}

// LeadingPrefix computes the literal every match of the tree starts with.
// It's quite trivial and gives up easily; an empty PrefixStr means there isn't one.
func LeadingPrefix(tree *RegexTree) Prefix {
	var concatNode *RegexNode
	nextChild := 0

	curNode := tree.Root

	for {
		switch curNode.T {
		case NtConcatenate:
			if len(curNode.Children) > 0 {
				concatNode = curNode
				nextChild = 0
			}

		case NtGroup, NtAtomic, NtCapture:
			if len(curNode.Children) > 0 {
				curNode = curNode.Children[0]
				concatNode = nil
				continue
			}

		case NtOneloop, NtOnelazy, NtOneloopatomic:
			if curNode.M > 0 && curNode.M < prefixCutoff {
				return Prefix{
					PrefixStr:       repeat(curNode.Ch, curNode.M),
					CaseInsensitive: (curNode.Options & IgnoreCase) != 0,
				}
			}
			return Prefix{}

		case NtOne:
			return Prefix{
				PrefixStr:       []rune{curNode.Ch},
				CaseInsensitive: (curNode.Options & IgnoreCase) != 0,
			}

		case NtMulti:
			return Prefix{
				PrefixStr:       append([]rune(nil), curNode.Str...),
				CaseInsensitive: (curNode.Options & IgnoreCase) != 0,
			}

		case NtBol, NtEol, NtBoundary, NtECMABoundary, NtBeginning, NtStart,
			NtEndZ, NtEnd, NtEmpty, NtPosLook, NtNegLook, NtUpdateBumpalong:

		default:
			return Prefix{}
		}

		if concatNode == nil || nextChild >= len(concatNode.Children) {
			return Prefix{}
		}

		curNode = concatNode.Children[nextChild]
		nextChild++
	}
}

// repeat the rune r, c times
func repeat(r rune, c int) []rune {
	ret := make([]rune, c)

	// binary growth using copy for speed
	ret[0] = r
	bp := 1
	for bp < len(ret) {
		copy(ret[bp:], ret[:bp])
		bp *= 2
	}

	return ret
}

type AnchorLoc int16

// where the regex can be pegged
const (
	AnchorBeginning    AnchorLoc = 0x0001
	AnchorBol          AnchorLoc = 0x0002
	AnchorStart        AnchorLoc = 0x0004
	AnchorEol          AnchorLoc = 0x0008
	AnchorEndZ         AnchorLoc = 0x0010
	AnchorEnd          AnchorLoc = 0x0020
	AnchorBoundary     AnchorLoc = 0x0040
	AnchorECMABoundary AnchorLoc = 0x0080
)

// Anchors returns the first positional anchor a match of the tree has to
// satisfy, or 0 if none is found before the first char-consuming node.
func Anchors(tree *RegexTree) AnchorLoc {
	var concatNode *RegexNode
	nextChild := 0

	curNode := tree.Root

	for {
		switch curNode.T {
		case NtConcatenate:
			if len(curNode.Children) > 0 {
				concatNode = curNode
				nextChild = 0
			}

		case NtGroup, NtAtomic, NtCapture:
			if len(curNode.Children) > 0 {
				curNode = curNode.Children[0]
				concatNode = nil
				continue
			}

		case NtBol, NtEol, NtBoundary, NtECMABoundary, NtBeginning,
			NtStart, NtEndZ, NtEnd:
			return anchorFromType(curNode.T)

		case NtEmpty, NtPosLook, NtNegLook, NtUpdateBumpalong:

		default:
			return 0
		}

		if concatNode == nil || nextChild >= len(concatNode.Children) {
			return 0
		}

		curNode = concatNode.Children[nextChild]
		nextChild++
	}
}

func anchorFromType(t NodeType) AnchorLoc {
	switch t {
	case NtBol:
		return AnchorBol
	case NtEol:
		return AnchorEol
	case NtBoundary:
		return AnchorBoundary
	case NtECMABoundary:
		return AnchorECMABoundary
	case NtBeginning:
		return AnchorBeginning
	case NtStart:
		return AnchorStart
	case NtEndZ:
		return AnchorEndZ
	case NtEnd:
		return AnchorEnd
	default:
		return 0
	}
}

// String returns a human-readable description of the anchors
func (anchors AnchorLoc) String() string {
	buf := &bytes.Buffer{}

	if 0 != (anchors & AnchorBeginning) {
		buf.WriteString(", Beginning")
	}
	if 0 != (anchors & AnchorStart) {
		buf.WriteString(", Start")
	}
	if 0 != (anchors & AnchorBol) {
		buf.WriteString(", Bol")
	}
	if 0 != (anchors & AnchorBoundary) {
		buf.WriteString(", Boundary")
	}
	if 0 != (anchors & AnchorECMABoundary) {
		buf.WriteString(", ECMABoundary")
	}
	if 0 != (anchors & AnchorEol) {
		buf.WriteString(", Eol")
	}
	if 0 != (anchors & AnchorEnd) {
		buf.WriteString(", End")
	}
	if 0 != (anchors & AnchorEndZ) {
		buf.WriteString(", EndZ")
	}

	// trim off comma
	if buf.Len() >= 2 {
		return buf.String()[2:]
	}
	return "None"
}
