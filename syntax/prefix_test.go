package syntax

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, pattern string, opt RegexOptions) *RegexTree {
	t.Helper()
	tree, err := Parse(pattern, opt)
	require.NoError(t, err, "parsing %q", pattern)
	return tree
}

func TestFirstChars(t *testing.T) {
	tests := []struct {
		pattern string
		opt     RegexOptions
		want    string // "" means no first-char set
		ci      bool
	}{
		{pattern: `a`, want: "[a]"},
		{pattern: `abc`, want: "[a]"},
		{pattern: `abc`, opt: RightToLeft, want: "[c]"},
		{pattern: `(a)+`, want: "[a]"},
		{pattern: `a*b`, want: "[ab]"},
		{pattern: `a*b*c`, want: "[a-c]"},
		{pattern: `ab|cd`, want: "[ac]"},
		{pattern: `a|b`, want: "[ab]"},
		{pattern: `\d`, want: "[\\d]"},
		{pattern: `[a-z]x`, want: "[a-z]"},
		{pattern: `.`, want: "[^\\n]"},
		{pattern: `.`, opt: Singleline, want: "[any]"},
		{pattern: `(?=a)b`, want: "[b]"},
		{pattern: `^abc`, want: "[a]"},
		{pattern: `\bfoo`, want: "[f]"},
		{pattern: `(a)?(?(1)b|c)`, want: "[a-c]"},
		{pattern: `(?(a)bc|de)`, want: "[bd]"},
		{pattern: `(?(1)x)(y)`, want: "[xy]"},
		{pattern: `(?(?=a)ab|cd)e`, want: "[ac]"},
		{pattern: `(?(?<!a)ab|cd)e`, want: "[ac]"},
		{pattern: `(?(?=a)|cd)e`, want: "[ce]"},
		{pattern: `(?x) a b # c`, want: "[a]"},
		{pattern: `(a)?\1b`, want: "[any]"},
		{pattern: `(?>a+)b`, want: "[a]"},
		{pattern: `[^\d]`, want: "[^\\d]"},
		{pattern: `[^\d]x`, want: "[^\\d]"},

		// nullable or unmergeable
		{pattern: `a*`},
		{pattern: ``},
		{pattern: `(?:)`},
		{pattern: `(a)?`},
		{pattern: `a?b?`},
		{pattern: `(?!a)`},
		{pattern: `[^\d]|a`},
		{pattern: `a|[^\d]`},
		{pattern: `a*[^\d]`},
		{pattern: `(?:b|[^\d])c`},

		// case-insensitive sets get their lowercase variants
		{pattern: `A`, opt: IgnoreCase, want: "[Aa]", ci: true},
		{pattern: `(?i)A`, want: "[Aa]", ci: true},
		{pattern: `(?i:A)b`, want: "[Aa]", ci: true},
		{pattern: `(?i)[A-C]`, want: "[A-Ca-c]", ci: true},
		{pattern: `a*(?i:B)`, want: "[Bab]", ci: true},
		{pattern: `S`, opt: IgnoreCase | CultureInvariant, want: "[Ss\\u017f]", ci: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.pattern, tt.opt), func(t *testing.T) {
			tree := mustParse(t, tt.pattern, tt.opt)

			fc, err := FirstChars(tree)
			require.NoError(t, err)

			if tt.want == "" {
				require.Nil(t, fc, "got %v", fc)
				return
			}
			require.NotNil(t, fc)
			require.Equal(t, tt.want, fc.PrefixSet.String())
			require.Equal(t, tt.ci, fc.CaseInsensitive)
		})
	}
}

func TestFirstCharsCulture(t *testing.T) {
	tree := mustParse(t, `I`, IgnoreCase)
	tree.Culture = unicode.TurkishCase

	fc, err := FirstChars(tree)
	require.NoError(t, err)
	require.Equal(t, "[I\\u0131]", fc.PrefixSet.String())

	// CultureInvariant ignores the tree's culture
	tree = mustParse(t, `I`, IgnoreCase|CultureInvariant)
	tree.Culture = unicode.TurkishCase

	fc, err = FirstChars(tree)
	require.NoError(t, err)
	require.Equal(t, "[Ii]", fc.PrefixSet.String())
}

func TestFirstCharsDefaultCulture(t *testing.T) {
	old := DefaultCulture
	DefaultCulture = unicode.TurkishCase
	defer func() { DefaultCulture = old }()

	tree := mustParse(t, `(?i)I`, 0)
	fc, err := FirstChars(tree)
	require.NoError(t, err)
	require.Equal(t, "[I\\u0131]", fc.PrefixSet.String())
}

func TestFirstCharsDoesntMutateTree(t *testing.T) {
	tree := mustParse(t, `[A-C]x|y`, IgnoreCase)
	before := tree.Dump()

	for i := 0; i < 2; i++ {
		fc, err := FirstChars(tree)
		require.NoError(t, err)
		require.Equal(t, "[A-Ca-cy]", fc.PrefixSet.String())
	}

	require.Equal(t, before, tree.Dump())
}

func nestedCaptures(depth int, leaf *RegexNode) *RegexTree {
	node := leaf
	for i := 0; i < depth; i++ {
		node = &RegexNode{T: NtCapture, M: depth - i, N: -1, Children: []*RegexNode{node}}
	}
	return &RegexTree{Root: node}
}

func TestFirstCharsDeepTree(t *testing.T) {
	tree := nestedCaptures(10000, newRegexNodeCh(NtOne, 0, 'a'))

	fc, err := FirstChars(tree)
	require.NoError(t, err)
	require.Equal(t, "[a]", fc.PrefixSet.String())

	require.Equal(t, "a", string(LeadingPrefix(tree).PrefixStr))
	require.Equal(t, AnchorLoc(0), Anchors(tree))

	tree = nestedCaptures(10000, newRegexNode(NtBeginning, 0))
	require.Equal(t, AnchorBeginning, Anchors(tree))
}

func TestFirstCharsDeepParsedPattern(t *testing.T) {
	pattern := strings.Repeat("(", 1000) + "a" + strings.Repeat(")", 1000) + "b"
	tree := mustParse(t, pattern, 0)

	fc, err := FirstChars(tree)
	require.NoError(t, err)
	require.Equal(t, "[a]", fc.PrefixSet.String())
	require.Equal(t, "a", string(LeadingPrefix(tree).PrefixStr))
}

func TestFirstCharsUnexpectedNode(t *testing.T) {
	bogus := NodeType(99)

	t.Run("leaf", func(t *testing.T) {
		tree := nestedCaptures(1, &RegexNode{T: bogus})
		fc, err := FirstChars(tree)
		require.Nil(t, fc)

		perr, ok := err.(*Error)
		require.True(t, ok, "wrong error type %T", err)
		require.Equal(t, ErrorCode(ErrUnexpectedNode), perr.Code)
		require.Contains(t, perr.Error(), "NodeType(99)")
	})

	t.Run("interior", func(t *testing.T) {
		tree := nestedCaptures(3, &RegexNode{T: bogus, Children: []*RegexNode{newRegexNodeCh(NtOne, 0, 'a')}})
		fc, err := FirstChars(tree)
		require.Nil(t, fc)

		perr, ok := err.(*Error)
		require.True(t, ok, "wrong error type %T", err)
		require.Equal(t, ErrorCode(ErrUnexpectedNode), perr.Code)
	})
}

func TestFirstCharsEmptyInteriorNodes(t *testing.T) {
	for _, nt := range []NodeType{NtConcatenate, NtAlternate, NtLoop, NtCapture, NtGroup, NtAtomic, NtPosLook} {
		t.Run(nt.String(), func(t *testing.T) {
			tree := &RegexTree{Root: &RegexNode{T: nt}}
			fc, err := FirstChars(tree)
			require.NoError(t, err)
			require.Nil(t, fc)
		})
	}
}

func fcOf(chars string, nullable, ci bool) regexFc {
	fc := regexFc{nullable: nullable, caseInsensitive: ci}
	for _, ch := range chars {
		fc.cc.addChar(ch)
	}
	return fc
}

func TestAddFCSequential(t *testing.T) {
	// a non-nullable receiver already decides the first char
	r := fcOf("a", false, false)
	require.True(t, r.addFC(fcOf("b", false, true), true))
	require.Equal(t, "[a]", r.cc.String())
	require.False(t, r.nullable)
	require.False(t, r.caseInsensitive)

	r = fcOf("a", true, false)
	require.True(t, r.addFC(fcOf("b", false, false), true))
	require.Equal(t, "[ab]", r.cc.String())
	require.False(t, r.nullable)

	r = fcOf("a", true, false)
	require.True(t, r.addFC(fcOf("b", true, false), true))
	require.Equal(t, "[ab]", r.cc.String())
	require.True(t, r.nullable)
}

func TestAddFCAlternative(t *testing.T) {
	r := fcOf("a", false, false)
	require.True(t, r.addFC(fcOf("b", true, false), false))
	require.Equal(t, "[ab]", r.cc.String())
	require.True(t, r.nullable)

	r = fcOf("a", false, false)
	require.True(t, r.addFC(fcOf("c", false, true), false))
	require.Equal(t, "[ac]", r.cc.String())
	require.False(t, r.nullable)
	require.True(t, r.caseInsensitive)
}

func TestAddFCAlternativeAssociative(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		x := func() regexFc { return fcOf("a", mask&1 != 0, false) }
		y := func() regexFc { return fcOf("m", mask&2 != 0, true) }
		z := func() regexFc { return fcOf("z", mask&4 != 0, false) }

		left := x()
		require.True(t, left.addFC(y(), false))
		require.True(t, left.addFC(z(), false))

		yz := y()
		require.True(t, yz.addFC(z(), false))
		right := x()
		require.True(t, right.addFC(yz, false))

		require.Equal(t, left.cc.String(), right.cc.String(), "mask %d", mask)
		require.Equal(t, left.nullable, right.nullable, "mask %d", mask)
		require.Equal(t, left.caseInsensitive, right.caseInsensitive, "mask %d", mask)
		require.Equal(t, mask == 0, !left.nullable, "mask %d", mask)
	}
}

func TestAddFCUnmergeable(t *testing.T) {
	neg := regexFc{cc: CharSet{negate: true}}
	neg.cc.addChar('a')

	r := fcOf("b", false, false)
	require.False(t, r.addFC(neg, false))

	r = neg
	require.False(t, r.addFC(fcOf("b", false, false), true))

	sub := fcOf("a", false, false)
	sub.cc.addSubtraction(&CharSet{ranges: []singleRange{{'a', 'a'}}})
	r = fcOf("b", true, false)
	require.False(t, r.addFC(sub, true))
}

func TestNewRegexFcNotone(t *testing.T) {
	fc := newRegexFc(0, true, false, false)
	require.Equal(t, "[^\\x00]", fc.cc.String())

	fc = newRegexFc(MaxChar, true, false, false)
	require.False(t, fc.cc.CharIn(MaxChar))
	require.True(t, fc.cc.CharIn(MaxChar-1))
	require.True(t, fc.cc.CharIn(0))
}

func TestLeadingPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		opt     RegexOptions
		want    string
		ci      bool
	}{
		{pattern: `abc`, want: "abc"},
		{pattern: `(?i)abc`, want: "abc", ci: true},
		{pattern: `^abc`, want: "abc"},
		{pattern: `\bfoo`, want: "foo"},
		{pattern: `\Bfoo`, want: ""},
		{pattern: `(?=x)abc`, want: "abc"},
		{pattern: `(abc)`, want: "abc"},
		{pattern: `(?>abc)d`, want: "abc"},
		{pattern: `a{3}`, want: "aaa"},
		{pattern: `a{3,}b`, want: "aaa"},
		{pattern: `a*b`, want: ""},
		{pattern: `a+?`, want: "a"},
		{pattern: `[ab]c`, want: ""},
		{pattern: `a|b`, want: ""},
		{pattern: ``, want: ""},
		{pattern: `$abc`, want: "abc"},
		{pattern: `abc`, opt: RightToLeft, want: "abc"},
		{pattern: `a{0,3}`, want: ""},
		{pattern: fmt.Sprintf("a{%d}", prefixCutoff-1), want: strings.Repeat("a", prefixCutoff-1)},
		{pattern: fmt.Sprintf("a{%d}", prefixCutoff), want: ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.20s/%v", tt.pattern, tt.opt), func(t *testing.T) {
			tree := mustParse(t, tt.pattern, tt.opt)

			p := LeadingPrefix(tree)
			require.Equal(t, tt.want, string(p.PrefixStr))
			if tt.want != "" {
				require.Equal(t, tt.ci, p.CaseInsensitive)
			}
		})
	}
}

func TestRepeat(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 8, 100} {
		require.Equal(t, strings.Repeat("x", n), string(repeat('x', n)))
	}
}

func TestAnchors(t *testing.T) {
	tests := []struct {
		pattern string
		opt     RegexOptions
		want    AnchorLoc
	}{
		{pattern: `^abc`, want: AnchorBeginning},
		{pattern: `\Aabc`, want: AnchorBeginning},
		{pattern: `(?m)^`, want: AnchorBol},
		{pattern: `\G`, want: AnchorStart},
		{pattern: `$`, want: AnchorEndZ},
		{pattern: `\Z`, want: AnchorEndZ},
		{pattern: `(?m)$`, want: AnchorEol},
		{pattern: `\z`, want: AnchorEnd},
		{pattern: `\b`, want: AnchorBoundary},
		{pattern: `\b`, opt: ECMAScript, want: AnchorECMABoundary},
		{pattern: `abc`, want: 0},
		{pattern: `(?=a)^b`, want: AnchorBeginning},
		{pattern: `\Bfoo`, want: 0},
		{pattern: `(^a)`, want: AnchorBeginning},
		{pattern: `(?>^a)`, want: AnchorBeginning},
		{pattern: `a^`, want: 0},
		{pattern: `(?:)`, want: 0},
		{pattern: `^a|^b`, want: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.pattern, tt.opt), func(t *testing.T) {
			tree := mustParse(t, tt.pattern, tt.opt)
			require.Equal(t, tt.want, Anchors(tree))
		})
	}
}

func TestAnchorLocString(t *testing.T) {
	require.Equal(t, "None", AnchorLoc(0).String())
	require.Equal(t, "Beginning", AnchorBeginning.String())
	require.Equal(t, "Beginning, Eol", (AnchorBeginning | AnchorEol).String())
	require.Equal(t, "Start, Boundary, End", (AnchorEnd | AnchorStart | AnchorBoundary).String())
}

func TestAnalyzersConcurrent(t *testing.T) {
	tree := mustParse(t, `(?i)(?:abc|[x-z]\d)+q`, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fc, err := FirstChars(tree)
				if err != nil || fc == nil {
					t.Errorf("unexpected result %v, %v", fc, err)
					return
				}
				if got := fc.PrefixSet.String(); got != "[ax-z]" {
					t.Errorf("got %s", got)
					return
				}
				if p := LeadingPrefix(tree); len(p.PrefixStr) != 0 {
					t.Errorf("unexpected prefix %q", string(p.PrefixStr))
					return
				}
				if a := Anchors(tree); a != 0 {
					t.Errorf("unexpected anchors %v", a)
					return
				}
			}
		}()
	}
	wg.Wait()
}
