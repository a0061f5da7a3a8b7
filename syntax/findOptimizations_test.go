package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchLengths(t *testing.T) {
	tests := []struct {
		pattern string
		opt     RegexOptions
		min     int
		max     int
	}{
		{pattern: `a`, min: 1, max: 1},
		{pattern: `[^a]`, min: 1, max: 1},
		{pattern: `abcd`, min: 4, max: 4},
		{pattern: `a*`, min: 0, max: -1},
		{pattern: `a?`, min: 0, max: 1},
		{pattern: `a+`, min: 1, max: -1},
		{pattern: `a{2}`, min: 2, max: 2},
		{pattern: `a{3,17}`, min: 3, max: 17},
		{pattern: `(abcd){5}`, min: 20, max: 20},
		{pattern: `(abcd|ef){2,6}`, min: 4, max: 24},
		{pattern: `abcef|de`, min: 2, max: 5},
		{pattern: `abc(def|ghij)k`, min: 7, max: 8},
		{pattern: `(ab)c(def|ghij|k|l|\1|m)n`, min: 4, max: -1},
		{pattern: `\d{1,2}-\d{1,2}-\d{2,4}`, min: 6, max: 10},
		{pattern: `1(?=9)\d`, min: 2, max: 2},
		{pattern: `((a{1,2}){4}){3,7}`, min: 12, max: 56},
		{pattern: `\b\w{4}\b`, min: 4, max: 4},
		{pattern: `(?(a)b|cde)`, min: 1, max: 3},
		{pattern: `(?(a)bc)`, min: 0, max: 2},
		{pattern: `(?(xyz)abc)`, min: 0, max: 3},
		{pattern: `(?(xyz)abcde|fghijk)`, min: 5, max: 6},
		{pattern: `(a)?(?(1)bc|d)`, min: 1, max: 3},
		{pattern: `(abc|)`, min: 0, max: 3},
		{pattern: `(?:)*`, min: 0, max: 0},
		{pattern: `abc            def`, opt: IgnorePatternWhitespace, min: 6, max: 6},
		{pattern: `abcdef`, opt: RightToLeft, min: 6, max: 6},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tree := mustParse(t, tt.pattern, tt.opt)
			require.Equal(t, tt.min, tree.FindOptimizations.MinRequiredLength, "min")
			require.Equal(t, tt.max, tree.FindOptimizations.MaxPossibleLength, "max")
		})
	}
}

func TestFindMode(t *testing.T) {
	tests := []struct {
		pattern string
		opt     RegexOptions
		want    FindNextStartingPositionMode
	}{
		{pattern: `^abc`, want: LeadingAnchor_LeftToRight_Beginning},
		{pattern: `\Gabc`, want: LeadingAnchor_LeftToRight_Start},
		{pattern: `\zabc`, want: LeadingAnchor_LeftToRight_End},
		{pattern: `(?:^a|^b)c`, want: LeadingAnchor_LeftToRight_Beginning},
		{pattern: `abc$`, want: TrailingAnchor_FixedLength_LeftToRight_EndZ},
		{pattern: `abc\z`, want: TrailingAnchor_FixedLength_LeftToRight_End},
		{pattern: `abc`, want: LeadingString_LeftToRight},
		{pattern: `(?i)abc`, want: LeadingString_OrdinalIgnoreCase_LeftToRight},
		{pattern: `abc`, opt: RightToLeft, want: LeadingString_RightToLeft},
		{pattern: `a`, want: LeadingChar_LeftToRight},
		{pattern: `a`, opt: RightToLeft, want: LeadingChar_RightToLeft},
		{pattern: `[ab]c`, want: LeadingSet_LeftToRight},
		{pattern: `c[ab]`, opt: RightToLeft, want: LeadingSet_RightToLeft},
		{pattern: `(?i)a`, want: LeadingSet_LeftToRight},
		{pattern: `a*`, want: NoSearch},
		{pattern: `a+$`, want: LeadingChar_LeftToRight},
		{pattern: `abc$`, opt: RightToLeft, want: LeadingAnchor_RightToLeft_EndZ},
		{pattern: `(?m)^abc`, want: LeadingString_LeftToRight},
		{pattern: `(?m)abc^`, opt: RightToLeft, want: LeadingString_RightToLeft},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tree := mustParse(t, tt.pattern, tt.opt)
			require.Equal(t, tt.want, tree.FindOptimizations.FindMode, "got %v", tree.FindOptimizations.FindMode)
		})
	}
}

func TestFindOptimizationsFields(t *testing.T) {
	tree := mustParse(t, `hello|help`, 0)
	opt := tree.FindOptimizations
	require.Equal(t, LeadingChar_LeftToRight, opt.FindMode)
	require.Equal(t, "[h]", opt.FirstChars.PrefixSet.String())
	require.Equal(t, 'h', opt.LeadingChar)
	require.Equal(t, NtUnknown, opt.LeadingAnchor)
	require.Empty(t, opt.LeadingPrefix)

	tree = mustParse(t, `hello`, 0)
	opt = tree.FindOptimizations
	require.Equal(t, "hello", opt.LeadingPrefix)

	tree = mustParse(t, `x`, 0)
	opt = tree.FindOptimizations
	require.Equal(t, 'x', opt.LeadingChar)

	tree = mustParse(t, `\Gx`, 0)
	opt = tree.FindOptimizations
	require.Equal(t, NtStart, opt.LeadingAnchor)
	require.Equal(t, AnchorStart, opt.Anchors)
}

func TestFindModeString(t *testing.T) {
	require.Equal(t, "NoSearch", NoSearch.String())
	require.Equal(t, "LeadingChar_RightToLeft", LeadingChar_RightToLeft.String())
	require.Equal(t, "TrailingAnchor_FixedLength_LeftToRight_EndZ", TrailingAnchor_FixedLength_LeftToRight_EndZ.String())
	require.Equal(t, "Unknown", FindNextStartingPositionMode(-1).String())
}

func TestCappedArithmetic(t *testing.T) {
	require.Equal(t, infinite, addCapped(infinite-1, 5))
	require.Equal(t, 7, addCapped(3, 4))
	require.Equal(t, infinite, mulCapped(1<<20, 1<<20))
	require.Equal(t, 0, mulCapped(0, infinite))
	require.Equal(t, 12, mulCapped(3, 4))
}
