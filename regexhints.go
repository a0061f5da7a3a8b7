/*
Package regexhints computes the search hints of a .NET-compatible regular expression: the
set of characters a match can start with, the literal every match starts with, and the
positional anchors a match start has to satisfy.

An engine can use these hints to skip most candidate start positions without running the
full backtracking matcher. The analyses never recurse over the pattern tree, so patterns
nested many thousands of levels deep are fine.
*/
package regexhints

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/dlclark/regexhints/syntax"
)

// Hints holds the results of analyzing a pattern.
// Hints is read-only after Compute and safe for concurrent use by multiple goroutines.
type Hints struct {
	pattern string       // as passed to Compute
	options RegexOptions // options

	capnames   map[string]int //capture group name -> number
	capnumlist []int          //sorted list of capture group numbers

	tree       *syntax.RegexTree
	firstChars *syntax.Prefix
	prefix     syntax.Prefix
	anchors    syntax.AnchorLoc
	opt        *syntax.FindOptimizations
}

// Compute parses a regular expression and returns, if successful,
// its search hints.
func Compute(expr string, opt RegexOptions) (*Hints, error) {
	// parse it
	tree, err := syntax.Parse(expr, syntax.RegexOptions(opt))
	if err != nil {
		return nil, err
	}

	h := &Hints{
		pattern:    expr,
		options:    opt,
		capnames:   tree.Capnames,
		capnumlist: tree.Capnumlist,
		tree:       tree,
		firstChars: tree.FindOptimizations.FirstChars,
		prefix:     syntax.LeadingPrefix(tree),
		anchors:    syntax.Anchors(tree),
		opt:        tree.FindOptimizations,
	}

	if h.Debug() {
		os.Stdout.WriteString(h.DumpTree())
		os.Stdout.WriteString(h.Dump())
	}

	return h, nil
}

// MustCompute is like Compute but panics if the expression cannot be parsed.
// It simplifies safe initialization of global variables holding hints.
func MustCompute(str string, opt RegexOptions) *Hints {
	h, err := Compute(str, opt)
	if err != nil {
		panic(`regexhints: Compute(` + quote(str) + `): ` + err.Error())
	}
	return h
}

// String returns the source text used to compute the hints.
func (h *Hints) String() string {
	return h.pattern
}

func quote(s string) string {
	if strconv.CanBackquote(s) {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}

type RegexOptions int32

const (
	IgnoreCase              RegexOptions = 0x0001 // "i"
	Multiline                            = 0x0002 // "m"
	ExplicitCapture                      = 0x0004 // "n"
	Compiled                             = 0x0008 // "c"
	Singleline                           = 0x0010 // "s"
	IgnorePatternWhitespace              = 0x0020 // "x"
	RightToLeft                          = 0x0040 // "r"
	Debug                                = 0x0080 // "d"
	ECMAScript                           = 0x0100 // "e"
	CultureInvariant                     = 0x0200
)

func (h *Hints) RightToLeft() bool {
	return h.options&RightToLeft != 0
}

func (h *Hints) Debug() bool {
	return h.options&Debug != 0
}

// FirstChars returns the set of characters a match can start with. ok is false
// when there's no such constraint, e.g. when the pattern can match an empty string.
// Case-insensitive sets already include the lowercase variants of their chars.
func (h *Hints) FirstChars() (set syntax.CharSet, caseInsensitive bool, ok bool) {
	if h.firstChars == nil {
		return syntax.CharSet{}, false, false
	}
	return h.firstChars.PrefixSet.Copy(), h.firstChars.CaseInsensitive, true
}

// Prefix returns the literal every match starts with, or "" if there isn't one.
func (h *Hints) Prefix() (prefix string, caseInsensitive bool) {
	return string(h.prefix.PrefixStr), h.prefix.CaseInsensitive
}

// Anchors returns the positional anchor a match start has to satisfy, 0 for none.
func (h *Hints) Anchors() syntax.AnchorLoc {
	return h.anchors
}

// FindMode returns how an engine should scan for the next possible match start.
func (h *Hints) FindMode() syntax.FindNextStartingPositionMode {
	return h.opt.FindMode
}

// MinRequiredLength returns the length of the shortest possible match.
func (h *Hints) MinRequiredLength() int {
	return h.opt.MinRequiredLength
}

// Dump returns the hints as a human-readable string
func (h *Hints) Dump() string {
	buf := &bytes.Buffer{}

	fmt.Fprintf(buf, "Pattern: %s\n", quote(h.pattern))

	if set, ci, ok := h.FirstChars(); ok {
		fmt.Fprintf(buf, "FirstChars: %s", set.String())
		if ci {
			buf.WriteString(" (ignore case)")
		}
		buf.WriteRune('\n')
	} else {
		buf.WriteString("FirstChars: n/a\n")
	}

	if prefix, ci := h.Prefix(); prefix != "" {
		fmt.Fprintf(buf, "Prefix: %s", quote(prefix))
		if ci {
			buf.WriteString(" (ignore case)")
		}
		buf.WriteRune('\n')
	} else {
		buf.WriteString("Prefix: n/a\n")
	}

	fmt.Fprintf(buf, "Anchors: %s\n", h.anchors)
	fmt.Fprintf(buf, "FindMode: %s\n", h.opt.FindMode)

	return buf.String()
}

// DumpTree returns the parse tree the hints were computed from, one node per line
func (h *Hints) DumpTree() string {
	return h.tree.Dump()
}

// GetGroupNames Returns the set of strings used to name capturing groups in the expression.
func (h *Hints) GetGroupNames() []string {
	names := make(map[int]string, len(h.capnames))
	for name, num := range h.capnames {
		names[num] = name
	}

	result := make([]string, len(h.capnumlist))
	for i, num := range h.capnumlist {
		if name, ok := names[num]; ok {
			result[i] = name
		} else {
			result[i] = strconv.Itoa(num)
		}
	}

	return result
}

// GetGroupNumbers returns the integer group numbers of the capturing groups in the expression.
func (h *Hints) GetGroupNumbers() []int {
	result := make([]int, len(h.capnumlist))
	copy(result, h.capnumlist)
	return result
}

// GroupNumberFromName returns a group number that corresponds to a group name.
// Returns -1 if the name is not a recognized group name.  Numbered groups
// automatically get a group name that is the decimal string equivalent of its number.
func (h *Hints) GroupNumberFromName(name string) int {
	if k, ok := h.capnames[name]; ok {
		return k
	}

	// convert to an int if it looks like a number
	result := 0
	for i := 0; i < len(name); i++ {
		ch := name[i]

		if ch > '9' || ch < '0' {
			return -1
		}

		result *= 10
		result += int(ch - '0')
	}
	if len(name) == 0 {
		return -1
	}

	for _, num := range h.capnumlist {
		if num == result {
			return result
		}
	}

	return -1
}
