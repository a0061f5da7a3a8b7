package syntax

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

type RegexOptions int32

const (
	IgnoreCase              RegexOptions = 0x0001 // "i"
	Multiline               RegexOptions = 0x0002 // "m"
	ExplicitCapture         RegexOptions = 0x0004 // "n"
	Compiled                RegexOptions = 0x0008 // "c"
	Singleline              RegexOptions = 0x0010 // "s"
	IgnorePatternWhitespace RegexOptions = 0x0020 // "x"
	RightToLeft             RegexOptions = 0x0040 // "r"
	Debug                   RegexOptions = 0x0080 // "d"
	ECMAScript              RegexOptions = 0x0100 // "e"
	CultureInvariant        RegexOptions = 0x0200 // fold case without the current culture's rules
)

// The pattern is tokenized by participle's simple lexer; rules are tried in order.
var patternLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `\(\?#[^)]*\)`},
	{Name: "InlineOpts", Pattern: `\(\?[imnsx]*(?:-[imnsx]*)?\)`},
	{Name: "CondRef", Pattern: `\(\?\((?:\d+|[A-Za-z_]\w*)\)`},
	{Name: "CondGroup", Pattern: `\(\?\(\?(?:=|!|<=|<!|>|[imnsx]*(?:-[imnsx]*)?:)`},
	{Name: "CondOpen", Pattern: `\(\?\(`},
	{Name: "GroupOpen", Pattern: `\(\?(?:=|!|<=|<!|>|<\w+>|'\w+'|[imnsx]*(?:-[imnsx]*)?:)`},
	{Name: "BadGroup", Pattern: `\(\?`},
	{Name: "Open", Pattern: `\(`},
	{Name: "Class", Pattern: `\[\^?\]?(?:\\(?s:.)|-\[(?:\\(?s:.)|[^\]\\])*\]|[^\]\\])*\]`},
	{Name: "Bracket", Pattern: `\[`},
	{Name: "Quant", Pattern: `(?:[*+?]|\{\d+(?:,\d*)?\})\??`},
	{Name: "Escape", Pattern: `\\(?:x[0-9A-Fa-f]{2}|u[0-9A-Fa-f]{4}|c[A-Za-z]|[pP]\{[^}]*\}|k<[^>]*>|k'[^']*'|[1-9][0-9]*|0[0-7]{0,2}|(?s:.))`},
	{Name: "Backslash", Pattern: `\\`},
	{Name: "Close", Pattern: `\)`},
	{Name: "Alt", Pattern: `\|`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Caret", Pattern: `\^`},
	{Name: "Dollar", Pattern: `\$`},
	{Name: "Char", Pattern: `(?s:.)`},
})

// altAST is a list of alternatives; Head is the first branch
type altAST struct {
	Head []*atomAST   `parser:"@@*"`
	Tail []*branchAST `parser:"@@*"`
}

type branchAST struct {
	Pipe  string     `parser:"@Alt"`
	Atoms []*atomAST `parser:"@@*"`
}

type atomAST struct {
	Group  *groupAST `parser:"(  @@"`
	Cond   *condAST  `parser:" | @@"`
	Opts   *string   `parser:" | @InlineOpts"`
	Class  *string   `parser:" | @Class"`
	Escape *string   `parser:" | @Escape"`
	Dot    bool      `parser:" | @Dot"`
	Caret  bool      `parser:" | @Caret"`
	Dollar bool      `parser:" | @Dollar"`
	Stray  *string   `parser:" | @Quant"`
	Char   *string   `parser:" | @Char )"`

	Quant []string `parser:"@Quant*"`
}

type groupAST struct {
	Open string  `parser:"@(Open | GroupOpen)"`
	Body *altAST `parser:"@@? Close"`
}

// condAST is a conditional; the test is a group name or number (Ref), a group
// opened right after the "(?(" (Group, Test) or a bare expression (Expr)
type condAST struct {
	Ref   *string `parser:"(  @CondRef"`
	Group *string `parser:" | ( @CondGroup"`
	Test  *altAST `parser:"     @@?"`
	Expr  *altAST `parser:"   | CondOpen @@? ) Close )"`
	Body  *altAST `parser:"@@? Close"`
}

// test returns the condition expression of a (?(...)) that isn't a reference
func (c *condAST) test() *altAST {
	if c.Group != nil {
		return c.Test
	}
	return c.Expr
}

func (a *altAST) branches() [][]*atomAST {
	if a == nil {
		return [][]*atomAST{nil}
	}
	ret := make([][]*atomAST, 0, len(a.Tail)+1)
	ret = append(ret, a.Head)
	for _, b := range a.Tail {
		ret = append(ret, b.Atoms)
	}
	return ret
}

var patternParser = participle.MustBuild[altAST](
	participle.Lexer(patternLexer),
	participle.Elide("Comment"),
)

var commentRE = regexp.MustCompile(`\(\?#[^)]*\)`)

const infinite = math.MaxInt32

type parser struct {
	pattern string
	options RegexOptions

	groupNums map[*groupAST]int
	capnames  map[string]int
	caplist   []string
	capnums   map[int]bool
	captop    int
}

// Parse converts a regex string into a parse tree
func Parse(re string, op RegexOptions) (*RegexTree, error) {
	p := &parser{
		pattern:   re,
		options:   op,
		groupNums: map[*groupAST]int{},
		capnames:  map[string]int{},
		capnums:   map[int]bool{0: true},
	}

	src := re
	if op&IgnorePatternWhitespace != 0 || strings.ContainsRune(re, 'x') {
		src = stripPatternWhitespace(src, op)
	}

	if err := p.checkTokens(src); err != nil {
		return nil, err
	}

	var ast *altAST
	if commentRE.ReplaceAllString(src, "") != "" {
		var err error
		ast, err = patternParser.ParseString("", src)
		if err != nil {
			return nil, p.syntaxError(err)
		}
	}

	if err := p.countCaptures(ast, op); err != nil {
		return nil, err
	}

	body, err := p.scanAlternation(ast, op)
	if err != nil {
		return nil, err
	}

	root := newRegexNodeMN(NtCapture, op, 0, -1)
	root.addChild(body)

	tree := &RegexTree{
		Root:    root,
		Captop:  p.captop,
		Caplist: p.caplist,
		Options: op,
		Culture: DefaultCulture,
	}
	if len(p.capnames) > 0 {
		tree.Capnames = p.capnames
	}
	for i := 0; i < p.captop; i++ {
		if p.capnums[i] {
			tree.Capnumlist = append(tree.Capnumlist, i)
		}
	}
	if len(tree.Capnumlist) != p.captop {
		tree.Caps = make(map[int]int, len(tree.Capnumlist))
		for i, n := range tree.Capnumlist {
			tree.Caps[n] = i
		}
	}

	tree.FindOptimizations, err = newFindOptimizations(tree, op)
	if err != nil {
		return nil, err
	}

	return tree, nil
}

var patternSymbols = patternLexer.Symbols()

// a (?< or (?' that can't start a name; (?<a-b> is a balancing group instead
var badGroupNameRE = regexp.MustCompile(`^[<'](?:\W|$|\w+(?:[^\w>'-]|$))`)

// checkTokens reports the errors that show up as a single bad token or
// unbalanced parens, before the grammar gets to see them
func (p *parser) checkTokens(src string) error {
	lex, err := patternLexer.LexString("", src)
	if err != nil {
		return p.syntaxError(err)
	}

	depth := 0
	for {
		tok, err := lex.Next()
		if err != nil {
			return p.syntaxError(err)
		}
		if tok.EOF() {
			break
		}

		switch tok.Type {
		case patternSymbols["Open"], patternSymbols["GroupOpen"], patternSymbols["CondRef"]:
			depth++
		case patternSymbols["CondOpen"], patternSymbols["CondGroup"]:
			// the condition gets its own )
			depth += 2
		case patternSymbols["Close"]:
			depth--
			if depth < 0 {
				return &Error{Code: ErrTooManyParens, Expr: p.pattern}
			}
		case patternSymbols["Bracket"]:
			return &Error{Code: ErrUnterminatedBracket, Expr: p.pattern}
		case patternSymbols["Backslash"]:
			return &Error{Code: ErrIllegalEndEscape, Expr: p.pattern}
		case patternSymbols["BadGroup"]:
			if badGroupNameRE.MatchString(src[tok.Pos.Offset+len(tok.Value):]) {
				return &Error{Code: ErrInvalidGroupName, Expr: p.pattern}
			}
			return &Error{Code: ErrUnrecognizedGrouping, Expr: p.pattern, Args: []interface{}{tok.Pos.Offset}}
		}
	}

	if depth > 0 {
		return &Error{Code: ErrNotEnoughParens, Expr: p.pattern}
	}
	return nil
}

func (p *parser) syntaxError(err error) error {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return &Error{Code: ErrInternalError, Expr: p.pattern}
	}
	return &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{perr.Position().Offset, perr.Message()}}
}

var inlineOptsRE = regexp.MustCompile(`^\(\?[imnsx]*(?:-[imnsx]*)?[:)]`)

// stripPatternWhitespace drops unescaped whitespace and #-comments outside of
// character classes wherever IgnorePatternWhitespace is in effect. The option
// follows inline (?x) and (?-x) and is restored at the end of each group.
func stripPatternWhitespace(s string, opts RegexOptions) string {
	var b strings.Builder
	// options to restore at each )
	var scopes []RegexOptions

	for i := 0; i < len(s); {
		ch, size := utf8.DecodeRuneInString(s[i:])
		ignore := opts&IgnorePatternWhitespace != 0

		switch {
		case ch == '\\':
			b.WriteByte('\\')
			i++
			if i < len(s) {
				_, size = utf8.DecodeRuneInString(s[i:])
				b.WriteString(s[i : i+size])
				i += size
			}
			continue

		case ch == '[':
			end := classEnd(s, i)
			b.WriteString(s[i:end])
			i = end
			continue

		case strings.HasPrefix(s[i:], "(?#"):
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				end = len(s) - i - 1
			}
			b.WriteString(s[i : i+end+1])
			i += end + 1
			continue

		case ch == '(':
			if m := inlineOptsRE.FindString(s[i:]); m != "" {
				if strings.HasSuffix(m, ":") {
					scopes = append(scopes, opts)
				}
				opts = applyOptions(m, opts)
				b.WriteString(m)
				i += len(m)
				continue
			}
			scopes = append(scopes, opts)

		case ch == ')':
			if len(scopes) > 0 {
				opts = scopes[len(scopes)-1]
				scopes = scopes[:len(scopes)-1]
			}

		case ignore && ch == '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			continue

		case ignore && unicode.IsSpace(ch):
			i += size
			continue
		}

		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// classEnd returns the index just past the [...] class starting at s[i], or
// len(s) if it's unterminated
func classEnd(s string, i int) int {
	i++
	if strings.HasPrefix(s[i:], "^") {
		i++
	}
	// a ] right after the opening bracket is a literal
	if strings.HasPrefix(s[i:], "]") {
		i++
	}
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
			continue
		case ']':
			return i + 1
		}
		i++
	}
	return len(s)
}

// applyOptions applies an inline option spec like "(?im-s)" or "(?x:" to opts
func applyOptions(spec string, opts RegexOptions) RegexOptions {
	off := false
	for _, ch := range strings.TrimRight(strings.TrimPrefix(spec, "(?"), ":)") {
		var o RegexOptions
		switch ch {
		case '-':
			off = true
			continue
		case 'i':
			o = IgnoreCase
		case 'm':
			o = Multiline
		case 'n':
			o = ExplicitCapture
		case 's':
			o = Singleline
		case 'x':
			o = IgnorePatternWhitespace
		}
		if off {
			opts &^= o
		} else {
			opts |= o
		}
	}
	return opts
}

type groupKind int

const (
	groupCapture groupKind = iota
	groupNamed
	groupNonCapture
	groupPosLookahead
	groupNegLookahead
	groupPosLookbehind
	groupNegLookbehind
	groupAtomic
	groupScoped
)

func classifyGroup(open string) (groupKind, string) {
	switch {
	case open == "(":
		return groupCapture, ""
	case open == "(?=":
		return groupPosLookahead, ""
	case open == "(?!":
		return groupNegLookahead, ""
	case open == "(?<=":
		return groupPosLookbehind, ""
	case open == "(?<!":
		return groupNegLookbehind, ""
	case open == "(?>":
		return groupAtomic, ""
	case strings.HasPrefix(open, "(?<"), strings.HasPrefix(open, "(?'"):
		return groupNamed, open[3 : len(open)-1]
	}
	return groupScoped, ""
}

// options in effect inside a group
func groupOptions(open string, opts RegexOptions) RegexOptions {
	kind, _ := classifyGroup(open)
	switch kind {
	case groupPosLookahead, groupNegLookahead:
		return opts &^ RightToLeft
	case groupPosLookbehind, groupNegLookbehind:
		return opts | RightToLeft
	case groupScoped:
		return applyOptions(open, opts)
	}
	return opts
}

// countCaptures numbers the capture groups before any nodes are built so
// forward references and named conditionals can be resolved. Unnamed groups
// are numbered first, then named ones, in pattern order.
func (p *parser) countCaptures(ast *altAST, opts RegexOptions) error {
	var named []*groupAST
	autocap := 1

	var walk func(a *altAST, opts RegexOptions) error
	walk = func(a *altAST, opts RegexOptions) error {
		for _, branch := range a.branches() {
			for _, atom := range branch {
				switch {
				case atom.Opts != nil:
					opts = applyOptions(*atom.Opts, opts)
				case atom.Group != nil:
					kind, name := classifyGroup(atom.Group.Open)
					if kind == groupCapture && opts&ExplicitCapture == 0 {
						p.noteCapture(atom.Group, autocap)
						autocap++
					} else if kind == groupNamed {
						if n, err := strconv.Atoi(name); err == nil {
							if n == 0 {
								return &Error{Code: ErrCapNumNotZero, Expr: p.pattern}
							}
							p.noteCapture(atom.Group, n)
						} else if name[0] >= '0' && name[0] <= '9' {
							return &Error{Code: ErrInvalidGroupName, Expr: p.pattern}
						} else {
							named = append(named, atom.Group)
						}
					}
					if atom.Group.Body != nil {
						if err := walk(atom.Group.Body, groupOptions(atom.Group.Open, opts)); err != nil {
							return err
						}
					}
				case atom.Cond != nil:
					if test := atom.Cond.test(); test != nil {
						if err := walk(test, opts); err != nil {
							return err
						}
					}
					if atom.Cond.Body != nil {
						if err := walk(atom.Cond.Body, opts); err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	}

	if ast != nil {
		if err := walk(ast, opts); err != nil {
			return err
		}
	}

	for _, g := range named {
		_, name := classifyGroup(g.Open)
		if n, ok := p.capnames[name]; ok {
			p.groupNums[g] = n
			continue
		}
		for p.capnums[autocap] {
			autocap++
		}
		p.capnames[name] = autocap
		p.caplist = append(p.caplist, name)
		p.noteCapture(g, autocap)
	}

	for n := range p.capnums {
		if n+1 > p.captop {
			p.captop = n + 1
		}
	}

	return nil
}

func (p *parser) noteCapture(g *groupAST, n int) {
	p.groupNums[g] = n
	p.capnums[n] = true
}

func (p *parser) isCaptureName(name string) bool {
	_, ok := p.capnames[name]
	return ok
}

// scanAlternation builds the node for a list of alternatives
func (p *parser) scanAlternation(a *altAST, opts RegexOptions) (*RegexNode, error) {
	branches := a.branches()
	if len(branches) == 1 {
		n, _, err := p.scanConcatenation(branches[0], opts)
		return n, err
	}

	alt := newRegexNode(NtAlternate, opts)
	for _, branch := range branches {
		n, next, err := p.scanConcatenation(branch, opts)
		if err != nil {
			return nil, err
		}
		// inline options carry over into the following alternatives
		opts = next
		alt.addChild(n)
	}
	return alt, nil
}

// scanConcatenation builds the node for one branch and returns the options
// in effect at its end
func (p *parser) scanConcatenation(atoms []*atomAST, opts RegexOptions) (*RegexNode, RegexOptions, error) {
	concat := newRegexNode(NtConcatenate, opts)

	for _, atom := range atoms {
		if atom.Opts != nil {
			if len(atom.Quant) > 0 {
				return nil, opts, &Error{Code: ErrQuantifyAfterNothing, Expr: p.pattern, Args: []interface{}{atom.Quant[0]}}
			}
			opts = applyOptions(*atom.Opts, opts)
			continue
		}
		if atom.Stray != nil {
			return nil, opts, &Error{Code: ErrQuantifyAfterNothing, Expr: p.pattern, Args: []interface{}{*atom.Stray}}
		}

		n, err := p.scanAtom(atom, opts)
		if err != nil {
			return nil, opts, err
		}

		switch len(atom.Quant) {
		case 0:
		case 1:
			min, max, lazy, err := p.scanQuantifier(atom.Quant[0])
			if err != nil {
				return nil, opts, err
			}
			n = n.makeQuantifier(lazy, min, max)
		default:
			return nil, opts, &Error{Code: ErrNestedQuantify, Expr: p.pattern, Args: []interface{}{atom.Quant[1]}}
		}

		concat.addChild(n)
	}

	return concat.reverseLeft(), opts, nil
}

func (p *parser) scanQuantifier(q string) (min, max int, lazy bool, err error) {
	if strings.HasSuffix(q, "?") && len(q) > 1 {
		lazy = true
		q = q[:len(q)-1]
	}

	switch q {
	case "*":
		return 0, infinite, lazy, nil
	case "+":
		return 1, infinite, lazy, nil
	case "?":
		return 0, 1, lazy, nil
	}

	// {n}, {n,} or {n,m}
	body := q[1 : len(q)-1]
	lo, hi, hasComma := strings.Cut(body, ",")
	if min, err = atoiCapped(lo); err != nil {
		return 0, 0, false, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{q, err}}
	}
	switch {
	case !hasComma:
		max = min
	case hi == "":
		max = infinite
	default:
		if max, err = atoiCapped(hi); err != nil {
			return 0, 0, false, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{q, err}}
		}
	}

	if max < min {
		return 0, 0, false, &Error{Code: ErrIllegalRange, Expr: p.pattern}
	}
	return min, max, lazy, nil
}

// counts past the int32 range are treated as infinite
func atoiCapped(s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	var nerr *strconv.NumError
	if errors.As(err, &nerr) && nerr.Err == strconv.ErrRange || err == nil && n > infinite {
		return infinite, nil
	}
	return int(n), err
}

func (p *parser) scanAtom(atom *atomAST, opts RegexOptions) (*RegexNode, error) {
	switch {
	case atom.Group != nil:
		return p.scanGroup(atom.Group, opts)

	case atom.Cond != nil:
		return p.scanConditional(atom.Cond, opts)

	case atom.Class != nil:
		set, err := p.scanCharClass([]rune(*atom.Class), opts)
		if err != nil {
			return nil, err
		}
		return newRegexNodeSet(NtSet, opts, set), nil

	case atom.Escape != nil:
		return p.scanBackslash(*atom.Escape, opts)

	case atom.Dot:
		if opts&Singleline != 0 {
			return newRegexNodeSet(NtSet, opts, AnyClass()), nil
		}
		return newRegexNodeCh(NtNotone, opts, '\n'), nil

	case atom.Caret:
		if opts&Multiline != 0 {
			return newRegexNode(NtBol, opts), nil
		}
		return newRegexNode(NtBeginning, opts), nil

	case atom.Dollar:
		if opts&Multiline != 0 {
			return newRegexNode(NtEol, opts), nil
		}
		return newRegexNode(NtEndZ, opts), nil

	case atom.Char != nil:
		ch, _ := utf8.DecodeRuneInString(*atom.Char)
		return newRegexNodeCh(NtOne, opts, ch), nil
	}

	return nil, &Error{Code: ErrInternalError, Expr: p.pattern}
}

func (p *parser) scanGroup(g *groupAST, opts RegexOptions) (*RegexNode, error) {
	inner := groupOptions(g.Open, opts)

	body, err := p.scanAlternation(g.Body, inner)
	if err != nil {
		return nil, err
	}

	var n *RegexNode
	kind, _ := classifyGroup(g.Open)
	switch kind {
	case groupCapture, groupNamed:
		if num, ok := p.groupNums[g]; ok {
			n = newRegexNodeMN(NtCapture, opts, num, -1)
		} else {
			n = newRegexNode(NtGroup, opts)
		}
	case groupPosLookahead, groupPosLookbehind:
		n = newRegexNode(NtPosLook, opts)
	case groupNegLookahead, groupNegLookbehind:
		n = newRegexNode(NtNegLook, opts)
	case groupAtomic:
		n = newRegexNode(NtAtomic, opts)
	default:
		n = newRegexNode(NtGroup, opts)
	}

	n.addChild(body)
	return n, nil
}

// scanConditional builds (?(n)yes|no), (?(name)yes|no) and (?(expr)yes|no)
func (p *parser) scanConditional(c *condAST, opts RegexOptions) (*RegexNode, error) {
	branches := c.Body.branches()
	if len(branches) > 2 {
		return nil, &Error{Code: ErrTooManyAlternates, Expr: p.pattern}
	}

	var n *RegexNode
	if c.Ref != nil {
		ref := (*c.Ref)[3 : len(*c.Ref)-1]
		if num, err := strconv.Atoi(ref); err == nil {
			if !p.capnums[num] {
				return nil, &Error{Code: ErrUndefinedBackRef, Expr: p.pattern, Args: []interface{}{num}}
			}
			n = newRegexNodeM(NtBackRefCond, opts, num)
		} else if p.isCaptureName(ref) {
			n = newRegexNodeM(NtBackRefCond, opts, p.capnames[ref])
		} else {
			// not a group, so the name is a literal lookahead
			n = newRegexNode(NtExprCond, opts)
			test := newRegexNode(NtConcatenate, opts&^RightToLeft)
			for _, ch := range ref {
				test.addChild(newRegexNodeCh(NtOne, opts&^RightToLeft, ch))
			}
			look := newRegexNode(NtPosLook, opts)
			look.addChild(test)
			n.addChild(look)
		}
	} else {
		n = newRegexNode(NtExprCond, opts)
		look, err := p.scanCondition(c, opts)
		if err != nil {
			return nil, err
		}
		n.addChild(look)
	}

	for _, branch := range branches {
		b, _, err := p.scanConcatenation(branch, opts)
		if err != nil {
			return nil, err
		}
		n.addChild(b)
	}
	if len(branches) == 1 {
		n.addChild(newRegexNode(NtEmpty, opts))
	}

	return n, nil
}

// scanCondition builds the zero-width test of a (?(expr)yes|no). A lookaround
// is used as is, anything else becomes a lookahead.
func (p *parser) scanCondition(c *condAST, opts RegexOptions) (*RegexNode, error) {
	if c.Group == nil {
		test, err := p.scanAlternation(c.Expr, opts&^RightToLeft)
		if err != nil {
			return nil, err
		}
		look := newRegexNode(NtPosLook, opts)
		look.addChild(test)
		return look, nil
	}

	open := (*c.Group)[2:]
	inner := groupOptions(open, opts&^RightToLeft)
	test, err := p.scanAlternation(c.Test, inner)
	if err != nil {
		return nil, err
	}

	var look *RegexNode
	switch kind, _ := classifyGroup(open); kind {
	case groupPosLookahead, groupPosLookbehind:
		look = newRegexNode(NtPosLook, opts)
	case groupNegLookahead, groupNegLookbehind:
		look = newRegexNode(NtNegLook, opts)
	case groupAtomic:
		atomic := newRegexNode(NtAtomic, opts)
		atomic.addChild(test)
		test = atomic
		fallthrough
	default:
		look = newRegexNode(NtPosLook, opts)
	}
	look.addChild(test)
	return look, nil
}

// scanBackslash builds the node for an escape outside of a char class
func (p *parser) scanBackslash(tok string, opts RegexOptions) (*RegexNode, error) {
	body := []rune(tok[1:])
	ecma := opts&ECMAScript != 0

	switch body[0] {
	case 'b':
		if ecma {
			return newRegexNode(NtECMABoundary, opts), nil
		}
		return newRegexNode(NtBoundary, opts), nil
	case 'B':
		if ecma {
			return newRegexNode(NtNonECMABoundary, opts), nil
		}
		return newRegexNode(NtNonboundary, opts), nil
	case 'A':
		return newRegexNode(NtBeginning, opts), nil
	case 'G':
		return newRegexNode(NtStart, opts), nil
	case 'Z':
		return newRegexNode(NtEndZ, opts), nil
	case 'z':
		return newRegexNode(NtEnd, opts), nil

	case 'w', 'W', 's', 'S', 'd', 'D', 'p', 'P':
		set := &CharSet{}
		if _, err := p.scanClassEscape(body, 0, set, opts); err != nil {
			return nil, err
		}
		return newRegexNodeSet(NtSet, opts, set), nil

	case 'k':
		if len(body) < 3 {
			return nil, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{tok, "malformed \\k<...> named back reference"}}
		}
		name := string(body[2 : len(body)-1])
		if num, err := strconv.Atoi(name); err == nil {
			return p.backref(num, opts)
		}
		if !p.isCaptureName(name) {
			return nil, &Error{Code: ErrUndefinedNameRef, Expr: p.pattern, Args: []interface{}{name}}
		}
		return newRegexNodeM(NtRef, opts, p.capnames[name]), nil
	}

	if body[0] >= '1' && body[0] <= '9' {
		num, _ := atoiCapped(string(body))
		return p.backref(num, opts)
	}

	ch, _, err := p.scanCharEscape(body, 0, false)
	if err != nil {
		return nil, err
	}
	return newRegexNodeCh(NtOne, opts, ch), nil
}

func (p *parser) backref(num int, opts RegexOptions) (*RegexNode, error) {
	if !p.capnums[num] {
		return nil, &Error{Code: ErrUndefinedBackRef, Expr: p.pattern, Args: []interface{}{num}}
	}
	return newRegexNodeM(NtRef, opts, num), nil
}

// scanCharEscape reads the char escape starting at s[i] (just past the
// backslash) and returns the char and the index following it
func (p *parser) scanCharEscape(s []rune, i int, inClass bool) (rune, int, error) {
	ch := s[i]
	i++

	switch ch {
	case 'x':
		return p.scanHex(s, i, 2)
	case 'u':
		return p.scanHex(s, i, 4)
	case 'c':
		if i >= len(s) || !isASCIILetter(s[i]) {
			return 0, i, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{i, "missing control character"}}
		}
		return s[i] & 0x1F, i + 1, nil
	case '0':
		val := rune(0)
		for j := 0; j < 2 && i < len(s) && s[i] >= '0' && s[i] <= '7'; j++ {
			val = val*8 + (s[i] - '0')
			i++
		}
		return val, i, nil
	case 'a':
		return '\u0007', i, nil
	case 'b':
		if inClass {
			return '\b', i, nil
		}
	case 'e':
		return '\u001B', i, nil
	case 'f':
		return '\f', i, nil
	case 'n':
		return '\n', i, nil
	case 'r':
		return '\r', i, nil
	case 't':
		return '\t', i, nil
	case 'v':
		return '\u000B', i, nil
	default:
		if !IsWordChar(ch) {
			return ch, i, nil
		}
	}

	return 0, i, &Error{Code: ErrUnrecognizedEscape, Expr: p.pattern, Args: []interface{}{string(ch)}}
}

func (p *parser) scanHex(s []rune, i, digits int) (rune, int, error) {
	if i+digits > len(s) {
		return 0, i, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{i, "insufficient hex digits"}}
	}
	v, err := strconv.ParseUint(string(s[i:i+digits]), 16, 32)
	if err != nil {
		return 0, i, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{i, "insufficient hex digits"}}
	}
	return rune(v), i + digits, nil
}

func isASCIILetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// scanClassEscape adds a \d \w \s \p{} class escape starting at s[i] to set.
// It returns -1 if s[i] doesn't start a class escape.
func (p *parser) scanClassEscape(s []rune, i int, set *CharSet, opts RegexOptions) (int, error) {
	ecma := opts&ECMAScript != 0

	switch s[i] {
	case 'w', 'W':
		set.addWord(ecma, s[i] == 'W')
	case 's', 'S':
		set.addSpace(ecma, s[i] == 'S')
	case 'd', 'D':
		set.addDigit(ecma, s[i] == 'D')
	case 'p', 'P':
		negate := s[i] == 'P'
		if i+1 >= len(s) || s[i+1] != '{' {
			return i, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{i, "incomplete \\p{X} character escape"}}
		}
		end := i + 2
		for end < len(s) && s[end] != '}' {
			end++
		}
		if end >= len(s) {
			return i, &Error{Code: ErrMalformedSyntax, Expr: p.pattern, Args: []interface{}{i, "incomplete \\p{X} character escape"}}
		}
		name := string(s[i+2 : end])
		if _, ok := categoryTable(name); !ok {
			return i, &Error{Code: ErrUnknownCategory, Expr: p.pattern, Args: []interface{}{name}}
		}
		set.addCategory(name, negate)
		return end + 1, nil
	default:
		return -1, nil
	}
	return i + 1, nil
}

// scanCharClass parses a [...] token into a set
func (p *parser) scanCharClass(s []rune, opts RegexOptions) (*CharSet, error) {
	set := &CharSet{}
	i := 1
	if i < len(s) && s[i] == '^' {
		set.negate = true
		i++
	}

	first := true
	end := len(s) - 1
	for i < end {
		ch := s[i]

		switch {
		case ch == ']' && !first:
			return nil, &Error{Code: ErrInternalError, Expr: p.pattern}

		case ch == '-' && !first && i+1 < end && s[i+1] == '[':
			// subtraction; the class body lexes only up to the first unescaped ]
			j := i + 2
			for j < end && s[j] != ']' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j != end-1 {
				return nil, &Error{Code: ErrSubtractionMustBeLast, Expr: p.pattern}
			}
			sub, err := p.scanCharClass(s[i+1:j+1], opts)
			if err != nil {
				return nil, err
			}
			set.addSubtraction(sub)
			return set, nil

		case ch == '\\' && i+1 < end:
			next, err := p.scanClassEscape(s, i+1, set, opts)
			if err != nil {
				return nil, err
			}
			if next >= 0 {
				i = next
				first = false
				continue
			}
			c, next, err := p.scanCharEscape(s, i+1, true)
			if err != nil {
				return nil, err
			}
			i, err = p.scanClassRange(s, next, end, c, set)
			if err != nil {
				return nil, err
			}

		default:
			var err error
			i, err = p.scanClassRange(s, i+1, end, ch, set)
			if err != nil {
				return nil, err
			}
		}
		first = false
	}

	return set, nil
}

// scanClassRange adds lo, or the range lo-x if s[i] starts a "-x" range end
func (p *parser) scanClassRange(s []rune, i, end int, lo rune, set *CharSet) (int, error) {
	if i+1 >= end || s[i] != '-' || s[i+1] == '[' {
		set.addChar(lo)
		return i, nil
	}

	hi := s[i+1]
	next := i + 2
	if hi == '\\' {
		if next >= end {
			return i, &Error{Code: ErrIllegalEndEscape, Expr: p.pattern}
		}
		var err error
		hi, next, err = p.scanCharEscape(s, next, true)
		if err != nil {
			return i, err
		}
	}

	if hi < lo {
		return i, &Error{Code: ErrReversedCharRange, Expr: p.pattern}
	}
	set.addRange(lo, hi)
	return next, nil
}
