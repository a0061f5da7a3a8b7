package syntax

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// MaxChar is the last character of the alphabet the analyzers reason about.
const MaxChar = unicode.MaxRune

// CharSet combines start-end rune ranges and unicode categories representing a set of characters
type CharSet struct {
	ranges     []singleRange
	categories []category
	sub        *CharSet //optional subtractor
	negate     bool
}

type category struct {
	negate bool
	cat    string
}

type singleRange struct {
	first rune
	last  rune
}

const (
	// categories that aren't unicode table names
	spaceCategoryText = "Space"
	wordCategoryText  = "Word"
)

var (
	ecmaSpaceClass = []singleRange{{'\u0009', '\u000D'}, {' ', ' '}}
	ecmaWordClass  = []singleRange{{'0', '9'}, {'A', 'Z'}, {'_', '_'}, {'a', 'z'}, {'\u0130', '\u0130'}}
	ecmaDigitClass = []singleRange{{'0', '9'}}
)

// AnyClass returns a set matching every character of the alphabet
func AnyClass() *CharSet {
	return &CharSet{ranges: []singleRange{{0, MaxChar}}}
}

// Copy makes a deep copy to prevent accidental mutation of a set
func (c CharSet) Copy() CharSet {
	ret := CharSet{negate: c.negate}

	ret.ranges = append(ret.ranges, c.ranges...)
	ret.categories = append(ret.categories, c.categories...)

	if c.sub != nil {
		sub := c.sub.Copy()
		ret.sub = &sub
	}

	return ret
}

// gets a human-readable description for a set string
func (c CharSet) String() string {
	buf := &bytes.Buffer{}
	buf.WriteRune('[')

	ranges := mergeRanges(c.ranges)

	if !c.negate && len(c.categories) == 0 && c.sub == nil &&
		len(ranges) > 0 && ranges[len(ranges)-1].last == MaxChar {
		// sets reaching the end of the alphabet read better inverted
		inverse := invertRanges(ranges)
		if len(inverse) == 0 {
			return "[any]"
		}
		buf.WriteRune('^')
		writeRanges(buf, inverse)
	} else {
		if c.negate {
			buf.WriteRune('^')
		}
		writeRanges(buf, ranges)
	}

	for _, cat := range c.categories {
		buf.WriteString(cat.String())
	}

	if c.sub != nil {
		buf.WriteRune('-')
		buf.WriteString(c.sub.String())
	}

	buf.WriteRune(']')

	return buf.String()
}

func writeRanges(buf *bytes.Buffer, ranges []singleRange) {
	for _, r := range ranges {
		buf.WriteString(CharDescription(r.first))
		if r.first != r.last {
			if r.last-r.first != 1 {
				buf.WriteRune('-')
			}
			buf.WriteString(CharDescription(r.last))
		}
	}
}

func (c category) String() string {
	switch c.cat {
	case spaceCategoryText:
		if c.negate {
			return "\\S"
		}
		return "\\s"
	case wordCategoryText:
		if c.negate {
			return "\\W"
		}
		return "\\w"
	case "Nd":
		if c.negate {
			return "\\D"
		}
		return "\\d"
	}
	if c.negate {
		return "\\P{" + c.cat + "}"
	}
	return "\\p{" + c.cat + "}"
}

// CharDescription produces a human-readable description for a single character.
func CharDescription(ch rune) string {
	switch ch {
	case '\n':
		return "\\n"
	case '\t':
		return "\\t"
	case '\r':
		return "\\r"
	case '\f':
		return "\\f"
	case '\v':
		return "\\v"
	}

	if strings.ContainsRune(`\[]^-.`, ch) {
		return "\\" + string(ch)
	}

	if ch >= ' ' && ch <= '~' {
		return string(ch)
	}

	if ch < 0x100 {
		return fmt.Sprintf("\\x%02x", ch)
	}
	if ch <= 0xFFFF {
		return fmt.Sprintf("\\u%04x", ch)
	}
	return fmt.Sprintf("\\U%08x", ch)
}

// According to UTS#18 Unicode Regular Expressions (http://www.unicode.org/reports/tr18/)
// RL 1.4 Simple Word Boundaries  The class of <word_character> includes all Alphabetic
// values from the Unicode character database, from UnicodeData.txt [UData], plus the U+200C
// ZERO WIDTH NON-JOINER and U+200D ZERO WIDTH JOINER.
func IsWordChar(r rune) bool {
	//"L", "Mn", "Nd", "Pc"
	return unicode.In(r, unicode.L, unicode.Mn, unicode.Nd, unicode.Pc) || r == '\u200D' || r == '\u200C'
}

// CharIn reports whether ch is a member of the set
func (c CharSet) CharIn(ch rune) bool {
	val := false
	for _, r := range c.ranges {
		if ch < r.first {
			continue
		}
		if ch <= r.last {
			val = true
			break
		}
	}

	if !val {
		for _, cat := range c.categories {
			if cat.charIn(ch) {
				val = true
				break
			}
		}
	}

	if c.negate {
		val = !val
	}

	if val && c.sub != nil {
		val = !c.sub.CharIn(ch)
	}

	return val
}

func (c category) charIn(ch rune) bool {
	var in bool
	switch c.cat {
	case spaceCategoryText:
		in = unicode.IsSpace(ch)
	case wordCategoryText:
		in = IsWordChar(ch)
	default:
		t, _ := categoryTable(c.cat)
		in = t != nil && unicode.Is(t, ch)
	}
	return in != c.negate
}

// categoryTable finds the unicode table for a \p{...} name.
func categoryTable(name string) (*unicode.RangeTable, bool) {
	if t, ok := unicode.Categories[name]; ok {
		return t, true
	}
	if t, ok := unicode.Scripts[name]; ok {
		return t, true
	}
	// .NET spells named blocks IsGreek, IsCyrillic, ...; the closest table we have is the script
	if strings.HasPrefix(name, "Is") {
		if t, ok := unicode.Scripts[name[2:]]; ok {
			return t, true
		}
	}
	return nil, false
}

// IsMergeable reports whether the set can be unioned with another set without
// losing meaning. Negated sets and sets with subtractions can't be.
func (c CharSet) IsMergeable() bool {
	return !c.IsNegated() && !c.HasSubtraction()
}

func (c CharSet) IsNegated() bool {
	return c.negate
}

func (c CharSet) HasSubtraction() bool {
	return c.sub != nil
}

// IsEmpty reports whether the set matches nothing at all
func (c CharSet) IsEmpty() bool {
	return len(c.ranges) == 0 && len(c.categories) == 0 && c.sub == nil && !c.negate
}

func (c CharSet) IsSingleton() bool {
	return !c.negate && c.isOneChar()
}

func (c CharSet) IsSingletonInverse() bool {
	return c.negate && c.isOneChar()
}

func (c CharSet) isOneChar() bool {
	if len(c.categories) != 0 || c.sub != nil {
		return false
	}
	ranges := mergeRanges(c.ranges)
	return len(ranges) == 1 && ranges[0].first == ranges[0].last
}

// SingletonChar returns the only char of a singleton (or inverse singleton) set
func (c CharSet) SingletonChar() rune {
	return mergeRanges(c.ranges)[0].first
}

// Equals compares two sets by meaning of their contents, not by the order
// they were built in
func (c CharSet) Equals(o *CharSet) bool {
	if o == nil || c.negate != o.negate {
		return false
	}
	if (c.sub == nil) != (o.sub == nil) {
		return false
	}
	if c.sub != nil && !c.sub.Equals(o.sub) {
		return false
	}

	r1, r2 := mergeRanges(c.ranges), mergeRanges(o.ranges)
	if len(r1) != len(r2) {
		return false
	}
	for i := range r1 {
		if r1[i] != r2[i] {
			return false
		}
	}

	c1, c2 := sortedCategories(c.categories), sortedCategories(o.categories)
	if len(c1) != len(c2) {
		return false
	}
	for i := range c1 {
		if c1[i] != c2[i] {
			return false
		}
	}

	return true
}

func (c *CharSet) addChar(ch rune) {
	c.addRange(ch, ch)
}

func (c *CharSet) addRange(first, last rune) {
	c.ranges = append(c.ranges, singleRange{first: first, last: last})
}

func (c *CharSet) addRanges(ranges []singleRange) {
	c.ranges = append(c.ranges, ranges...)
}

// adds everything in the alphabet that's not in ranges
func (c *CharSet) addNegativeRanges(ranges []singleRange) {
	c.ranges = append(c.ranges, invertRanges(mergeRanges(ranges))...)
}

// addSet unions set into c. Both sets must be mergeable.
func (c *CharSet) addSet(set CharSet) {
	c.ranges = append(c.ranges, set.ranges...)
	c.categories = append(c.categories, set.categories...)
	c.ranges = mergeRanges(c.ranges)
}

func (c *CharSet) addSubtraction(sub *CharSet) {
	c.sub = sub
}

func (c *CharSet) addCategory(cat string, negate bool) {
	c.categories = append(c.categories, category{cat: cat, negate: negate})
}

func (c *CharSet) addDigit(ecma, negate bool) {
	if ecma {
		if negate {
			c.addNegativeRanges(ecmaDigitClass)
		} else {
			c.addRanges(ecmaDigitClass)
		}
	} else {
		c.addCategory("Nd", negate)
	}
}

func (c *CharSet) addWord(ecma, negate bool) {
	if ecma {
		if negate {
			c.addNegativeRanges(ecmaWordClass)
		} else {
			c.addRanges(ecmaWordClass)
		}
	} else {
		c.addCategory(wordCategoryText, negate)
	}
}

func (c *CharSet) addSpace(ecma, negate bool) {
	if ecma {
		if negate {
			c.addNegativeRanges(ecmaSpaceClass)
		} else {
			c.addRanges(ecmaSpaceClass)
		}
	} else {
		c.addCategory(spaceCategoryText, negate)
	}
}

// addLowercase adds to the class any lowercase versions of characters already
// in the class. Used for case-insensitivity. A nil culture folds culture-invariantly.
func (c *CharSet) addLowercase(culture unicode.SpecialCase) {
	count := len(c.ranges)
	for i := 0; i < count; i++ {
		r := c.ranges[i]
		if r.first == r.last {
			for _, lower := range lowercaseVariants(r.first, culture) {
				c.addChar(lower)
			}
		} else {
			c.addLowercaseRange(r.first, r.last, culture)
		}
	}
	c.ranges = mergeRanges(c.ranges)
}

// only characters inside a case range can have a lowercase variant, so
// we walk the intersection with the case tables instead of the whole range
func (c *CharSet) addLowercaseRange(chMin, chMax rune, culture unicode.SpecialCase) {
	visit := func(lo, hi rune) {
		if lo < chMin {
			lo = chMin
		}
		if hi > chMax {
			hi = chMax
		}
		for ch := lo; ch <= hi; ch++ {
			for _, lower := range lowercaseVariants(ch, culture) {
				c.addChar(lower)
			}
		}
	}

	for _, cr := range unicode.CaseRanges {
		if rune(cr.Hi) < chMin || rune(cr.Lo) > chMax {
			continue
		}
		visit(rune(cr.Lo), rune(cr.Hi))
	}
	for _, cr := range culture {
		if rune(cr.Hi) < chMin || rune(cr.Lo) > chMax {
			continue
		}
		visit(rune(cr.Lo), rune(cr.Hi))
	}
}

// mergeRanges returns a sorted copy of ranges with overlapping and adjacent
// ranges joined together.
func mergeRanges(ranges []singleRange) []singleRange {
	if len(ranges) == 0 {
		return nil
	}

	out := make([]singleRange, len(ranges))
	copy(out, ranges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].first == out[j].first {
			return out[i].last < out[j].last
		}
		return out[i].first < out[j].first
	})

	j := 0
	for i := 1; i < len(out); i++ {
		if out[i].first <= out[j].last+1 {
			if out[i].last > out[j].last {
				out[j].last = out[i].last
			}
			continue
		}
		j++
		out[j] = out[i]
	}

	return out[:j+1]
}

// invertRanges expects merged ranges and returns their complement in the alphabet
func invertRanges(ranges []singleRange) []singleRange {
	var out []singleRange
	next := rune(0)
	for _, r := range ranges {
		if r.first > next {
			out = append(out, singleRange{next, r.first - 1})
		}
		next = r.last + 1
	}
	if next <= MaxChar {
		out = append(out, singleRange{next, MaxChar})
	}
	return out
}

func sortedCategories(cats []category) []category {
	out := make([]category, len(cats))
	copy(out, cats)
	sort.Slice(out, func(i, j int) bool {
		if out[i].cat == out[j].cat {
			return !out[i].negate && out[j].negate
		}
		return out[i].cat < out[j].cat
	})
	return out
}

const (
	hashNegate = 1 << iota
	hashSubtraction
)

// Hash returns the compact encoded description of the set. Equal sets
// produce equal hashes.
func (c CharSet) Hash() []byte {
	buf := &bytes.Buffer{}
	c.mapHashFill(buf)
	return buf.Bytes()
}

func (c CharSet) mapHashFill(buf *bytes.Buffer) {
	var flags byte
	if c.negate {
		flags |= hashNegate
	}
	if c.sub != nil {
		flags |= hashSubtraction
	}
	buf.WriteByte(flags)

	tmp := make([]byte, binary.MaxVarintLen64)
	writeUvarint := func(v uint64) {
		n := binary.PutUvarint(tmp, v)
		buf.Write(tmp[:n])
	}

	ranges := mergeRanges(c.ranges)
	writeUvarint(uint64(len(ranges)))
	for _, r := range ranges {
		writeUvarint(uint64(r.first))
		writeUvarint(uint64(r.last))
	}

	cats := sortedCategories(c.categories)
	writeUvarint(uint64(len(cats)))
	for _, cat := range cats {
		if cat.negate {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		writeUvarint(uint64(len(cat.cat)))
		buf.WriteString(cat.cat)
	}

	if c.sub != nil {
		c.sub.mapHashFill(buf)
	}
}

// NewCharSetRuntime rebuilds a set from the output of Hash
func NewCharSetRuntime(buf string) CharSet {
	c, _ := decodeCharSet([]byte(buf))
	return c
}

func decodeCharSet(b []byte) (CharSet, []byte) {
	readUvarint := func() uint64 {
		v, n := binary.Uvarint(b)
		if n <= 0 {
			// a bug got us here. that's bad.
			panic(fmt.Errorf("malformed charset encoding"))
		}
		b = b[n:]
		return v
	}

	if len(b) == 0 {
		panic(fmt.Errorf("malformed charset encoding"))
	}
	flags := b[0]
	b = b[1:]

	c := CharSet{negate: flags&hashNegate != 0}

	count := readUvarint()
	for i := uint64(0); i < count; i++ {
		first := rune(readUvarint())
		last := rune(readUvarint())
		c.addRange(first, last)
	}

	count = readUvarint()
	for i := uint64(0); i < count; i++ {
		if len(b) == 0 {
			panic(fmt.Errorf("malformed charset encoding"))
		}
		negate := b[0] == 1
		b = b[1:]
		l := readUvarint()
		if uint64(len(b)) < l {
			panic(fmt.Errorf("malformed charset encoding"))
		}
		c.addCategory(string(b[:l]), negate)
		b = b[l:]
	}

	if flags&hashSubtraction != 0 {
		var sub CharSet
		sub, b = decodeCharSet(b)
		c.sub = &sub
	}

	return c, b
}
