package syntax

import (
	"fmt"
)

// Error is the error returned for a pattern that can't be parsed or
// a tree the analyzers can't make sense of.
type Error struct {
	Code ErrorCode
	Expr string
	Args []interface{}
}

func (e *Error) Error() string {
	if len(e.Args) == 0 {
		return "error parsing regexp: " + e.Code.String() + " in `" + e.Expr + "`"
	}
	return "error parsing regexp: " + fmt.Sprintf(e.Code.String(), e.Args...) + " in `" + e.Expr + "`"
}

// ErrorCode describes a failure to parse or analyze a regular expression.
type ErrorCode string

const (
	// internal issue
	ErrInternalError ErrorCode = "regexp/syntax: internal error"
	// the analyzers met a node type they don't know about
	ErrUnexpectedNode = "unexpected node type %v"
	// parser syntax errors
	ErrUnterminatedBracket    = "unterminated [] set"
	ErrTooManyParens          = "too many )'s"
	ErrNotEnoughParens        = "not enough )'s"
	ErrMalformedSyntax        = "malformed pattern at %v: %v"
	ErrNestedQuantify         = "nested quantifier '%v'"
	ErrQuantifyAfterNothing   = "quantifier '%v' following nothing"
	ErrIllegalRange           = "illegal {x,y} with x > y"
	ErrReversedCharRange      = "[x-y] range in reverse order"
	ErrSubtractionMustBeLast  = "a subtraction must be the last element in a character class"
	ErrUndefinedBackRef       = "reference to undefined group number %v"
	ErrUndefinedNameRef       = "reference to undefined group name %v"
	ErrUnknownCategory        = "unknown unicode category, script, or property '%v'"
	ErrUnrecognizedEscape     = "unrecognized escape sequence \\%v"
	ErrTooManyAlternates      = "too many | in (?()|)"
	ErrIllegalEndEscape       = "illegal \\ at end of pattern"
	ErrInvalidGroupName       = "invalid group name: group names must begin with a word character and have a matching terminator"
	ErrCapNumNotZero          = "capture number cannot be zero"
	ErrUnrecognizedGrouping   = "unrecognized grouping construct at %v"
)

func (e ErrorCode) String() string {
	return string(e)
}
