//go:build regexdebug

package syntax

// prefixCutoff is kept small in debug builds so tests reach the boundary
const prefixCutoff = 50
