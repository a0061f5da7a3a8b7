//go:build !regexdebug

package syntax

// prefixCutoff is the longest repeated-char literal LeadingPrefix will build.
const prefixCutoff = 50000
