// Command regexhints prints the search hints of one or more regular expressions.
//
//	regexhints [-i] [-m] [-s] [-x] [-r] [-e] [-invariant] [-debug] pattern...
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dlclark/regexhints"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("regexhints", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		ignoreCase = fs.Bool("i", false, "case-insensitive matching")
		multiline  = fs.Bool("m", false, "^ and $ match at line breaks")
		singleline = fs.Bool("s", false, ". matches \\n")
		extended   = fs.Bool("x", false, "ignore unescaped whitespace and # comments")
		rtl        = fs.Bool("r", false, "match right to left")
		ecma       = fs.Bool("e", false, "ECMAScript behavior for \\w \\s \\d and \\b")
		invariant  = fs.Bool("invariant", false, "fold case without the current culture's rules")
		debug      = fs.Bool("debug", false, "dump the parse tree too")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: regexhints [flags] pattern...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	var opt regexhints.RegexOptions
	for _, f := range []struct {
		set bool
		opt regexhints.RegexOptions
	}{
		{*ignoreCase, regexhints.IgnoreCase},
		{*multiline, regexhints.Multiline},
		{*singleline, regexhints.Singleline},
		{*extended, regexhints.IgnorePatternWhitespace},
		{*rtl, regexhints.RightToLeft},
		{*ecma, regexhints.ECMAScript},
		{*invariant, regexhints.CultureInvariant},
	} {
		if f.set {
			opt |= f.opt
		}
	}

	status := 0
	for _, pattern := range fs.Args() {
		h, err := regexhints.Compute(pattern, opt)
		if err != nil {
			fmt.Fprintln(stderr, err)
			status = 1
			continue
		}
		if *debug {
			io.WriteString(stdout, h.DumpTree())
		}
		io.WriteString(stdout, h.Dump())
	}

	return status
}
