package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		status int
		stdout []string
		stderr string
	}{
		{
			name:   "ignore case",
			args:   []string{"-i", "abc"},
			stdout: []string{"Prefix: `abc` (ignore case)", "FindMode: LeadingString_OrdinalIgnoreCase_LeftToRight"},
		},
		{
			name:   "several patterns",
			args:   []string{"^x", "[ab]+"},
			stdout: []string{"Anchors: Beginning", "FirstChars: [ab]"},
		},
		{
			name:   "right to left",
			args:   []string{"-r", "xyz"},
			stdout: []string{"FirstChars: [z]"},
		},
		{
			name:   "debug",
			args:   []string{"-debug", "ab|c"},
			stdout: []string{"Capture(index = 0, unindex = -1)\n Alternate\n  Multi(String = ab)\n", "FirstChars: [ac]"},
		},
		{
			name:   "bad pattern",
			args:   []string{"("},
			status: 1,
			stderr: "not enough )'s",
		},
		{
			name:   "bad pattern keeps going",
			args:   []string{"(", "q"},
			status: 1,
			stdout: []string{"Pattern: `q`"},
			stderr: "not enough )'s",
		},
		{
			name:   "no args",
			status: 2,
			stderr: "usage: regexhints",
		},
		{
			name:   "unknown flag",
			args:   []string{"-nope", "a"},
			status: 2,
			stderr: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
			require.Equal(t, tt.status, run(tt.args, stdout, stderr), stderr.String())

			for _, want := range tt.stdout {
				require.Contains(t, stdout.String(), want)
			}
			if tt.stderr != "" {
				require.Contains(t, stderr.String(), tt.stderr)
			} else {
				require.Empty(t, stderr.String())
			}
		})
	}
}
