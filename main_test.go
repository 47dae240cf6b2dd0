package main

import (
	"errors"
	"flag"
	"io"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want cliOptions
	}{
		{
			name: "defaults",
			args: []string{"plumbers edison nj"},
			want: cliOptions{query: "plumbers edison nj", max: 20, minScore: 5},
		},
		{
			name: "flags before query",
			args: []string{"--max", "40", "--min-score=3", "dentists newark"},
			want: cliOptions{query: "dentists newark", max: 40, minScore: 3},
		},
		{
			name: "flags after query",
			args: []string{"dentists newark", "--all", "--max", "5"},
			want: cliOptions{query: "dentists newark", max: 5, minScore: 5, all: true},
		},
		{
			name: "unquoted words are joined",
			args: []string{"roofers", "--all", "trenton", "nj"},
			want: cliOptions{query: "roofers trenton nj", max: 20, minScore: 5, all: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args, io.Discard)
			if err != nil {
				t.Fatalf("parseArgs(%v): %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("parseArgs(%v) = %+v; want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing query", []string{"--max", "10"}},
		{"blank query", []string{"   "}},
		{"zero max", []string{"--max", "0", "plumbers"}},
		{"bad number", []string{"--min-score", "high", "plumbers"}},
		{"unknown flag", []string{"--pages", "3", "plumbers"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args, io.Discard); err == nil {
				t.Errorf("parseArgs(%v) should fail", tt.args)
			}
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	_, err := parseArgs([]string{"-h"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("got %v; want flag.ErrHelp", err)
	}
}
