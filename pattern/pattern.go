// Package pattern provides the predicates an expecto engine waits for.
//
// A Pattern is tested against the whole accumulated output buffer, not
// anchored at its start. Find reports the first non-empty match; a pattern
// that can only match the empty string never matches, which guarantees that
// every fulfilled expectation consumes at least one byte of the buffer.
//
// Built-in constructors:
//
//   - [Regexp] / [Compile] / [FromRegexp]: regular expressions (RE2 syntax)
//   - [Literal]: exact substring
//   - [Fold]: case-insensitive substring
//   - [Func]: caller-supplied predicate
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Match is the result of a successful Find.
type Match struct {
	// Text is the matched substring.
	Text string

	// Index is the byte offset of Text within the searched buffer.
	Index int

	// Groups holds the capture groups in order (group 1 at index 0).
	// Groups that did not participate in the match are empty strings.
	Groups []string

	// Named maps named capture groups to their text.
	Named map[string]string

	// Buffer is the full buffer the match was found in. The engine sets it
	// to its buffer snapshot at match time.
	Buffer string
}

// Pattern is a predicate testable against a text buffer.
type Pattern interface {
	// Find reports the first non-empty match in buf.
	Find(buf string) (Match, bool)

	// String describes the pattern for logs and transcripts.
	String() string
}

type regexpPattern struct {
	re *regexp.Regexp

	// longest is re in leftmost-longest mode. It finds a non-empty match
	// at an offset where re prefers an empty alternative, as x*|ab does
	// at the start of "ab". Nil if re cannot be recompiled.
	longest *regexp.Regexp
}

func newRegexpPattern(re *regexp.Regexp) regexpPattern {
	p := regexpPattern{re: re}
	if longest, err := regexp.Compile(re.String()); err == nil {
		longest.Longest()
		p.longest = longest
	}
	return p
}

// Regexp returns a pattern for the regular expression expr.
// The expression is compiled once; an invalid expression causes a panic.
func Regexp(expr string) Pattern {
	return newRegexpPattern(regexp.MustCompile(expr))
}

// Compile is like Regexp but returns an error for an invalid expression.
func Compile(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern: compile %q: %w", expr, err)
	}
	return newRegexpPattern(re), nil
}

// FromRegexp wraps an already compiled regular expression.
func FromRegexp(re *regexp.Regexp) Pattern {
	return newRegexpPattern(re)
}

// Find returns the leftmost non-empty match. Where the preferred match at
// an offset is empty, the longest match at that offset is tried before
// moving on, so an empty alternative never hides a real one.
func (p regexpPattern) Find(buf string) (Match, bool) {
	if buf == "" {
		return Match{}, false
	}

	// Common case: the leftmost match is already non-empty.
	loc := p.re.FindStringSubmatchIndex(buf)
	if loc == nil {
		return Match{}, false
	}
	if loc[1] > loc[0] {
		return p.build(buf, loc), true
	}
	if p.longest == nil {
		return Match{}, false
	}

	// Leftmost-longest reports, for each offset that has any match in
	// order, the longest one there. The first non-empty one wins.
	for _, loc := range p.longest.FindAllStringSubmatchIndex(buf, -1) {
		if loc[1] > loc[0] {
			return p.build(buf, loc), true
		}
	}
	return Match{}, false
}

func (p regexpPattern) build(buf string, loc []int) Match {
	m := Match{
		Text:  buf[loc[0]:loc[1]],
		Index: loc[0],
	}

	names := p.re.SubexpNames()
	for g := 1; g*2+1 < len(loc); g++ {
		var text string
		if start, end := loc[g*2], loc[g*2+1]; start >= 0 {
			text = buf[start:end]
		}
		m.Groups = append(m.Groups, text)
		if g < len(names) && names[g] != "" {
			if m.Named == nil {
				m.Named = make(map[string]string)
			}
			m.Named[names[g]] = text
		}
	}
	return m
}

func (p regexpPattern) String() string {
	return "/" + p.re.String() + "/"
}

type literalPattern string

// Literal returns a pattern matching s exactly. An empty literal never matches.
func Literal(s string) Pattern {
	return literalPattern(s)
}

func (p literalPattern) Find(buf string) (Match, bool) {
	if p == "" {
		return Match{}, false
	}
	i := strings.Index(buf, string(p))
	if i < 0 {
		return Match{}, false
	}
	return Match{Text: string(p), Index: i}, true
}

func (p literalPattern) String() string {
	return fmt.Sprintf("%q", string(p))
}

type foldPattern struct {
	s  string
	re *regexp.Regexp
}

// Fold returns a case-insensitive substring pattern. The matched text keeps
// the case found in the buffer.
func Fold(s string) Pattern {
	return foldPattern{s: s, re: regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))}
}

func (p foldPattern) Find(buf string) (Match, bool) {
	if p.s == "" {
		return Match{}, false
	}
	loc := p.re.FindStringIndex(buf)
	if loc == nil {
		return Match{}, false
	}
	return Match{Text: buf[loc[0]:loc[1]], Index: loc[0]}, true
}

func (p foldPattern) String() string {
	return fmt.Sprintf("%q/i", p.s)
}

type funcPattern struct {
	desc string
	find func(string) (Match, bool)
}

// Func adapts an arbitrary predicate. desc is used by String.
func Func(desc string, find func(buf string) (Match, bool)) Pattern {
	return funcPattern{desc: desc, find: find}
}

func (p funcPattern) Find(buf string) (Match, bool) {
	m, ok := p.find(buf)
	if !ok || m.Text == "" {
		return Match{}, false
	}
	return m, true
}

func (p funcPattern) String() string {
	return p.desc
}
