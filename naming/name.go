// Package naming builds and checks the hierarchical names given to controllers
// and channels, such as "Ruby.L1Cache[3].RequestToL2".
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// A Name is a dot-separated series of tokens.
type Name struct {
	Tokens []Token
}

// Token is one element of a name, with optional bracketed indices.
type Token struct {
	Elem  string
	Index []int
}

// String rebuilds the textual form of the name.
func (n Name) String() string {
	parts := make([]string, len(n.Tokens))
	for i, t := range n.Tokens {
		parts[i] = t.String()
	}

	return strings.Join(parts, ".")
}

func (t Token) String() string {
	s := t.Elem
	for _, i := range t.Index {
		s += "[" + strconv.Itoa(i) + "]"
	}

	return s
}

// Parse splits a name into tokens. It fails on unmatched brackets or
// non-integer indices.
func Parse(s string) (Name, error) {
	rawTokens := strings.Split(s, ".")
	name := Name{Tokens: make([]Token, len(rawTokens))}

	for i, raw := range rawTokens {
		t, err := parseToken(raw)
		if err != nil {
			return Name{}, fmt.Errorf("name %q: %w", s, err)
		}

		name.Tokens[i] = t
	}

	return name, nil
}

func parseToken(raw string) (Token, error) {
	if err := bracketsMustMatch(raw); err != nil {
		return Token{}, err
	}

	parts := strings.Split(raw, "[")
	t := Token{Elem: parts[0], Index: make([]int, 0, len(parts)-1)}

	for _, p := range parts[1:] {
		if !strings.HasSuffix(p, "]") {
			return Token{}, fmt.Errorf("malformed index in %q", raw)
		}

		index, err := strconv.Atoi(p[:len(p)-1])
		if err != nil {
			return Token{}, fmt.Errorf("index must be integer in %q", raw)
		}

		t.Index = append(t.Index, index)
	}

	return t, nil
}

func bracketsMustMatch(raw string) error {
	open := 0

	for _, c := range raw {
		switch c {
		case '[':
			open++
		case ']':
			open--
			if open < 0 {
				return fmt.Errorf("brackets must match in %q", raw)
			}
		}
	}

	if open != 0 {
		return fmt.Errorf("brackets must match in %q", raw)
	}

	return nil
}

// Validate checks the naming convention:
//  1. tokens are separated by single dots, none empty;
//  2. every element starts with a capital letter;
//  3. elements contain no '_', '-', or quote characters;
//  4. series elements use bracket indices.
func Validate(s string) error {
	n, err := Parse(s)
	if err != nil {
		return err
	}

	for _, t := range n.Tokens {
		if err := tokenMustBeValid(t); err != nil {
			return fmt.Errorf("name %q: %w", s, err)
		}
	}

	return nil
}

func tokenMustBeValid(t Token) error {
	if t.Elem == "" {
		return fmt.Errorf("element must not be empty")
	}

	if strings.ContainsAny(t.Elem, "_-\"'") {
		return fmt.Errorf("element %q contains an invalid character", t.Elem)
	}

	if t.Elem[0] < 'A' || t.Elem[0] > 'Z' {
		return fmt.Errorf("element %q must start with a capital letter", t.Elem)
	}

	return nil
}

// MustBeValid panics if the name does not follow the naming convention. Only
// names produced by this module's own builders go through it.
func MustBeValid(s string) {
	if err := Validate(s); err != nil {
		panic(err)
	}
}

// Build joins a parent name and an element name.
func Build(parent, elem string) string {
	if parent == "" {
		return elem
	}

	return parent + "." + elem
}

// BuildWithIndex joins a parent name and an indexed element, e.g.
// BuildWithIndex("Ruby", "L2Cache", 3) is "Ruby.L2Cache[3]".
func BuildWithIndex(parent, elem string, index int) string {
	return Build(parent, elem+"["+strconv.Itoa(index)+"]")
}

// IndexOf returns the first index of the last token of a name, or -1 when the
// last token is not indexed.
func IndexOf(s string) int {
	n, err := Parse(s)
	if err != nil || len(n.Tokens) == 0 {
		return -1
	}

	last := n.Tokens[len(n.Tokens)-1]
	if len(last.Index) == 0 {
		return -1
	}

	return last.Index[0]
}
