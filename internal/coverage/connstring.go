package coverage

import (
	"fmt"
	"strconv"
	"strings"
)

// Scheme is the prefix of the connection strings
const Scheme = "RASTERLITE2"

// ConnString addresses a store, a coverage of the store or a section of a coverage:
//
//	RASTERLITE2:<file>[:<coverage>[:<section-id>:<section-name>]]
//
// Tokens containing ':' or '"' are double-quoted, '"' being escaped as '""'.
type ConnString struct {
	File     string
	Coverage string
	// SectionID is -1 if no section is selected
	SectionID   int64
	SectionName string
}

// ParseConnString parses a connection string
func ParseConnString(s string) (ConnString, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return ConnString{}, err
	}
	if len(tokens) < 2 || !strings.EqualFold(tokens[0], Scheme) {
		return ConnString{}, NewValidationError("invalid connection string %q: expecting %s:<file>[:<coverage>]", s, Scheme)
	}
	cs := ConnString{File: tokens[1], SectionID: -1}
	if len(tokens) >= 3 {
		cs.Coverage = tokens[2]
	}
	if len(tokens) >= 4 {
		if cs.SectionID, err = strconv.ParseInt(tokens[3], 10, 64); err != nil || cs.SectionID < 0 {
			return ConnString{}, NewValidationError("invalid section id %q in connection string", tokens[3])
		}
	}
	if len(tokens) >= 5 {
		cs.SectionName = tokens[4]
	}
	if len(tokens) > 5 {
		return ConnString{}, NewValidationError("invalid connection string %q: too many tokens", s)
	}
	return cs, nil
}

// String formats the connection string, quoting the tokens if needed
func (cs ConnString) String() string {
	s := Scheme + ":" + QuoteIfNeeded(cs.File)
	if cs.Coverage == "" {
		return s
	}
	s += ":" + QuoteIfNeeded(cs.Coverage)
	if cs.SectionID >= 0 {
		s += fmt.Sprintf(":%d:%s", cs.SectionID, QuoteIfNeeded(cs.SectionName))
	}
	return s
}

// QuoteIfNeeded double-quotes the token if it contains a separator or a quote
func QuoteIfNeeded(token string) string {
	if !strings.ContainsAny(token, `:"`) {
		return token
	}
	return `"` + strings.ReplaceAll(token, `"`, `""`) + `"`
}

func tokenize(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	quoted := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quoted && c == '"':
			if i+1 < len(s) && s[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				quoted = false
			}
		case quoted:
			cur.WriteByte(c)
		case c == '"':
			quoted = true
		case c == ':':
			tokens = append(tokens, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, NewValidationError("invalid connection string %q: unterminated quote", s)
	}
	return append(tokens, cur.String()), nil
}
