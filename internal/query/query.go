// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query compiles keyword groups into arXiv boolean query strings.
//
// Input keys have the shape "k-<group>-<field>" where field is 0 (all
// fields), 1 (title), 2 (author), or 3 (abstract). Each group becomes one
// query: the non-empty fields as field-scoped clauses joined with AND.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// fieldPrefixes maps field index to the arXiv field qualifier.
var fieldPrefixes = [4]string{"all", "ti", "au", "abs"}

// FieldsPerGroup is the number of keyword fields in one group.
const FieldsPerGroup = len(fieldPrefixes)

// ErrMalformed reports a keyword mapping that does not hold complete groups.
// It is a caller contract violation and should be treated as fatal.
var ErrMalformed = errors.New("malformed keyword mapping")

// Key returns the mapping key for a group and field index.
func Key(group, field int) string {
	return fmt.Sprintf("k-%d-%d", group, field)
}

// Compile builds one query per group in group-index order. A group whose
// fields are all empty yields "".
func Compile(keywords map[string]string) ([]string, error) {
	if len(keywords)%FieldsPerGroup != 0 {
		return nil, fmt.Errorf("%w: %d keys is not a multiple of %d", ErrMalformed, len(keywords), FieldsPerGroup)
	}

	groups := len(keywords) / FieldsPerGroup
	queries := make([]string, 0, groups)
	for g := 0; g < groups; g++ {
		var clauses []string
		for f, prefix := range fieldPrefixes {
			kw, ok := keywords[Key(g, f)]
			if !ok {
				return nil, fmt.Errorf("%w: missing key %q", ErrMalformed, Key(g, f))
			}
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s:%q", prefix, kw))
		}
		queries = append(queries, strings.Join(clauses, " AND "))
	}
	return queries, nil
}

// NonEmpty drops empty queries, preserving order.
func NonEmpty(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			out = append(out, q)
		}
	}
	return out
}
