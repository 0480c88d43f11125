// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package query

import (
	"regexp"
	"strings"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// MaxIdentifierLength bounds label and relation-type names.
const MaxIdentifierLength = 128

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,128}$`)

// ValidIdentifier reports whether s may be interpolated as a label or
// relation type.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// CheckIdentifier returns query.identifier.invalid when s is unsafe.
func CheckIdentifier(s string) error {
	if ValidIdentifier(s) {
		return nil
	}
	return ontoerr.New(ontoerr.CodeQueryIdentifierInvalid,
		"identifier must match [A-Za-z0-9_] and be 1-128 characters",
		ontoerr.Field("identifier", s))
}

func checkAll(ids []string) error {
	for _, id := range ids {
		if err := CheckIdentifier(id); err != nil {
			return err
		}
	}
	return nil
}

// quote backtick-quotes a validated identifier.
func quote(id string) string {
	return "`" + id + "`"
}

// labelExpr renders ":`A`:`B`" for a validated label set.
func labelExpr(labels []string) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteByte(':')
		b.WriteString(quote(l))
	}
	return b.String()
}
