package recordstore

import (
	"fmt"
	"strings"
)

// EscapeFormulaString quotes a value for use inside a filter formula.
// Single quotes are the only character the formula grammar treats specially
// inside a quoted literal.
func EscapeFormulaString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "\\'") + "'"
}

// FieldEquals builds a {Field}='value' comparison.
func FieldEquals(field, value string) string {
	return fmt.Sprintf("{%s}=%s", field, EscapeFormulaString(value))
}

// LinkMatches builds a clause matching a linked-record field by record ID.
// Inside a formula a link field renders as the linked record's primary
// field value, never its ID, so {Link}='rec...' can never match; each
// referencing table instead carries a lookup column surfacing RECORD_ID()
// of the link, and the clause searches that column. Record IDs are
// fixed-length, so FIND over the joined lookup cannot match a partial ID.
func LinkMatches(idLookupField, recordID string) string {
	return fmt.Sprintf("FIND(%s,ARRAYJOIN({%s}))", EscapeFormulaString(recordID), idLookupField)
}

// Or combines clauses with OR(), dropping empties. A single clause is
// returned bare.
func Or(clauses ...string) string {
	kept := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	default:
		return "OR(" + strings.Join(kept, ",") + ")"
	}
}

// And combines clauses with AND(), dropping empties.
func And(clauses ...string) string {
	kept := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	default:
		return "AND(" + strings.Join(kept, ",") + ")"
	}
}
