package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/types"
)

// Record is one row flowing through a plan tree: a UserRecord plus the
// Loader needed to resolve its attributes and parent chain on demand
// (spec.md §4.4 "records flow up the tree one at a time").
type Record struct {
	Row    *atom.UserRecord
	Loader atom.Loader
}

// NewRecord wraps row for plan execution.
func NewRecord(row *atom.UserRecord, loader atom.Loader) Record {
	return Record{Row: row, Loader: loader}
}

// Identity returns a value suitable as a map key for dedup: the record's
// durable Pointer once saved, falling back to its in-memory address so
// AndMerge/OrMerge can still dedup records created fresh within the same
// transaction (spec.md §4.4 "uses record identity ... not structural
// equality").
func (r Record) Identity() interface{} {
	if p := r.Row.Pointer(); !p.Zero() {
		return p
	}
	return r.Row
}

// Field resolves a dotted attribute path against the record, walking
// nested UserRecords for each path segment after the first. The alias
// prefix (e.g. "users.age") is stripped by the caller via aliasOf before
// Field is invoked; Field itself only sees the bare path ("age" or
// "address.city").
func (r Record) Field(path string) (atom.Atom, bool, error) {
	segments := strings.Split(path, ".")
	row := r.Row
	for i, seg := range segments {
		value, found, err := row.GetAttribute(seg, r.Loader)
		if err != nil || !found {
			return nil, false, err
		}
		if i == len(segments)-1 {
			return value, true, nil
		}
		nested, ok := value.(*atom.UserRecord)
		if !ok {
			return nil, false, nil
		}
		row = nested
	}
	return nil, false, nil
}

// FieldComparable resolves path and converts the result to a
// types.Comparable so Compare.Eval can test it against a term's values.
func (r Record) FieldComparable(path string) (types.Comparable, bool, error) {
	value, found, err := r.Field(path)
	if err != nil || !found {
		return nil, false, err
	}
	c, ok := AtomToComparable(value)
	return c, ok, nil
}

// aliasOf splits a required alias prefix off a dotted attribute path,
// e.g. "users.age" with alias "users" yields "age" (spec.md §4.4
// "Attributes are dotted paths with a required alias prefix matching the
// FromPlan").
func aliasOf(alias, path string) (string, bool) {
	prefix := alias + "."
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	return strings.TrimPrefix(path, prefix), true
}

// AtomToComparable converts a resolved attribute atom into the
// types.Comparable the query engine compares against bounds and literals.
// Literal is the only scalar atom kind in the storage layer, so its string
// content is reparsed as int, float, bool or falls back to a varchar
// (spec.md §3 "Literal" — the only content-addressed scalar; there is no
// dedicated numeric-literal atom kind).
func AtomToComparable(value atom.Atom) (types.Comparable, bool) {
	lit, ok := value.(*atom.Literal)
	if !ok {
		return nil, false
	}
	return ParseComparable(lit.Value), true
}

// ParseComparable infers the narrowest Comparable type a raw string
// represents: integer, then float, then bool, then RFC3339 timestamp,
// falling back to a plain VarcharKey.
func ParseComparable(s string) types.Comparable {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return types.IntKey(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return types.FloatKey(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return types.BoolKey(b)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return types.DateKey(t)
	}
	return types.VarcharKey(s)
}

// ComparableString renders a Comparable back to its canonical string form,
// the inverse of ParseComparable, used to build RepeatedKeysDictionary
// index keys.
func ComparableString(c types.Comparable) string {
	switch v := c.(type) {
	case types.IntKey:
		return strconv.FormatInt(int64(v), 10)
	case types.FloatKey:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case types.BoolKey:
		return strconv.FormatBool(bool(v))
	case types.DateKey:
		return time.Time(v).Format(time.RFC3339)
	case types.VarcharKey:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", c)
	}
}
