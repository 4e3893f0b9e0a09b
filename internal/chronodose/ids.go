package chronodose

import (
	"slices"
	"strconv"
	"strings"
)

// IdentifierSet is the resolved (agenda, practice, motive) triple used by the
// availability and appointment endpoints. Each set is deduplicated and sorted.
type IdentifierSet struct {
	AgendaIDs      []int64
	PracticeIDs    []string
	VisitMotiveIDs []int64
}

// Empty reports whether any of the three sets is empty, in which case the
// center has no eligible slot type.
func (s IdentifierSet) Empty() bool {
	return len(s.AgendaIDs) == 0 || len(s.PracticeIDs) == 0 || len(s.VisitMotiveIDs) == 0
}

// AgendaParam is the dash-joined agenda id list.
func (s IdentifierSet) AgendaParam() string {
	return joinInts(s.AgendaIDs)
}

// PracticeParam is the dash-joined practice id list.
func (s IdentifierSet) PracticeParam() string {
	return strings.Join(s.PracticeIDs, "-")
}

// VisitMotiveParam is the dash-joined motive id list.
func (s IdentifierSet) VisitMotiveParam() string {
	return joinInts(s.VisitMotiveIDs)
}

func joinInts(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, "-")
}

// sortedKeys returns the keys of a set in ascending order.
func sortedKeys[T int64 | string](set map[T]struct{}) []T {
	out := make([]T, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
