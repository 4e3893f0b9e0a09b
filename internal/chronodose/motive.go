package chronodose

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/pkg/doctolib"
)

// MotivePredicate selects visit motives by their display name.
type MotivePredicate func(name string) bool

// FirstDosePfizer matches first-dose Pfizer motive labels. The literal "19"
// is removed first so that "COVID-19" does not satisfy the digit test; any
// other "1", including one left over from the removal, still counts.
func FirstDosePfizer(name string) bool {
	return firstDose(name, "pfizer")
}

// FirstDose is FirstDosePfizer for another vaccine keyword.
func FirstDose(vaccine string) MotivePredicate {
	v := strings.ToLower(vaccine)
	return func(name string) bool {
		return firstDose(name, v)
	}
}

func firstDose(name, vaccine string) bool {
	n := strings.ToLower(strings.ReplaceAll(name, "19", ""))
	return strings.Contains(n, "1") && strings.Contains(n, vaccine)
}

// Resolve finds the agenda, practice and motive ids of meta that serve the
// motives selected by pred at the practice practiceIDHint. An empty set is a
// valid outcome meaning the center offers no matching appointment type.
func Resolve(meta *doctolib.Booking, practiceIDHint string, pred MotivePredicate) (IdentifierSet, error) {
	if meta == nil {
		return IdentifierSet{}, eris.Wrap(ErrMalformedMetadata, "resolve: nil document")
	}
	data := meta.Data
	if data.VisitMotives == nil {
		return IdentifierSet{}, eris.Wrap(ErrMalformedMetadata, "resolve: missing visit_motives")
	}
	if data.Agendas == nil {
		return IdentifierSet{}, eris.Wrap(ErrMalformedMetadata, "resolve: missing agendas")
	}

	matched := make(map[int64]struct{})
	for i, m := range data.VisitMotives {
		if m.ID == nil || m.Name == nil {
			return IdentifierSet{}, eris.Wrapf(ErrMalformedMetadata, "resolve: visit_motives[%d] lacks id or name", i)
		}
		if pred(*m.Name) {
			matched[*m.ID] = struct{}{}
			zap.L().Debug("chronodose: motive matched", zap.Int64("motive_id", *m.ID), zap.String("name", *m.Name))
		}
	}

	agendas := make(map[int64]struct{})
	practices := make(map[string]struct{})
	motives := make(map[int64]struct{})

	for i, a := range data.Agendas {
		if a.ID == nil || a.VisitMotiveIDsByPracticeID == nil {
			return IdentifierSet{}, eris.Wrapf(ErrMalformedMetadata, "resolve: agendas[%d] lacks id or visit_motive_ids_by_practice_id", i)
		}

		served, ok := a.VisitMotiveIDsByPracticeID[practiceIDHint]
		if !ok {
			continue
		}

		var kept []int64
		for _, id := range served {
			if _, ok := matched[id]; ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			continue
		}

		agendas[*a.ID] = struct{}{}
		practices[practiceIDHint] = struct{}{}
		for _, id := range kept {
			motives[id] = struct{}{}
		}
	}

	return IdentifierSet{
		AgendaIDs:      sortedKeys(agendas),
		PracticeIDs:    sortedKeys(practices),
		VisitMotiveIDs: sortedKeys(motives),
	}, nil
}
