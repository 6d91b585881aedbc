// Package langmatch resolves SNOMED CT language reference set preference for
// the Dialect, PreferredIn and AcceptableIn filters, which test language
// refset membership only. PreferredDescription generalizes the teacher's
// Svc.languageMatch cascade (terminology/language.go,
// terminology/service.go) - refset-based match first, falling back to a
// plain language-code match - from a hard-coded concept/Svc pairing into a
// function of the backend.Backend capability the evaluator already holds.
package langmatch

import (
	"context"

	"golang.org/x/text/language"

	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/identifier"
)

// Alias maps a handful of well-known dialect aliases to both their SNOMED CT
// language reference set identifier and the BCP-47 tag used to negotiate
// between several installed refsets, mirroring terminology/language.go's
// Language enum.
type Alias struct {
	RefsetID identifier.ConceptID
	Tag      language.Tag
}

// WellKnown is a fixed alias table for the `dialect = en-gb` surface form.
// The parser does not read it; convert_filter.go keeps its own
// wellKnownDialectAlias table.
var WellKnown = map[string]Alias{
	"en-gb": {RefsetID: 999001261000000100, Tag: language.BritishEnglish},
	"en-us": {RefsetID: 900000000000508004, Tag: language.AmericanEnglish},
}

// PreferredIn reports whether any of id's descriptions is Preferred within
// one of refsetIDs, per the PreferredIn filter's semantics.
func PreferredIn(ctx context.Context, b backend.Backend, id identifier.ConceptID, refsetIDs []identifier.ConceptID) (bool, error) {
	return descriptionAcceptabilityIn(ctx, b, id, refsetIDs, backend.PreferredIn)
}

// AcceptableIn reports whether any of id's descriptions is Acceptable within
// one of refsetIDs.
func AcceptableIn(ctx context.Context, b backend.Backend, id identifier.ConceptID, refsetIDs []identifier.ConceptID) (bool, error) {
	return descriptionAcceptabilityIn(ctx, b, id, refsetIDs, backend.AcceptableIn)
}

// InLanguageRefSet reports whether any of id's descriptions belongs to one of
// refsetIDs, regardless of acceptability - the LanguageRefSet filter.
func InLanguageRefSet(ctx context.Context, b backend.Backend, id identifier.ConceptID, refsetIDs []identifier.ConceptID) (bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return false, err
	}
	want := toSet(refsetIDs)
	for _, d := range descs {
		memberships, err := b.GetDescriptionLanguageRefsets(ctx, d.ID)
		if err != nil {
			return false, err
		}
		for _, m := range memberships {
			if want[m.RefsetID] {
				return true, nil
			}
		}
	}
	return false, nil
}

// InDialect reports whether any of id's descriptions belongs to one of
// refsetIDs with the given acceptability; wantPreferred and wantAcceptable
// both false means either acceptability qualifies (the Dialect filter with
// no preferred/acceptable modifier).
func InDialect(ctx context.Context, b backend.Backend, id identifier.ConceptID, refsetIDs []identifier.ConceptID, wantPreferred, wantAcceptable bool) (bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return false, err
	}
	want := toSet(refsetIDs)
	for _, d := range descs {
		memberships, err := b.GetDescriptionLanguageRefsets(ctx, d.ID)
		if err != nil {
			return false, err
		}
		for _, m := range memberships {
			if !want[m.RefsetID] {
				continue
			}
			if !wantPreferred && !wantAcceptable {
				return true, nil
			}
			if wantPreferred && m.Acceptability == backend.PreferredIn {
				return true, nil
			}
			if wantAcceptable && m.Acceptability == backend.AcceptableIn {
				return true, nil
			}
		}
	}
	return false, nil
}

func descriptionAcceptabilityIn(ctx context.Context, b backend.Backend, id identifier.ConceptID, refsetIDs []identifier.ConceptID, want backend.Acceptability) (bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return false, err
	}
	wantRefsets := toSet(refsetIDs)
	for _, d := range descs {
		memberships, err := b.GetDescriptionLanguageRefsets(ctx, d.ID)
		if err != nil {
			return false, err
		}
		for _, m := range memberships {
			if wantRefsets[m.RefsetID] && m.Acceptability == want {
				return true, nil
			}
		}
	}
	return false, nil
}

func toSet(ids []identifier.ConceptID) map[identifier.ConceptID]bool {
	out := make(map[identifier.ConceptID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// PreferredDescription picks the best description of the given type for the
// requested language preferences, trying refset-based matching first and
// falling back to a plain BCP-47 match over each candidate description's own
// language code - the two-stage languageMatch/simpleLanguageMatch cascade
// from terminology/service.go, generalized to backend.Description and to an
// arbitrary set of installed refsets rather than a fixed Language enum.
func PreferredDescription(ctx context.Context, b backend.Backend, id identifier.ConceptID, typeID identifier.ConceptID, preferred []language.Tag) (backend.Description, bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return backend.Description{}, false, err
	}
	var candidates []backend.Description
	for _, d := range descs {
		if d.TypeID == typeID {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return backend.Description{}, false, nil
	}
	if d, ok, err := refsetPreferred(ctx, b, candidates, preferred); err != nil {
		return backend.Description{}, false, err
	} else if ok {
		return d, true, nil
	}
	return simpleMatch(candidates, preferred), true, nil
}

// refsetPreferred attempts terminology/service.go's refsetLanguageMatch: pick
// the installed dialect alias that best matches the caller's preference, then
// require the candidate description to be Preferred within that alias's
// refset.
func refsetPreferred(ctx context.Context, b backend.Backend, candidates []backend.Description, preferred []language.Tag) (backend.Description, bool, error) {
	if len(WellKnown) == 0 {
		return backend.Description{}, false, nil
	}
	tags := make([]language.Tag, 0, len(WellKnown))
	byTag := make(map[language.Tag]Alias, len(WellKnown))
	for _, a := range WellKnown {
		tags = append(tags, a.Tag)
		byTag[a.Tag] = a
	}
	matcher := language.NewMatcher(tags)
	_, idx, _ := matcher.Match(preferred...)
	best := byTag[tags[idx]]
	for _, d := range candidates {
		memberships, err := b.GetDescriptionLanguageRefsets(ctx, d.ID)
		if err != nil {
			return backend.Description{}, false, err
		}
		for _, m := range memberships {
			if m.RefsetID == best.RefsetID && m.Acceptability == backend.PreferredIn {
				return d, true, nil
			}
		}
	}
	return backend.Description{}, false, nil
}

// simpleMatch negotiates purely on each candidate's own Language code,
// deterministic tie-breaking by sorting on that code first as
// simpleLanguageMatch does.
func simpleMatch(candidates []backend.Description, preferred []language.Tag) backend.Description {
	sorted := append([]backend.Description(nil), candidates...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Language < sorted[j-1].Language; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	tags := make([]language.Tag, len(sorted))
	for i, d := range sorted {
		tags[i] = language.Make(d.Language)
	}
	matcher := language.NewMatcher(tags)
	_, idx, _ := matcher.Match(preferred...)
	return sorted[idx]
}
