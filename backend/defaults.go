package backend

import (
	"context"
	"strings"

	"github.com/wardle/ecl/identifier"
)

// Defaults implements every optional Backend method with the safe default
// the specification names for it: an empty sequence, false or an unknown
// result. Embed Defaults in a concrete backend and override only the
// optional methods that backend actually supports; a backend that embeds
// Defaults and implements just the five mandatory methods still satisfies
// Backend.
type Defaults struct{}

func (Defaults) GetAttributes(ctx context.Context, id identifier.ConceptID) ([]Relationship, error) {
	return nil, nil
}

func (Defaults) GetInboundRelationships(ctx context.Context, id identifier.ConceptID) ([]Relationship, error) {
	return nil, nil
}

func (Defaults) GetConcreteValues(ctx context.Context, id identifier.ConceptID) ([]ConcreteRelationship, error) {
	return nil, nil
}

func (Defaults) GetDescriptions(ctx context.Context, id identifier.ConceptID) ([]Description, error) {
	return nil, nil
}

func (Defaults) GetDescriptionLanguageRefsets(ctx context.Context, descriptionID identifier.ConceptID) ([]LanguageMembership, error) {
	return nil, nil
}

func (Defaults) IsConceptActive(ctx context.Context, id identifier.ConceptID) (bool, error) {
	return false, nil
}

func (Defaults) IsConceptPrimitive(ctx context.Context, id identifier.ConceptID) (bool, bool, error) {
	return false, false, nil
}

func (Defaults) GetConceptModule(ctx context.Context, id identifier.ConceptID) (identifier.ConceptID, bool, error) {
	return 0, false, nil
}

func (Defaults) GetConceptEffectiveTime(ctx context.Context, id identifier.ConceptID) (uint32, bool, error) {
	return 0, false, nil
}

func (Defaults) GetSemanticTag(ctx context.Context, id identifier.ConceptID) (string, bool, error) {
	return "", false, nil
}

func (Defaults) GetHistoricalAssociations(ctx context.Context, id identifier.ConceptID, kind HistoryAssociationType) ([]identifier.ConceptID, error) {
	return nil, nil
}

// ResolveAlternateIdentifier recognizes the two well-known SNOMED URI forms
// named in the specification; anything else is reported unresolved rather
// than erroring, so a minimal backend need not implement alt-identifier
// support at all.
func (Defaults) ResolveAlternateIdentifier(ctx context.Context, scheme, id string) (identifier.ConceptID, bool, error) {
	return ResolveWellKnownAlternateIdentifier(scheme, id)
}

const (
	snomedURIIDPrefix  = "http://snomed.info/id/"
	snomedURISCTPrefix = "http://snomed.info/sct#"
)

// ResolveWellKnownAlternateIdentifier implements the default alt-identifier
// resolution behavior: recognize http://snomed.info/id/<digits> and
// http://snomed.info/sct#<digits>, taking the trailing digits as the
// concept identifier. scheme and id are as split by the parser at the `#`
// or final `/`; callers that already have the whole URI may pass it as
// scheme with id empty.
func ResolveWellKnownAlternateIdentifier(scheme, id string) (identifier.ConceptID, bool, error) {
	whole := scheme
	if id != "" {
		whole = scheme + id
	}
	var digits string
	switch {
	case strings.HasPrefix(whole, snomedURIIDPrefix):
		digits = strings.TrimPrefix(whole, snomedURIIDPrefix)
	case strings.HasPrefix(whole, snomedURISCTPrefix):
		digits = strings.TrimPrefix(whole, snomedURISCTPrefix)
	default:
		return 0, false, nil
	}
	parsed, err := identifier.Parse(digits)
	if err != nil {
		return 0, false, nil
	}
	return parsed, true, nil
}

// ParseSemanticTag extracts the trailing parenthesized semantic tag from a
// Fully Specified Name, e.g. "Diabetes mellitus (disorder)" -> "disorder".
// It is the fallback behavior for GetSemanticTag when a backend does not
// maintain a dedicated semantic-tag index.
func ParseSemanticTag(fsnTerm string) (string, bool) {
	term := strings.TrimSpace(fsnTerm)
	if !strings.HasSuffix(term, ")") {
		return "", false
	}
	open := strings.LastIndex(term, "(")
	if open < 0 || open == len(term)-1 {
		return "", false
	}
	return term[open+1 : len(term)-1], true
}
