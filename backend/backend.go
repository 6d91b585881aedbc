// Package backend declares the capability a caller-supplied SNOMED CT data
// store must expose to the evaluator and closure cache: the SNOMED CT source
// itself is an external collaborator, never re-specified here. Five
// operations are mandatory; the rest are optional (needed only for
// refinements and filters) and default to empty results when a minimal
// backend does not implement them - see Defaults.
package backend

import (
	"context"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/identifier"
)

// Relationship is one outgoing or inbound non-IS-A relationship row:
// attribute type, destination (or source, for inbound lookups) and the
// relationship group (0 means ungrouped).
type Relationship struct {
	AttributeTypeID identifier.ConceptID
	DestinationID   identifier.ConceptID
	Group           uint16
}

// ConcreteRelationship is a concrete-value attribute row.
type ConcreteRelationship struct {
	AttributeTypeID identifier.ConceptID
	Value           ast.ConcreteValue
	Group           uint16
}

// Description is one term carried by a concept.
type Description struct {
	ID                 identifier.ConceptID
	ConceptID          identifier.ConceptID
	Term               string
	Language           string
	TypeID             identifier.ConceptID
	CaseSignificanceID identifier.ConceptID
	Active             bool
	EffectiveTime      uint32 // YYYYMMDD, 0 if unknown
	ModuleID           identifier.ConceptID
}

// Acceptability distinguishes a description's role within one language
// reference set.
type Acceptability int

const (
	AcceptableIn Acceptability = iota
	PreferredIn
)

// LanguageMembership is one row of get_description_language_refsets: the
// description belongs to RefsetID with the given Acceptability.
type LanguageMembership struct {
	RefsetID      identifier.ConceptID
	Acceptability Acceptability
}

// HistoryAssociationType distinguishes the historical-association kinds
// consulted by the +HISTORY filter family.
type HistoryAssociationType int

const (
	SameAs HistoryAssociationType = iota
	ReplacedBy
	PossiblyEquivalentTo
	OtherHistoryAssociation // any association type outside the three above; contributes only to the MAX profile
)

// ConceptIDResult is one element of the lazy stream returned by
// AllConceptIDs. Err is non-nil only on the final element, if iteration
// failed before the stream was exhausted.
type ConceptIDResult struct {
	ID  identifier.ConceptID
	Err error
}

// Backend is the full capability surface: five mandatory operations the
// evaluator cannot run without, plus roughly a dozen optional ones needed
// only for attribute refinements, descriptions and filters. Embed Defaults
// in a concrete implementation to satisfy the optional methods with safe,
// empty-result behavior and implement only the methods actually supported.
//
// All methods must be safe for concurrent calls from multiple goroutines;
// implementations must not mutate shared state without their own
// synchronization.
type Backend interface {
	// GetChildren returns id's direct IS-A children.
	GetChildren(ctx context.Context, id identifier.ConceptID) ([]identifier.ConceptID, error)
	// GetParents returns id's direct IS-A parents (polyhierarchy permitted).
	GetParents(ctx context.Context, id identifier.ConceptID) ([]identifier.ConceptID, error)
	// HasConcept reports whether id names a known concept.
	HasConcept(ctx context.Context, id identifier.ConceptID) (bool, error)
	// AllConceptIDs returns a lazy, unrestartable stream of every known
	// concept identifier. The channel is closed when the stream ends.
	AllConceptIDs(ctx context.Context) (<-chan ConceptIDResult, error)
	// GetRefsetMembers returns the concept members of refsetID.
	GetRefsetMembers(ctx context.Context, refsetID identifier.ConceptID) ([]identifier.ConceptID, error)

	// GetAttributes returns id's outgoing non-IS-A relationships.
	GetAttributes(ctx context.Context, id identifier.ConceptID) ([]Relationship, error)
	// GetInboundRelationships returns relationships where id is the
	// destination, for the refinement `R` flag.
	GetInboundRelationships(ctx context.Context, id identifier.ConceptID) ([]Relationship, error)
	// GetConcreteValues returns id's concrete-value attributes.
	GetConcreteValues(ctx context.Context, id identifier.ConceptID) ([]ConcreteRelationship, error)
	// GetDescriptions returns id's descriptions.
	GetDescriptions(ctx context.Context, id identifier.ConceptID) ([]Description, error)
	// GetDescriptionLanguageRefsets returns the language refset membership
	// rows for one description.
	GetDescriptionLanguageRefsets(ctx context.Context, descriptionID identifier.ConceptID) ([]LanguageMembership, error)
	// IsConceptActive reports id's active flag.
	IsConceptActive(ctx context.Context, id identifier.ConceptID) (bool, error)
	// IsConceptPrimitive reports id's primitive/defined status; known is
	// false if the backend cannot answer.
	IsConceptPrimitive(ctx context.Context, id identifier.ConceptID) (primitive bool, known bool, err error)
	// GetConceptModule returns id's owning module; ok is false if unknown.
	GetConceptModule(ctx context.Context, id identifier.ConceptID) (moduleID identifier.ConceptID, ok bool, err error)
	// GetConceptEffectiveTime returns id's effective time as YYYYMMDD; ok is
	// false if unknown.
	GetConceptEffectiveTime(ctx context.Context, id identifier.ConceptID) (effectiveTime uint32, ok bool, err error)
	// GetSemanticTag returns id's semantic tag. Defaults reports none, and the
	// SemanticTag filter then parses the tag from the FSN description when
	// one is available.
	GetSemanticTag(ctx context.Context, id identifier.ConceptID) (tag string, ok bool, err error)
	// GetHistoricalAssociations returns the concepts id is historically
	// associated with via kind.
	GetHistoricalAssociations(ctx context.Context, id identifier.ConceptID, kind HistoryAssociationType) ([]identifier.ConceptID, error)
	// ResolveAlternateIdentifier resolves a URI-form alt-identifier to a
	// ConceptID; the default handles the two well-known SNOMED URI forms.
	ResolveAlternateIdentifier(ctx context.Context, scheme, id string) (identifier.ConceptID, bool, error)
}
