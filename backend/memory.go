package backend

import (
	"context"
	"sort"
	"sync"

	"github.com/wardle/ecl/identifier"
)

// Memory is a naive in-memory Backend implementation, modelled after the
// map-backed caches the rest of this codebase favors for development and
// tests. It is a reference implementation of the capability, not a
// production store: every query walks plain Go maps under one mutex.
type Memory struct {
	Defaults

	mu            sync.RWMutex
	parents       map[identifier.ConceptID][]identifier.ConceptID
	children      map[identifier.ConceptID][]identifier.ConceptID
	attributes    map[identifier.ConceptID][]Relationship
	inbound       map[identifier.ConceptID][]Relationship
	concrete      map[identifier.ConceptID][]ConcreteRelationship
	descriptions  map[identifier.ConceptID][]Description
	refsets       map[identifier.ConceptID][]identifier.ConceptID
	active        map[identifier.ConceptID]bool
	module        map[identifier.ConceptID]identifier.ConceptID
	effectiveTime map[identifier.ConceptID]uint32
	associations  map[identifier.ConceptID]map[HistoryAssociationType][]identifier.ConceptID
}

// NewMemory returns an empty, usable Memory backend.
func NewMemory() *Memory {
	return &Memory{
		parents:       make(map[identifier.ConceptID][]identifier.ConceptID),
		children:      make(map[identifier.ConceptID][]identifier.ConceptID),
		attributes:    make(map[identifier.ConceptID][]Relationship),
		inbound:       make(map[identifier.ConceptID][]Relationship),
		concrete:      make(map[identifier.ConceptID][]ConcreteRelationship),
		descriptions:  make(map[identifier.ConceptID][]Description),
		refsets:       make(map[identifier.ConceptID][]identifier.ConceptID),
		active:        make(map[identifier.ConceptID]bool),
		module:        make(map[identifier.ConceptID]identifier.ConceptID),
		effectiveTime: make(map[identifier.ConceptID]uint32),
		associations:  make(map[identifier.ConceptID]map[HistoryAssociationType][]identifier.ConceptID),
	}
}

// AddIsA registers child as a direct IS-A child of parent (and parent as a
// direct parent of child).
func (m *Memory) AddIsA(parent, child identifier.ConceptID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[parent] = append(m.children[parent], child)
	m.parents[child] = append(m.parents[child], parent)
	m.touch(parent)
	m.touch(child)
}

// touch ensures id is known to HasConcept/AllConceptIDs even without a
// relationship; callers must hold mu.
func (m *Memory) touch(id identifier.ConceptID) {
	if _, ok := m.active[id]; !ok {
		m.active[id] = true
	}
}

// AddAttribute registers an outgoing relationship from source, and its
// mirror image in the inbound index for the `R` flag.
func (m *Memory) AddAttribute(source identifier.ConceptID, rel Relationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributes[source] = append(m.attributes[source], rel)
	m.inbound[rel.DestinationID] = append(m.inbound[rel.DestinationID], Relationship{
		AttributeTypeID: rel.AttributeTypeID,
		DestinationID:   source,
		Group:           rel.Group,
	})
	m.touch(source)
	m.touch(rel.DestinationID)
}

// AddConcreteValue registers a concrete-value attribute on source.
func (m *Memory) AddConcreteValue(source identifier.ConceptID, rel ConcreteRelationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concrete[source] = append(m.concrete[source], rel)
	m.touch(source)
}

// AddDescription registers a description on its owning concept.
func (m *Memory) AddDescription(d Description) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptions[d.ConceptID] = append(m.descriptions[d.ConceptID], d)
	m.touch(d.ConceptID)
}

// SetRefsetMembers replaces refsetID's member list.
func (m *Memory) SetRefsetMembers(refsetID identifier.ConceptID, members []identifier.ConceptID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refsets[refsetID] = append([]identifier.ConceptID(nil), members...)
	m.touch(refsetID)
}

// SetActive overrides the default active=true assumed for any touched
// concept.
func (m *Memory) SetActive(id identifier.ConceptID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[id] = active
}

// SetModule records id's owning module.
func (m *Memory) SetModule(id, moduleID identifier.ConceptID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.module[id] = moduleID
	m.touch(id)
}

// SetEffectiveTime records id's effective time as YYYYMMDD.
func (m *Memory) SetEffectiveTime(id identifier.ConceptID, t uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.effectiveTime[id] = t
	m.touch(id)
}

// AddHistoricalAssociation records that id is associated with target via
// kind (e.g. SameAs, after id was inactivated).
func (m *Memory) AddHistoricalAssociation(id identifier.ConceptID, kind HistoryAssociationType, target identifier.ConceptID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.associations[id] == nil {
		m.associations[id] = make(map[HistoryAssociationType][]identifier.ConceptID)
	}
	m.associations[id][kind] = append(m.associations[id][kind], target)
	m.touch(id)
}

func (m *Memory) GetChildren(ctx context.Context, id identifier.ConceptID) ([]identifier.ConceptID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]identifier.ConceptID(nil), m.children[id]...), nil
}

func (m *Memory) GetParents(ctx context.Context, id identifier.ConceptID) ([]identifier.ConceptID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]identifier.ConceptID(nil), m.parents[id]...), nil
}

func (m *Memory) HasConcept(ctx context.Context, id identifier.ConceptID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[id]
	return ok, nil
}

func (m *Memory) AllConceptIDs(ctx context.Context) (<-chan ConceptIDResult, error) {
	m.mu.RLock()
	ids := make([]identifier.ConceptID, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ch := make(chan ConceptIDResult)
	go func() {
		defer close(ch)
		for _, id := range ids {
			select {
			case <-ctx.Done():
				ch <- ConceptIDResult{Err: ctx.Err()}
				return
			case ch <- ConceptIDResult{ID: id}:
			}
		}
	}()
	return ch, nil
}

func (m *Memory) GetRefsetMembers(ctx context.Context, refsetID identifier.ConceptID) ([]identifier.ConceptID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]identifier.ConceptID(nil), m.refsets[refsetID]...), nil
}

func (m *Memory) GetAttributes(ctx context.Context, id identifier.ConceptID) ([]Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Relationship(nil), m.attributes[id]...), nil
}

func (m *Memory) GetInboundRelationships(ctx context.Context, id identifier.ConceptID) ([]Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Relationship(nil), m.inbound[id]...), nil
}

func (m *Memory) GetConcreteValues(ctx context.Context, id identifier.ConceptID) ([]ConcreteRelationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ConcreteRelationship(nil), m.concrete[id]...), nil
}

func (m *Memory) GetDescriptions(ctx context.Context, id identifier.ConceptID) ([]Description, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Description(nil), m.descriptions[id]...), nil
}

func (m *Memory) IsConceptActive(ctx context.Context, id identifier.ConceptID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[id], nil
}

func (m *Memory) GetConceptModule(ctx context.Context, id identifier.ConceptID) (identifier.ConceptID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.module[id]
	return mod, ok, nil
}

func (m *Memory) GetConceptEffectiveTime(ctx context.Context, id identifier.ConceptID) (uint32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.effectiveTime[id]
	return t, ok, nil
}

func (m *Memory) GetHistoricalAssociations(ctx context.Context, id identifier.ConceptID, kind HistoryAssociationType) ([]identifier.ConceptID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]identifier.ConceptID(nil), m.associations[id][kind]...), nil
}
