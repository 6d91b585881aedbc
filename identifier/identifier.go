// Copyright 2018 Mark Wardle / Eldrix Ltd
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.
//

// Package identifier provides the SNOMED CT identifier (SCTID) type used
// throughout the ECL engine as a ConceptID, plus its lexical validation
// rules: 6-18 ASCII digits, a Verhoeff check digit, and a partition
// identifier that distinguishes concepts from descriptions and
// relationships.
package identifier

import (
	"fmt"
	"strconv"
)

// ConceptID is a SNOMED CT SCTID: a 64-bit unsigned integer identifying a
// concept, description or relationship. The ECL engine only ever resolves
// concept identifiers, but the validation rules are shared across all three
// component kinds.
type ConceptID uint64

// MinDigits and MaxDigits bound the lexical form of an SCTID per spec: 6-18
// ASCII digits once the leading partition byte and check digit are included.
const (
	MinDigits = 6
	MaxDigits = 18
)

// Parse converts a decimal string into a ConceptID without checksum
// validation. The ECL parser uses this lenient form for SCTID literals.
func Parse(s string) (ConceptID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return ConceptID(v), nil
}

// ParseAndValidate converts a decimal string into a ConceptID, additionally
// checking its length and Verhoeff check digit. The ECL parser does not call
// it.
func ParseAndValidate(s string) (ConceptID, error) {
	if len(s) < MinDigits || len(s) > MaxDigits {
		return 0, fmt.Errorf("identifier %q has %d digits, want %d-%d", s, len(s), MinDigits, MaxDigits)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("identifier %q is not all-digit", s)
		}
	}
	if !validateDigits(s) {
		return 0, fmt.Errorf("identifier %q fails check digit validation", s)
	}
	id, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// String returns the decimal representation of the identifier.
func (id ConceptID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsValid reports whether id has 6-18 digits and carries a correct Verhoeff
// check digit; the partition identifier is not checked. Neither the parser
// nor the evaluator requires identifiers to pass this.
func (id ConceptID) IsValid() bool {
	s := id.String()
	if len(s) < MinDigits || len(s) > MaxDigits {
		return false
	}
	return validateDigits(s)
}

// partitionIdentifier returns the penultimate two digits of the identifier,
// which distinguish concept (00/10), description (01/11) and relationship
// (02/12) identifiers.
// See https://confluence.ihtsdotools.org/display/DOCRELFMT/5.5.+Partition+Identifier
func (id ConceptID) partitionIdentifier() string {
	s := id.String()
	l := len(s)
	if l < 3 {
		return ""
	}
	return s[l-3 : l-1]
}

// IsConcept reports whether this identifier's partition marks it as a concept.
func (id ConceptID) IsConcept() bool {
	pid := id.partitionIdentifier()
	return pid == "00" || pid == "10"
}
