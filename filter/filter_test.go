package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/eclerr"
	"github.com/wardle/ecl/identifier"
)

func TestActiveFilter(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	b.SetActive(2, false)

	ok, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.Active{Value: false}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Errorf("expected concept 2 to satisfy active=false")
	}

	ok, err = Evaluate(context.Background(), b, ast.NoDomain, &ast.Active{Value: true}, 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Errorf("expected concept 1 (default active) to satisfy active=true")
	}
}

func TestModuleFilter(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	b.SetModule(2, 900000000000207008)

	ok, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.Module{IDs: []identifier.ConceptID{900000000000207008}}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Errorf("expected concept 2 to match its own module")
	}

	ok, err = Evaluate(context.Background(), b, ast.NoDomain, &ast.Module{IDs: []identifier.ConceptID{123}}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Errorf("expected concept 2 not to match an unrelated module")
	}
}

func TestIdFilter(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	ok, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.Id{IDs: []identifier.ConceptID{2, 3}}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Errorf("expected id filter to match concept 2")
	}
	ok, err = Evaluate(context.Background(), b, ast.NoDomain, &ast.Id{IDs: []identifier.ConceptID{2, 3}}, 9)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Errorf("expected id filter not to match concept 9")
	}
}

func TestTermFilter(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	b.AddDescription(backend.Description{ID: 10, ConceptID: 2, Term: "Heart attack", Language: "en", Active: true})

	cases := []struct {
		name string
		f    *ast.Term
		want bool
	}{
		{"equals case-insensitive", &ast.Term{Op: ast.TermEquals, Values: []string{"HEART ATTACK"}}, true},
		{"exact case-sensitive miss", &ast.Term{Op: ast.TermExactEquals, Values: []string{"HEART ATTACK"}}, false},
		{"startsWith", &ast.Term{Op: ast.TermStartsWith, Values: []string{"Heart"}}, true},
		{"match substring", &ast.Term{Op: ast.TermMatch, Values: []string{"attack"}}, true},
		{"wild glob", &ast.Term{Op: ast.TermWild, Values: []string{"Heart*"}}, true},
		{"wild glob miss", &ast.Term{Op: ast.TermWild, Values: []string{"Lung*"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Evaluate(context.Background(), b, ast.NoDomain, tc.f, 2)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDescriptionDomainFiltersAnyDescription(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	b.AddDescription(backend.Description{ID: 10, ConceptID: 2, Term: "Heart attack", Language: "en", Active: true})
	b.AddDescription(backend.Description{ID: 11, ConceptID: 2, Term: "Myocardial infarction", Language: "en", Active: false})

	ok, err := Evaluate(context.Background(), b, ast.DescriptionDomain, &ast.Active{Value: false}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Errorf("expected description domain active=false to match the inactive description")
	}
}

func TestDefinitionStatusFilter(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	// IsConceptPrimitive has no setter on Memory; Defaults reports unknown,
	// so the filter must return false rather than error.
	ok, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.DefinitionStatus{Status: ast.Primitive}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Errorf("expected unknown definition status to not satisfy the filter")
	}
}

func TestDefinitionStatusByIDUnsupported(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	_, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.DefinitionStatus{Status: ast.DefStatusByID, ID: 900000000000073002}, 2)
	var unsupported *eclerr.UnsupportedFeatureError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected an UnsupportedFeatureError for definitionStatus by explicit id, got %v", err)
	}
}

func TestEffectiveTimeFilter(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	b.SetEffectiveTime(2, 20230131)

	ok, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.EffectiveTime{Op: ast.GreaterThan, Value: 20200101}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Errorf("expected effectiveTime > 20200101 to match 20230131")
	}
}

func TestMemberFilterUnknownFieldErrors(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	_, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.Member{Field: "mapTarget", Value: "x"}, 2)
	var unsupported *eclerr.UnsupportedFeatureError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected an UnsupportedFeatureError for an unrecognized member field, got %v", err)
	}
}

func TestHistoryFilterRejectedByEvaluate(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	_, err := Evaluate(context.Background(), b, ast.NoDomain, &ast.History{}, 2)
	if err == nil {
		t.Errorf("expected Evaluate to reject the additive History filter")
	}
}
