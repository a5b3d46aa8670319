package service

import (
	"errors"
	"testing"

	"trialogue/internal/domain"
)

func patientAttrs() map[string]domain.AttrValue {
	return map[string]domain.AttrValue{
		"age":        domain.NumberAttr(45),
		"sex":        domain.StringAttr("female"),
		"smoker":     domain.BoolAttr(false),
		"conditions": domain.SetAttr("type_2_diabetes", "hypertension"),
	}
}

func TestEvaluateAtomOperators(t *testing.T) {
	e := DefaultCriterionEvaluator
	attrs := patientAttrs()

	tests := []struct {
		name string
		node *domain.CriteriaExpr
		want domain.TriState
	}{
		{"ge satisfied", domain.Atom("age", domain.OpGe, domain.NumberAttr(18)), domain.TriTrue},
		{"lt not satisfied", domain.Atom("age", domain.OpLt, domain.NumberAttr(40)), domain.TriFalse},
		{"eq string case insensitive", domain.Atom("sex", domain.OpEq, domain.StringAttr("Female")), domain.TriTrue},
		{"ne bool", domain.Atom("smoker", domain.OpNe, domain.BoolAttr(true)), domain.TriTrue},
		{"in set", domain.Atom("sex", domain.OpIn, domain.SetAttr("male", "female")), domain.TriTrue},
		{"has condition", domain.Atom("conditions", domain.OpHasCondition, domain.StringAttr("hypertension")), domain.TriTrue},
		{"has condition absent term", domain.Atom("conditions", domain.OpHasCondition, domain.StringAttr("asthma")), domain.TriFalse},
		{"age range inside", domain.AgeRange("age", 18, 65), domain.TriTrue},
		{"age range outside", domain.AgeRange("age", 50, 65), domain.TriFalse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.node, attrs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateAbsentAttributeIsUnknownNotFalse(t *testing.T) {
	e := DefaultCriterionEvaluator
	got, err := e.Evaluate(domain.Atom("smoking_status", domain.OpEq, domain.StringAttr("never")), patientAttrs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.TriUnknown {
		t.Fatalf("absent attribute evaluated as %v, want unknown", got)
	}
}

func TestEvaluateHasConditionNormalizesVariants(t *testing.T) {
	e := DefaultCriterionEvaluator
	attrs := map[string]domain.AttrValue{
		"conditions": domain.SetAttr("patient_has_asthma_inthehistory"),
	}
	node := domain.Atom("conditions", domain.OpHasCondition, domain.StringAttr("patient_has_asthma_now"))
	got, err := e.Evaluate(node, attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.TriTrue {
		t.Fatalf("variant spellings did not match: got %v", got)
	}
}

func TestEvaluateTypeMismatchIsSchemaError(t *testing.T) {
	e := DefaultCriterionEvaluator
	attrs := map[string]domain.AttrValue{"age": domain.StringAttr("forty-five")}

	_, err := e.Evaluate(domain.Atom("age", domain.OpGe, domain.NumberAttr(18)), attrs)
	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if schemaErr.Attribute != "age" {
		t.Fatalf("schema error names %q, want age", schemaErr.Attribute)
	}
}

func TestEvaluateKleeneConnectives(t *testing.T) {
	e := DefaultCriterionEvaluator
	attrs := patientAttrs()

	known := domain.Atom("age", domain.OpGe, domain.NumberAttr(18))   // true
	failed := domain.Atom("age", domain.OpGe, domain.NumberAttr(60))  // false
	unknown := domain.Atom("ecog", domain.OpLe, domain.NumberAttr(2)) // atributo ausente

	tests := []struct {
		name string
		node *domain.CriteriaExpr
		want domain.TriState
	}{
		{"and false dominates unknown", domain.All(failed, unknown), domain.TriFalse},
		{"and true with unknown is unknown", domain.All(known, unknown), domain.TriUnknown},
		{"or true dominates unknown", domain.Any(failed, unknown, known), domain.TriTrue},
		{"or false with unknown is unknown", domain.Any(failed, unknown), domain.TriUnknown},
		{"not preserves unknown", domain.Not(unknown), domain.TriUnknown},
		{"not inverts false", domain.Not(failed), domain.TriTrue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.node, attrs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := DefaultCriterionEvaluator
	attrs := patientAttrs()
	node := domain.All(
		domain.AgeRange("age", 18, 65),
		domain.Not(domain.Atom("conditions", domain.OpHasCondition, domain.StringAttr("asthma"))),
		domain.Atom("ecog", domain.OpLe, domain.NumberAttr(2)),
	)
	first, err := e.Evaluate(node, attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := e.Evaluate(node, attrs)
		if err != nil || got != first {
			t.Fatalf("evaluation changed between calls: %v vs %v (err %v)", got, first, err)
		}
	}
}
