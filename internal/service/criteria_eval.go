package service

import (
	"fmt"
	"strings"

	"trialogue/internal/domain"
)

// CriterionEvaluator evalúa nodos del árbol de criterios contra los atributos
// de un paciente con lógica trivaluada de Kleene. Es determinista y sin
// efectos: mismas entradas, misma salida.
type CriterionEvaluator struct{}

// DefaultCriterionEvaluator permite uso directo sin instanciar.
var DefaultCriterionEvaluator = CriterionEvaluator{}

// Evaluate recorre el árbol por recursión estructural. Un atributo ausente
// produce Unknown, nunca False. Un desajuste de tipos produce SchemaError.
func (e CriterionEvaluator) Evaluate(node *domain.CriteriaExpr, attrs map[string]domain.AttrValue) (domain.TriState, error) {
	if node == nil {
		return domain.TriUnknown, &domain.CriteriaParseError{Reason: "nil criteria node"}
	}

	switch node.Kind {
	case domain.NodeAtom:
		return e.evaluateAtom(node, attrs)

	case domain.NodeAll:
		result := domain.TriTrue
		for _, child := range node.Children {
			v, err := e.Evaluate(child, attrs)
			if err != nil {
				return domain.TriUnknown, err
			}
			result = result.And(v)
		}
		return result, nil

	case domain.NodeAny:
		result := domain.TriFalse
		for _, child := range node.Children {
			v, err := e.Evaluate(child, attrs)
			if err != nil {
				return domain.TriUnknown, err
			}
			result = result.Or(v)
		}
		return result, nil

	case domain.NodeNot:
		if len(node.Children) != 1 {
			return domain.TriUnknown, &domain.CriteriaParseError{Reason: "not node requires exactly one child"}
		}
		v, err := e.Evaluate(node.Children[0], attrs)
		if err != nil {
			return domain.TriUnknown, err
		}
		return v.Not(), nil
	}

	return domain.TriUnknown, &domain.CriteriaParseError{Reason: fmt.Sprintf("unknown node kind %q", node.Kind)}
}

func (e CriterionEvaluator) evaluateAtom(node *domain.CriteriaExpr, attrs map[string]domain.AttrValue) (domain.TriState, error) {
	attr, ok := attrs[node.Attr]
	if !ok {
		return domain.TriUnknown, nil
	}

	switch node.Op {
	case domain.OpEq, domain.OpNe:
		eq, err := attrEquals(node.Attr, attr, node.Value)
		if err != nil {
			return domain.TriUnknown, err
		}
		if node.Op == domain.OpNe {
			eq = !eq
		}
		return boolToTri(eq), nil

	case domain.OpGt, domain.OpGe, domain.OpLt, domain.OpLe:
		if attr.Kind != domain.AttrNumber {
			return domain.TriUnknown, &domain.SchemaError{Attribute: node.Attr, Expected: "number", Got: string(attr.Kind)}
		}
		if node.Value.Kind != domain.AttrNumber {
			return domain.TriUnknown, &domain.SchemaError{Attribute: node.Attr, Expected: "numeric comparison value", Got: string(node.Value.Kind)}
		}
		return boolToTri(compareNumbers(node.Op, attr.Num, node.Value.Num)), nil

	case domain.OpIn:
		if node.Value.Kind != domain.AttrSet {
			return domain.TriUnknown, &domain.SchemaError{Attribute: node.Attr, Expected: "set comparison value", Got: string(node.Value.Kind)}
		}
		if attr.Kind != domain.AttrString {
			return domain.TriUnknown, &domain.SchemaError{Attribute: node.Attr, Expected: "string", Got: string(attr.Kind)}
		}
		return boolToTri(setContains(node.Value.Set, attr.Str)), nil

	case domain.OpHasCondition:
		if attr.Kind != domain.AttrSet {
			return domain.TriUnknown, &domain.SchemaError{Attribute: node.Attr, Expected: "set", Got: string(attr.Kind)}
		}
		return boolToTri(setContains(attr.Set, node.Value.Str)), nil

	case domain.OpAgeRange:
		if attr.Kind != domain.AttrNumber {
			return domain.TriUnknown, &domain.SchemaError{Attribute: node.Attr, Expected: "number", Got: string(attr.Kind)}
		}
		return boolToTri(attr.Num >= node.Min && attr.Num <= node.Max), nil
	}

	return domain.TriUnknown, &domain.CriteriaParseError{Reason: fmt.Sprintf("unknown operator %q", node.Op)}
}

func attrEquals(name string, attr, value domain.AttrValue) (bool, error) {
	switch attr.Kind {
	case domain.AttrString:
		if value.Kind != domain.AttrString {
			return false, &domain.SchemaError{Attribute: name, Expected: "string comparison value", Got: string(value.Kind)}
		}
		return strings.EqualFold(attr.Str, value.Str), nil
	case domain.AttrNumber:
		if value.Kind != domain.AttrNumber {
			return false, &domain.SchemaError{Attribute: name, Expected: "numeric comparison value", Got: string(value.Kind)}
		}
		return attr.Num == value.Num, nil
	case domain.AttrBool:
		if value.Kind != domain.AttrBool {
			return false, &domain.SchemaError{Attribute: name, Expected: "boolean comparison value", Got: string(value.Kind)}
		}
		return attr.Bool == value.Bool, nil
	}
	return false, &domain.SchemaError{Attribute: name, Expected: "scalar", Got: string(attr.Kind)}
}

func compareNumbers(op domain.Operator, a, b float64) bool {
	switch op {
	case domain.OpGt:
		return a > b
	case domain.OpGe:
		return a >= b
	case domain.OpLt:
		return a < b
	case domain.OpLe:
		return a <= b
	}
	return false
}

func setContains(set []string, item string) bool {
	needle := domain.NormalizeVariableName(item)
	for _, s := range set {
		if domain.NormalizeVariableName(s) == needle {
			return true
		}
	}
	return false
}

func boolToTri(b bool) domain.TriState {
	if b {
		return domain.TriTrue
	}
	return domain.TriFalse
}
