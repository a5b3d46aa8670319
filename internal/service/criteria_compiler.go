package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"trialogue/internal/domain"
)

// Profundidad máxima de anidamiento del árbol de criterios.
const maxCriteriaDepth = 32

// Operadores aceptados en el formato estructurado.
var knownOperators = map[domain.Operator]bool{
	domain.OpEq:           true,
	domain.OpNe:           true,
	domain.OpGt:           true,
	domain.OpGe:           true,
	domain.OpLt:           true,
	domain.OpLe:           true,
	domain.OpIn:           true,
	domain.OpHasCondition: true,
	domain.OpAgeRange:     true,
}

// CriteriaCompiler transforma los criterios de un ensayo en un CriteriaExpr
// validado. Parsea una sola vez por ensayo; la evaluación posterior es
// recursión estructural pura.
type CriteriaCompiler struct{}

// Compile prefiere el formato estructurado (campo criteria) y cae a las listas
// planas de inclusión/exclusión heredadas del catálogo minificado.
func (c CriteriaCompiler) Compile(trial domain.TrialProfile) (*domain.CriteriaExpr, error) {
	if len(trial.RawCriteria) > 0 {
		expr, err := c.parseStructured(trial.ID, trial.RawCriteria)
		if err != nil {
			return nil, err
		}
		return expr, nil
	}
	return c.compileFlat(trial)
}

func (c CriteriaCompiler) parseStructured(trialID string, raw json.RawMessage) (*domain.CriteriaExpr, error) {
	var expr domain.CriteriaExpr
	if err := json.Unmarshal(raw, &expr); err != nil {
		return nil, &domain.CriteriaParseError{TrialID: trialID, Reason: fmt.Sprintf("invalid criteria JSON: %v", err)}
	}
	if err := c.validate(trialID, &expr, 0); err != nil {
		return nil, err
	}
	return &expr, nil
}

func (c CriteriaCompiler) validate(trialID string, node *domain.CriteriaExpr, depth int) error {
	if node == nil {
		return &domain.CriteriaParseError{TrialID: trialID, Reason: "nil criteria node"}
	}
	if depth > maxCriteriaDepth {
		return &domain.CriteriaParseError{TrialID: trialID, Reason: fmt.Sprintf("criteria nesting exceeds %d levels", maxCriteriaDepth)}
	}

	switch node.Kind {
	case domain.NodeAtom:
		if node.Attr == "" {
			return &domain.CriteriaParseError{TrialID: trialID, Reason: "atom without attribute name"}
		}
		if !knownOperators[node.Op] {
			return &domain.CriteriaParseError{TrialID: trialID, Reason: fmt.Sprintf("unknown operator %q", node.Op)}
		}
		if node.Op == domain.OpAgeRange && node.Min > node.Max {
			return &domain.CriteriaParseError{TrialID: trialID, Reason: fmt.Sprintf("age range min %g exceeds max %g", node.Min, node.Max)}
		}
		if len(node.Children) > 0 {
			return &domain.CriteriaParseError{TrialID: trialID, Reason: "atom node must not have children"}
		}
		return nil

	case domain.NodeAll, domain.NodeAny:
		if len(node.Children) == 0 {
			return &domain.CriteriaParseError{TrialID: trialID, Reason: fmt.Sprintf("%s node without children", node.Kind)}
		}
	case domain.NodeNot:
		if len(node.Children) != 1 {
			return &domain.CriteriaParseError{TrialID: trialID, Reason: "not node requires exactly one child"}
		}
	default:
		return &domain.CriteriaParseError{TrialID: trialID, Reason: fmt.Sprintf("unknown node kind %q", node.Kind)}
	}

	for _, child := range node.Children {
		if err := c.validate(trialID, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// compileFlat arma All(inclusiones..., Not(Any(exclusiones...))) a partir de
// las listas planas. Los criterios de sexo mutuamente excluyentes se agrupan
// en un Any; los de edad en meses o días se descartan.
func (c CriteriaCompiler) compileFlat(trial domain.TrialProfile) (*domain.CriteriaExpr, error) {
	if len(trial.InclusionCriteria) == 0 && len(trial.ExclusionCriteria) == 0 {
		return nil, &domain.CriteriaParseError{TrialID: trial.ID, Reason: "trial has no criteria"}
	}

	var children []*domain.CriteriaExpr
	var genderGroup []*domain.CriteriaExpr

	for _, name := range trial.InclusionCriteria {
		name = strings.TrimSpace(name)
		if name == "" || domain.IgnoredVariable(name) {
			continue
		}
		if domain.IsGenderVariable(name) {
			genderGroup = append(genderGroup, genderAtom(name))
			continue
		}
		children = append(children, conditionAtom(name))
	}
	if len(genderGroup) == 1 {
		children = append(children, genderGroup[0])
	} else if len(genderGroup) > 1 {
		children = append(children, domain.Any(genderGroup...))
	}

	var exclusions []*domain.CriteriaExpr
	for _, name := range trial.ExclusionCriteria {
		name = strings.TrimSpace(name)
		if name == "" || domain.IgnoredVariable(name) {
			continue
		}
		exclusions = append(exclusions, conditionAtom(name))
	}
	if len(exclusions) > 0 {
		children = append(children, domain.Not(domain.Any(exclusions...)))
	}

	if len(children) == 0 {
		return nil, &domain.CriteriaParseError{TrialID: trial.ID, Reason: "all flat criteria were discarded"}
	}
	return domain.All(children...), nil
}

func conditionAtom(name string) *domain.CriteriaExpr {
	atom := domain.Atom("conditions", domain.OpHasCondition, domain.StringAttr(domain.NormalizeVariableName(name)))
	atom.Label = domain.ReadableCriterionName(name)
	return atom
}

func genderAtom(name string) *domain.CriteriaExpr {
	n := strings.ToLower(name)
	value := n
	for _, marker := range []string{"patient_sex_is_", "patient_gender_is_"} {
		if idx := strings.Index(n, marker); idx >= 0 {
			value = n[idx+len(marker):]
			break
		}
	}
	value = strings.TrimSuffix(value, "_now")
	atom := domain.Atom("sex", domain.OpEq, domain.StringAttr(value))
	atom.Label = domain.ReadableCriterionName(name)
	return atom
}
