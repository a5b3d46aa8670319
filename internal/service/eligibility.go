package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trialogue/internal/domain"
)

// EligibilityEngine verifica pacientes contra los criterios de cada ensayo.
// Compila el árbol una vez por ensayo y produce un veredicto trivaluado con
// explicaciones por criterio en orden declarado.
type EligibilityEngine struct {
	compiler  CriteriaCompiler
	evaluator CriterionEvaluator
	log       *zap.Logger
}

func NewEligibilityEngine(log *zap.Logger) *EligibilityEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &EligibilityEngine{log: log}
}

// Verify evalúa un ensayo. Un CriteriaParseError no descarta el ensayo: se
// reporta con veredicto indeterminate y EvaluationError poblado. Un error de
// evaluación (SchemaError) sí es fatal: el perfil del paciente está mal
// tipado y haría fallar igual a todo el catálogo.
func (e *EligibilityEngine) Verify(trial domain.TrialProfile, patient domain.PatientProfile) (domain.EligibilityResult, error) {
	result := domain.EligibilityResult{TrialID: trial.ID, TrialTitle: trial.Title}

	expr, err := e.compiler.Compile(trial)
	if err != nil {
		e.log.Warn("trial criteria could not be compiled",
			zap.String("trial_id", trial.ID), zap.Error(err))
		result.Verdict = domain.VerdictIndeterminate
		result.EvaluationError = err.Error()
		return result, nil
	}

	verdict, err := e.evaluator.Evaluate(expr, patient.Attributes)
	if err != nil {
		return domain.EligibilityResult{}, fmt.Errorf("trial %s: %w", trial.ID, err)
	}

	result.Verdict = domain.VerdictFromTriState(verdict)
	result.Criteria = e.explain(expr, patient.Attributes, false)
	return result, nil
}

// VerifyAll evalúa el catálogo completo preservando el orden de entrada.
func (e *EligibilityEngine) VerifyAll(trials []domain.TrialProfile, patient domain.PatientProfile) ([]domain.EligibilityResult, error) {
	results := make([]domain.EligibilityResult, 0, len(trials))
	for _, trial := range trials {
		result, err := e.Verify(trial, patient)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// explain recorre el árbol en orden declarado y emite una línea por átomo.
// La paridad de negación decide si un átomo verdadero cuenta a favor o en
// contra del paciente.
func (e *EligibilityEngine) explain(node *domain.CriteriaExpr, attrs map[string]domain.AttrValue, negated bool) []domain.CriterionOutcome {
	if node == nil {
		return nil
	}
	if node.Kind == domain.NodeAtom {
		return []domain.CriterionOutcome{e.explainAtom(node, attrs, negated)}
	}

	childNegated := negated
	if node.Kind == domain.NodeNot {
		childNegated = !negated
	}
	var out []domain.CriterionOutcome
	for _, child := range node.Children {
		out = append(out, e.explain(child, attrs, childNegated)...)
	}
	return out
}

func (e *EligibilityEngine) explainAtom(node *domain.CriteriaExpr, attrs map[string]domain.AttrValue, negated bool) domain.CriterionOutcome {
	value, err := e.evaluator.Evaluate(node, attrs)
	name := atomLabel(node)

	outcome := domain.CriterionOutcome{Criterion: name}
	if err != nil {
		outcome.Outcome = "unknown"
		outcome.Reason = err.Error()
		return outcome
	}

	effective := value
	if negated {
		effective = value.Not()
	}
	switch effective {
	case domain.TriTrue:
		outcome.Outcome = "satisfied"
	case domain.TriFalse:
		outcome.Outcome = "not_satisfied"
	default:
		outcome.Outcome = "unknown"
	}
	outcome.Reason = atomReason(node, attrs, value, negated)
	return outcome
}

func atomLabel(node *domain.CriteriaExpr) string {
	if node.Label != "" {
		return node.Label
	}
	return domain.ReadableCriterionName(node.Attr)
}

// atomReason templa la razón por operador. Nunca genera prosa libre: eso es
// trabajo del colaborador de narración.
func atomReason(node *domain.CriteriaExpr, attrs map[string]domain.AttrValue, value domain.TriState, negated bool) string {
	attr, present := attrs[node.Attr]
	if !present {
		return fmt.Sprintf("no information recorded for %s", node.Attr)
	}

	switch node.Op {
	case domain.OpEq, domain.OpNe:
		return fmt.Sprintf("%s is %s, required %s %s",
			node.Attr, attr.Display(), opWord(node.Op), node.Value.Display())

	case domain.OpGt, domain.OpGe, domain.OpLt, domain.OpLe:
		return fmt.Sprintf("%s is %g, required %s %g",
			node.Attr, attr.Num, opWord(node.Op), node.Value.Num)

	case domain.OpIn:
		return fmt.Sprintf("%s is %s, required one of: %s",
			node.Attr, attr.Display(), strings.Join(node.Value.Set, ", "))

	case domain.OpHasCondition:
		label := atomLabel(node)
		if value == domain.TriTrue && !negated {
			return fmt.Sprintf("%s is recorded in the patient profile", label)
		}
		if value == domain.TriTrue && negated {
			return fmt.Sprintf("%s is recorded in the patient profile, which excludes the patient", label)
		}
		return fmt.Sprintf("no record of %s in the patient profile", label)

	case domain.OpAgeRange:
		return fmt.Sprintf("%s is %g, required between %g and %g",
			node.Attr, attr.Num, node.Min, node.Max)
	}
	return fmt.Sprintf("%s evaluated as %s", node.Attr, value)
}

func opWord(op domain.Operator) string {
	switch op {
	case domain.OpEq:
		return "equal to"
	case domain.OpNe:
		return "different from"
	case domain.OpGt:
		return "greater than"
	case domain.OpGe:
		return "at least"
	case domain.OpLt:
		return "less than"
	case domain.OpLe:
		return "at most"
	}
	return string(op)
}
