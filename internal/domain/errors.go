package domain

import "fmt"

// SchemaError indica datos de perfil malformados o mal tipados. Es fatal para
// el request actual pero la sesión sigue viva para reintentar.
type SchemaError struct {
	Attribute string
	Expected  string
	Got       string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: attribute %q expected %s, got %s", e.Attribute, e.Expected, e.Got)
}

// CriteriaParseError indica lógica de ensayo malformada (operador desconocido,
// nodo vacío, anidamiento patológico). Fatal solo para ese ensayo.
type CriteriaParseError struct {
	TrialID string
	Reason  string
}

func (e *CriteriaParseError) Error() string {
	if e.TrialID == "" {
		return fmt.Sprintf("criteria parse error: %s", e.Reason)
	}
	return fmt.Sprintf("criteria parse error in trial %s: %s", e.TrialID, e.Reason)
}

// StateTransitionViolation indica un intento de transición sin guard
// satisfecho; la sesión permanece en su estado actual.
type StateTransitionViolation struct {
	From   Stage
	Reason string
}

func (e *StateTransitionViolation) Error() string {
	return fmt.Sprintf("state transition violation from %q: %s", e.From, e.Reason)
}
