package domain

// TriState es el resultado de evaluar un criterio con lógica de Kleene.
// Unknown nunca debe degradarse a False en el camino de elegibilidad.
type TriState int

const (
	TriFalse TriState = iota
	TriTrue
	TriUnknown
)

func (t TriState) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "unknown"
	}
}

// And aplica conjunción trivaluada: un False domina, Unknown contagia al resto.
func (t TriState) And(other TriState) TriState {
	if t == TriFalse || other == TriFalse {
		return TriFalse
	}
	if t == TriUnknown || other == TriUnknown {
		return TriUnknown
	}
	return TriTrue
}

// Or aplica disyunción trivaluada: un True domina, Unknown contagia al resto.
func (t TriState) Or(other TriState) TriState {
	if t == TriTrue || other == TriTrue {
		return TriTrue
	}
	if t == TriUnknown || other == TriUnknown {
		return TriUnknown
	}
	return TriFalse
}

// Not invierte True/False y preserva Unknown.
func (t TriState) Not() TriState {
	switch t {
	case TriTrue:
		return TriFalse
	case TriFalse:
		return TriTrue
	default:
		return TriUnknown
	}
}

// Operator identifica la comparación de un átomo contra un atributo del paciente.
type Operator string

const (
	OpEq           Operator = "eq"
	OpNe           Operator = "ne"
	OpGt           Operator = "gt"
	OpGe           Operator = "ge"
	OpLt           Operator = "lt"
	OpLe           Operator = "le"
	OpIn           Operator = "in"
	OpHasCondition Operator = "has-condition"
	OpAgeRange     Operator = "age-range"
)

// NodeKind distingue los nodos del árbol de criterios.
type NodeKind string

const (
	NodeAtom NodeKind = "atom"
	NodeAll  NodeKind = "all"
	NodeAny  NodeKind = "any"
	NodeNot  NodeKind = "not"
)

// CriteriaExpr es el AST de inclusión/exclusión de un ensayo, parseado una
// sola vez y evaluado por recursión estructural.
type CriteriaExpr struct {
	Kind NodeKind `json:"kind"`

	// Campos de átomo.
	Attr  string    `json:"attr,omitempty"`
	Op    Operator  `json:"op,omitempty"`
	Value AttrValue `json:"value,omitempty"`
	Min   float64   `json:"min,omitempty"`
	Max   float64   `json:"max,omitempty"`

	// Nombre legible para la explicación; si está vacío se deriva del átomo.
	Label string `json:"label,omitempty"`

	// Hijos para all/any; not usa exactamente uno.
	Children []*CriteriaExpr `json:"children,omitempty"`
}

func Atom(attr string, op Operator, value AttrValue) *CriteriaExpr {
	return &CriteriaExpr{Kind: NodeAtom, Attr: attr, Op: op, Value: value}
}

func AgeRange(attr string, min, max float64) *CriteriaExpr {
	return &CriteriaExpr{Kind: NodeAtom, Attr: attr, Op: OpAgeRange, Min: min, Max: max}
}

func All(children ...*CriteriaExpr) *CriteriaExpr {
	return &CriteriaExpr{Kind: NodeAll, Children: children}
}

func Any(children ...*CriteriaExpr) *CriteriaExpr {
	return &CriteriaExpr{Kind: NodeAny, Children: children}
}

func Not(child *CriteriaExpr) *CriteriaExpr {
	return &CriteriaExpr{Kind: NodeNot, Children: []*CriteriaExpr{child}}
}
