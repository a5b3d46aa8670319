package domain

import (
	"encoding/json"
	"fmt"
)

// AttrKind identifica el tipo de un atributo de paciente.
type AttrKind string

const (
	AttrString AttrKind = "string"
	AttrNumber AttrKind = "number"
	AttrBool   AttrKind = "bool"
	AttrSet    AttrKind = "set"
)

// AttrValue es un valor tipado de atributo. El mapa de atributos es sparse:
// una clave ausente significa "desconocido", nunca false.
type AttrValue struct {
	Kind AttrKind `json:"kind"`
	Str  string   `json:"str,omitempty"`
	Num  float64  `json:"num,omitempty"`
	Bool bool     `json:"bool,omitempty"`
	Set  []string `json:"set,omitempty"`
}

func StringAttr(s string) AttrValue  { return AttrValue{Kind: AttrString, Str: s} }
func NumberAttr(n float64) AttrValue { return AttrValue{Kind: AttrNumber, Num: n} }
func BoolAttr(b bool) AttrValue      { return AttrValue{Kind: AttrBool, Bool: b} }
func SetAttr(items ...string) AttrValue {
	return AttrValue{Kind: AttrSet, Set: items}
}

// UnmarshalJSON acepta tanto la forma tipada como literales JSON crudos
// (numero, bool, string, array) e infiere el Kind.
func (v *AttrValue) UnmarshalJSON(data []byte) error {
	var typed struct {
		Kind AttrKind `json:"kind"`
		Str  string   `json:"str"`
		Num  float64  `json:"num"`
		Bool bool     `json:"bool"`
		Set  []string `json:"set"`
	}
	if err := json.Unmarshal(data, &typed); err == nil && typed.Kind != "" {
		*v = AttrValue{Kind: typed.Kind, Str: typed.Str, Num: typed.Num, Bool: typed.Bool, Set: typed.Set}
		return nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	inferred, err := InferAttrValue(raw)
	if err != nil {
		return err
	}
	*v = inferred
	return nil
}

// InferAttrValue convierte un valor JSON decodificado en un AttrValue tipado.
func InferAttrValue(raw interface{}) (AttrValue, error) {
	switch t := raw.(type) {
	case bool:
		return BoolAttr(t), nil
	case float64:
		return NumberAttr(t), nil
	case string:
		return StringAttr(t), nil
	case []interface{}:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return AttrValue{}, fmt.Errorf("set attribute contains non-string element %v", it)
			}
			items = append(items, s)
		}
		return SetAttr(items...), nil
	default:
		return AttrValue{}, fmt.Errorf("unsupported attribute value %v", raw)
	}
}

// Display devuelve una representacion corta para resúmenes de paciente.
func (v AttrValue) Display() string {
	switch v.Kind {
	case AttrString:
		return v.Str
	case AttrNumber:
		return fmt.Sprintf("%g", v.Num)
	case AttrBool:
		if v.Bool {
			return "yes"
		}
		return "no"
	case AttrSet:
		out := ""
		for i, s := range v.Set {
			if i > 0 {
				out += ", "
			}
			out += s
		}
		return out
	}
	return ""
}

// PatientProfile es inmutable durante una sesión una vez confirmado.
type PatientProfile struct {
	ID         string               `json:"id"`
	Name       string               `json:"name,omitempty"`
	Note       string               `json:"note,omitempty"`
	Attributes map[string]AttrValue `json:"attributes"`
}

// Clone devuelve una copia profunda para que la sesión edite sin tocar el catálogo.
func (p PatientProfile) Clone() PatientProfile {
	out := p
	out.Attributes = make(map[string]AttrValue, len(p.Attributes))
	for k, v := range p.Attributes {
		if v.Kind == AttrSet {
			v.Set = append([]string(nil), v.Set...)
		}
		out.Attributes[k] = v
	}
	return out
}
