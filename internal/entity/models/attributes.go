package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/validation"
)

type valueKind uint8

const (
	kindString valueKind = iota + 1
	kindNumber
	kindBool
)

// AttributeValue is a disclosable field value: a string, a number or a bool.
// The zero value is invalid.
type AttributeValue struct {
	kind valueKind
	str  string
	num  float64
	bl   bool
}

func StringValue(s string) AttributeValue  { return AttributeValue{kind: kindString, str: s} }
func NumberValue(n float64) AttributeValue { return AttributeValue{kind: kindNumber, num: n} }
func BoolValue(b bool) AttributeValue      { return AttributeValue{kind: kindBool, bl: b} }

func (v AttributeValue) AsString() (string, bool)  { return v.str, v.kind == kindString }
func (v AttributeValue) AsNumber() (float64, bool) { return v.num, v.kind == kindNumber }
func (v AttributeValue) AsBool() (bool, bool)      { return v.bl, v.kind == kindBool }

func (v AttributeValue) IsValid() bool { return v.kind != 0 }

func (v AttributeValue) String() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return fmt.Sprintf("%g", v.num)
	case kindBool:
		return fmt.Sprintf("%t", v.bl)
	default:
		return ""
	}
}

func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.bl)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, number or boolean. Null, arrays and
// objects are rejected so the attribute map stays flat.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty attribute value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case 'n', '[', '{':
		return fmt.Errorf("attribute values must be a string, number or boolean")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

// Attributes maps attribute names to values.
type Attributes map[string]AttributeValue

func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return maps.Clone(a)
}

// Names returns the attribute names in sorted order.
func (a Attributes) Names() []string {
	return slices.Sorted(maps.Keys(a))
}

// Restrict returns only the entries named in allowed. Names in allowed that
// the map does not hold are skipped.
func (a Attributes) Restrict(allowed []string) Attributes {
	out := make(Attributes, len(allowed))
	for _, name := range allowed {
		if v, ok := a[name]; ok {
			out[name] = v
		}
	}
	return out
}

func (a Attributes) Validate() error {
	if len(a) > validation.MaxAttributes {
		return dErrors.New(dErrors.CodeValidation, "too many attributes")
	}
	for name, v := range a {
		if strings.TrimSpace(name) == "" {
			return dErrors.New(dErrors.CodeValidation, "attribute names must not be blank")
		}
		if len(name) > validation.MaxAttributeNameLen {
			return dErrors.New(dErrors.CodeValidation, "attribute name too long: "+name)
		}
		if !v.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "attribute "+name+" has no value")
		}
		if s, ok := v.AsString(); ok && len(s) > validation.MaxAttributeValueLen {
			return dErrors.New(dErrors.CodeValidation, "attribute value too long: "+name)
		}
	}
	return nil
}
