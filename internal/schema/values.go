package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	language "github.com/hanpama/querycost/internal/language"
)

// CoerceVariableValues coerces raw variable values, as decoded from a request,
// against the operation's variable definitions.
func CoerceVariableValues(
	s *language.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(operation.VariableDefinitions))
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := lookupVariable(variableValues, name)
		if !ok {
			if varDef.DefaultValue != nil {
				cv, err := CoerceValue(s, astValueToGo(varDef.DefaultValue, nil), t)
				if err != nil {
					return nil, fmt.Errorf("variable $%s default value: %w", name, err)
				}
				coerced[name] = cv
				continue
			}
			if t.NonNull {
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
			}
			continue
		}
		cv, err := CoerceValue(s, val, t)
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s: %w", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// CoerceArgumentValues coerces the arguments written on a field or directive
// against their definitions. Variables are substituted from variableValues,
// which must already be coerced. Defaults apply to omitted arguments; a
// missing required argument or an uncoercible value is an error.
func CoerceArgumentValues(
	s *language.Schema,
	defs language.ArgumentDefinitionList,
	arguments language.ArgumentList,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(defs))
	for _, argDef := range defs {
		name := argDef.Name
		arg := arguments.ForName(name)

		if arg == nil || arg.Value == nil {
			if err := applyDefault(s, coerced, name, argDef.DefaultValue, argDef.Type); err != nil {
				return nil, fmt.Errorf("argument %q: %w", name, err)
			}
			continue
		}

		if arg.Value.Kind == language.Variable {
			v, ok := lookupVariable(variableValues, arg.Value.Raw)
			if !ok {
				if err := applyDefault(s, coerced, name, argDef.DefaultValue, argDef.Type); err != nil {
					return nil, fmt.Errorf("argument %q: %w", name, err)
				}
				continue
			}
			if v == nil && argDef.Type.NonNull {
				return nil, fmt.Errorf("argument %q of type %s cannot be null", name, argDef.Type.String())
			}
			coerced[name] = v
			continue
		}

		cv, err := CoerceValue(s, astValueToGo(arg.Value, variableValues), argDef.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q of type %s: %w", name, argDef.Type.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

func applyDefault(s *language.Schema, out map[string]any, name string, def *language.Value, t *language.Type) error {
	if def != nil {
		v, err := CoerceValue(s, astValueToGo(def, nil), t)
		if err != nil {
			return err
		}
		out[name] = v
		return nil
	}
	if t.NonNull {
		return fmt.Errorf("required value of type %s was not provided", t.String())
	}
	return nil
}

func lookupVariable(variableValues map[string]any, name string) (any, bool) {
	if v, ok := variableValues[name]; ok {
		return v, true
	}
	v, ok := variableValues[strings.TrimPrefix(name, "$")]
	return v, ok
}

// astValueToGo converts a literal to a Go value, substituting nested variable
// references. Unknown variables become nil.
func astValueToGo(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		v, _ := lookupVariable(variableValues, value.Raw)
		return v
	case language.IntValue:
		if iv, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
			return iv
		}
		return value.Raw
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return enumLiteral(value.Raw)
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value, variableValues)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value, variableValues)
		}
		return m
	default:
		return nil
	}
}

// enumLiteral marks an unquoted enum token so it is not confused with a
// string literal during coercion.
type enumLiteral string

// CoerceValue coerces value to the input type t.
func CoerceValue(s *language.Schema, value any, t *language.Type) (any, error) {
	if t == nil {
		return value, nil
	}
	if t.NonNull {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", t.String())
		}
		inner := *t
		inner.NonNull = false
		return CoerceValue(s, value, &inner)
	}
	if value == nil {
		return nil, nil
	}
	if t.Elem != nil {
		return coerceListValue(s, value, t.Elem)
	}

	switch t.NamedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	def := TypeByName(s, t.NamedType)
	if def == nil {
		return unwrapEnumLiteral(value), nil
	}
	switch def.Kind {
	case language.Enum:
		return coerceToEnum(def, value)
	case language.InputObject:
		return coerceInputObject(s, def, value)
	default:
		// custom scalars pass through
		return unwrapEnumLiteral(value), nil
	}
}

func coerceListValue(s *language.Schema, value any, elem *language.Type) (any, error) {
	if slice, ok := value.([]any); ok {
		out := make([]any, len(slice))
		for i, item := range slice {
			ci, err := CoerceValue(s, item, elem)
			if err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			out[i] = ci
		}
		return out, nil
	}
	// a single value becomes a list of one
	ci, err := CoerceValue(s, value, elem)
	if err != nil {
		return nil, err
	}
	return []any{ci}, nil
}

func coerceInputObject(s *language.Schema, def *language.Definition, value any) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to input object %s", value, value, def.Name)
	}
	for k := range in {
		if def.Fields.ForName(k) == nil {
			return nil, fmt.Errorf("field %q is not defined by type %s", k, def.Name)
		}
	}
	out := make(map[string]any, len(def.Fields))
	for _, f := range def.Fields {
		v, ok := in[f.Name]
		if !ok {
			if err := applyDefault(s, out, f.Name, f.DefaultValue, f.Type); err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", def.Name, f.Name, err)
			}
			continue
		}
		cv, err := CoerceValue(s, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", def.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	return out, nil
}

func coerceToEnum(def *language.Definition, value any) (any, error) {
	var name string
	switch v := value.(type) {
	case enumLiteral:
		name = string(v)
	case string:
		name = v
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, def.Name)
	}
	if def.EnumValues.ForName(name) == nil {
		return nil, fmt.Errorf("value %q does not exist in enum %s", name, def.Name)
	}
	return name, nil
}

func unwrapEnumLiteral(value any) any {
	if v, ok := value.(enumLiteral); ok {
		return string(v)
	}
	return value
}

func coerceToInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("cannot coerce non-integer %v to Int", v)
		}
		n = int64(v)
	case float32:
		if float64(v) != math.Trunc(float64(v)) {
			return nil, fmt.Errorf("cannot coerce non-integer %v to Int", v)
		}
		n = int64(v)
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value %d", n)
	}
	return int(n), nil
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to String", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}
