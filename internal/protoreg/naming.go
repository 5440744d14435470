package protoreg

import (
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	complexity "github.com/hanpama/querycost/internal/complexity"
)

func nameProtoField(name string) protoreflect.Name {
	return protoreflect.Name(snakeCase(name))
}

func nameProtoEnumValue(enumName string, valueName string) protoreflect.Name {
	prefix := strings.ToUpper(snakeCase(enumName))
	return protoreflect.Name(prefix + "_" + strings.ToUpper(valueName))
}

func nameOutcomeValue(o complexity.Outcome) protoreflect.Name {
	return nameProtoEnumValue("Outcome", string(o))
}

func nameService(name string) protoreflect.Name {
	return protoreflect.Name(capitalize(name) + "Service")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// snakeCase converts a string from CamelCase or PascalCase to snake_case.
func snakeCase(s string) string {
	result := ""
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result += "_"
		}
		result += string(r)
	}
	return strings.ToLower(result)
}
