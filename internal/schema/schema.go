package schema

import (
	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/querycost/internal/language"
)

// RootType returns the root definition for the operation kind, or nil when the
// schema does not declare one.
func RootType(s *language.Schema, op language.Operation) *language.Definition {
	if s == nil {
		return nil
	}
	switch op {
	case language.Query, "":
		return s.Query
	case language.Mutation:
		return s.Mutation
	case language.Subscription:
		return s.Subscription
	}
	return nil
}

// IsComposite reports whether fields can be selected on def.
func IsComposite(def *language.Definition) bool {
	if def == nil {
		return false
	}
	switch def.Kind {
	case language.Object, language.Interface, language.Union:
		return true
	}
	return false
}

// IsAbstract reports whether def is an interface or a union.
func IsAbstract(def *language.Definition) bool {
	return def != nil && (def.Kind == language.Interface || def.Kind == language.Union)
}

// NamedType returns the definition named by t after unwrapping lists and
// non-null markers.
func NamedType(s *language.Schema, t *language.Type) *language.Definition {
	if s == nil || t == nil {
		return nil
	}
	return s.Types[t.Name()]
}

// TypeByName returns the named definition or nil.
func TypeByName(s *language.Schema, name string) *language.Definition {
	if s == nil || name == "" {
		return nil
	}
	return s.Types[name]
}

// PossibleTypeNames lists the object types a selection on def can resolve to.
func PossibleTypeNames(s *language.Schema, def *language.Definition) []string {
	if s == nil || def == nil {
		return nil
	}
	if def.Kind == language.Object {
		return []string{def.Name}
	}
	possible := s.GetPossibleTypes(def)
	names := make([]string, 0, len(possible))
	for _, p := range possible {
		names = append(names, p.Name)
	}
	return names
}

var (
	typenameField = &language.FieldDefinition{
		Name: "__typename",
		Type: ast.NonNullNamedType("String", nil),
	}
	schemaField = &language.FieldDefinition{
		Name: "__schema",
		Type: ast.NonNullNamedType("__Schema", nil),
	}
	typeField = &language.FieldDefinition{
		Name: "__type",
		Type: ast.NamedType("__Type", nil),
		Arguments: language.ArgumentDefinitionList{
			{Name: "name", Type: ast.NonNullNamedType("String", nil)},
		},
	}
)

// FieldDefinition resolves name on the composite type parent. Meta fields are
// answered for every composite type; __schema and __type only on the query root.
func FieldDefinition(s *language.Schema, parent *language.Definition, name string) *language.FieldDefinition {
	if !IsComposite(parent) {
		return nil
	}
	switch name {
	case "__typename":
		return typenameField
	case "__schema", "__type":
		if s == nil || s.Query == nil || s.Query.Name != parent.Name {
			return nil
		}
		if name == "__schema" {
			return schemaField
		}
		return typeField
	}
	return parent.Fields.ForName(name)
}
