package schema

import (
	"strings"

	"github.com/vektah/gqlparser/v2/formatter"

	language "github.com/hanpama/querycost/internal/language"
)

// Render produces SDL for the user-defined part of s, cost annotations
// included. Types and directives are sorted by name.
func Render(s *language.Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	formatter.NewFormatter(&b, formatter.WithIndent("  ")).FormatSchema(s)
	return strings.TrimRight(b.String(), "\n") + "\n"
}
