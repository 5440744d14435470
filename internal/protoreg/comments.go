package protoreg

import (
	"strings"

	"github.com/jhump/protoreflect/v2/protobuilder"
)

// comment turns desc into a leading comment. Blank lines stay blank so the
// printed file carries no trailing whitespace.
func comment(desc string) protobuilder.Comments {
	desc = strings.TrimRight(desc, "\n")
	if desc == "" {
		return protobuilder.Comments{}
	}
	var b strings.Builder
	for _, line := range strings.Split(desc, "\n") {
		if line != "" {
			b.WriteByte(' ')
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return protobuilder.Comments{LeadingComment: b.String()}
}
