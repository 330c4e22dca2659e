// Package prompt builds the text sent to the answer generator.
package prompt

import (
	"strings"

	"reimburse/internal/domain"
)

const (
	instructions = "You are an expert hospital reimbursement assistant.\n" +
		"Use the following context to answer the user question as accurately as possible.\n" +
		"If you don't know the answer, just say you don't know, don't make it up.\n"

	// ContextSeparator joins retrieved record contents.
	ContextSeparator = "\n\n"
)

// Assemble fills the fixed reimbursement template with the retrieved records
// (in rank order) and the user's question. It is pure and never fails.
func Assemble(retrieved domain.RetrievalResult, query string) domain.Prompt {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\nContext:\n")
	b.WriteString(strings.Join(retrieved.Contents(), ContextSeparator))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:\n")
	return domain.Prompt(b.String())
}
