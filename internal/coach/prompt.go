package coach

import (
	"fmt"
	"strings"

	"github.com/leancoach/coach-backend/model"
)

const persona = `You are a Lean coach helping a team work through an A3 problem-solving document.
Coach with questions before answers. Push for facts observed at the gemba over opinions,
for a measurable target condition, and for root causes that are verified rather than assumed.
Keep replies short and concrete. Never invent data about the team's process.`

// BuildSystemInstruction renders the persona and the document context.
// Empty sections are omitted; the focus section, if any, is marked.
func BuildSystemInstruction(doc *model.A3Document, sections []model.A3Section, focus model.SectionType) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "A3 document: %q (status: %s)\n", doc.Title, doc.Status)

	byType := make(map[model.SectionType]string, len(sections))
	for _, s := range sections {
		byType[s.SectionType] = strings.TrimSpace(s.Content)
	}

	written := 0
	for _, spec := range model.SectionCatalog {
		content := byType[spec.Type]
		if content == "" {
			continue
		}
		written++
		marker := ""
		if spec.Type == focus {
			marker = " [FOCUS]"
		}
		fmt.Fprintf(&b, "\n## %s%s\n%s\n", spec.Title, marker, content)
	}
	if written == 0 {
		b.WriteString("\nThe document is still empty.\n")
	}

	if spec, ok := model.LookupSection(focus); ok {
		fmt.Fprintf(&b, "\nThe user is working on the %q section. Keep the discussion on it.\n", spec.Title)
	}
	return b.String()
}

// BuildTurns converts stored history plus the new message into model turns
func BuildTurns(history []model.ChatMessage, message string) []Turn {
	turns := make([]Turn, 0, len(history)+1)
	for _, m := range history {
		role := RoleUser
		if m.Role == model.ChatRoleAssistant {
			role = RoleModel
		}
		turns = append(turns, Turn{Role: role, Text: m.Content})
	}
	return append(turns, Turn{Role: RoleUser, Text: message})
}
