package records

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/notary/internal/picc"
	"github.com/JaimeStill/notary/pkg/canonical"
)

const (
	titleMax         = 80
	confidencePrefix = "confidence:"
)

// Draft is a record ready to be written.
type Draft struct {
	Title     string
	Body      string
	Hash      canonical.Digest
	Labels    []string
	Content   picc.Content
	Canonical []byte
}

// Label returns the bare 16-hex hash label.
func (d *Draft) Label() string {
	return d.Hash.Label()
}

// NewDraft renders content into a record draft tagged for later lookup.
func NewDraft(content picc.Content, digest canonical.Digest, canonicalForm []byte) *Draft {
	return &Draft{
		Title:     title(content.Decision.Question),
		Body:      body(content, digest, canonicalForm),
		Hash:      digest,
		Labels:    Labels(content, digest),
		Content:   content,
		Canonical: canonicalForm,
	}
}

// Labels returns the classification labels applied to a new record.
func Labels(content picc.Content, digest canonical.Digest) []string {
	return []string{
		"picc",
		strings.ToLower(content.SchemaVersion),
		LabelPrefix + digest.Label(),
		confidencePrefix + strings.ToLower(string(content.Decision.Confidence)),
	}
}

func title(question string) string {
	runes := []rune(strings.TrimSpace(question))
	if len(runes) > titleMax {
		return "[PICC] " + string(runes[:titleMax-1]) + "…"
	}
	return "[PICC] " + string(runes)
}

func body(content picc.Content, digest canonical.Digest, canonicalForm []byte) string {
	d := content.Decision
	var b strings.Builder

	fmt.Fprintf(&b, "## Question\n\n%s\n\n", d.Question)
	fmt.Fprintf(&b, "## Conclusion\n\n%s\n\n**Confidence:** %s\n\n", d.Conclusion, d.Confidence)

	b.WriteString("## Premises\n\n")
	for i, p := range d.Premises {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, p.Type, p.Text)
		for _, url := range p.Evidence {
			fmt.Fprintf(&b, "   - <%s>\n", url)
		}
	}
	b.WriteString("\n")

	writeList(&b, "Inferences", d.Inferences)
	writeList(&b, "Contradictions", d.Contradictions)

	fmt.Fprintf(&b, "## Falsifier\n\n%s\n\n", d.Falsifier)

	if m := content.Metadata; m != nil {
		b.WriteString("## Metadata\n\n")
		if m.Actor != "" {
			fmt.Fprintf(&b, "- **Actor:** %s\n", m.Actor)
		}
		if m.Context != "" {
			fmt.Fprintf(&b, "- **Context:** %s\n", m.Context)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "**Hash:** `%s`\n\n", digest)
	fmt.Fprintf(&b, "<details><summary>Canonical form</summary>\n\n```json\n%s\n```\n\n</details>\n", canonicalForm)

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
