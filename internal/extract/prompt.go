package extract

import "strings"

// ComponentFormat is the literal example payload shown to the model.
const ComponentFormat = `{
    "pages": [{
        "screen_id": "template_styles",
        "components": [
            { "type": "title", "title": "Title Here" },
            { "type": "paragraph", "title": "", "text": "Paragraph here..." }
        ]
    }]
}`

// BuildPagePrompt creates the classification prompt for one page. The page
// text and the flattened table text are embedded as is.
func BuildPagePrompt(pageText, tableText string) string {
	var sb strings.Builder
	sb.WriteString("Given the page text:\n")
	sb.WriteString(pageText)
	sb.WriteString("\n\nAnd extracted table content:\n")
	sb.WriteString(tableText)
	sb.WriteString("\n\nGenerate JSON with titles, paragraphs, and disclaimers. ")
	sb.WriteString("Exclude any content that appears in the table to avoid duplication.\n\n")
	sb.WriteString("Format:\n")
	sb.WriteString(ComponentFormat)
	sb.WriteString("\n")
	return sb.String()
}
