package services

import (
	"html"
	"regexp"
	"strings"

	"viola-chatbot/models"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	markdownBold = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// BulletsToHTML groups consecutive lines starting with "* " into a <ul>
// list and wraps every other non-blank line in <p>. Text is escaped;
// markdown links and bold are the only markup kept.
func BulletsToHTML(text string) string {
	var out []string
	inList := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "* ") {
			if !inList {
				out = append(out, "<ul>")
				inList = true
			}
			out = append(out, "<li>"+renderInline(strings.TrimSpace(trimmed[2:]))+"</li>")
			continue
		}

		if inList {
			out = append(out, "</ul>")
			inList = false
		}
		if trimmed != "" {
			out = append(out, "<p>"+renderInline(trimmed)+"</p>")
		}
	}
	if inList {
		out = append(out, "</ul>")
	}

	return strings.Join(out, "\n")
}

func renderInline(s string) string {
	s = html.EscapeString(s)
	s = markdownLink.ReplaceAllString(s, `<a href="$2" target="_blank">$1</a>`)
	return markdownBold.ReplaceAllString(s, `<b>$1</b>`)
}

// FormatExchange wraps the echoed question and the answer HTML in the
// display markup used by the chat page.
func FormatExchange(question, answerHTML string) string {
	q := strings.TrimSpace(strings.ReplaceAll(html.EscapeString(question), "\n", "<br>"))
	return "<b><span style='color:#127247;'>Fråga:</span></b><br>" + q + "<br><br>" +
		"<b><span style='color:#127247;'>Svar:</span></b><br>" + answerHTML
}

var cannedMarkers = []string{
	"det vet jag inte",
	"jag kan bara svara på frågor som rör",
	"det framgår inte",
	"jag heter viola",
}

// IsCannedAnswer reports whether text is one of the fixed fallback,
// refusal or identity answers.
func IsCannedAnswer(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range cannedMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var topicLinks = []struct {
	keyword string
	link    models.ReadMore
}{
	{"bostadsbidrag", models.ReadMore{Label: "Läs mer om bostadsbidrag", URL: "https://www.forsakringskassan.se/privatperson/arbetssokande/bostadsbidrag"}},
	{"sjukpenning", models.ReadMore{Label: "Läs mer om sjukpenning", URL: "https://www.forsakringskassan.se/privatpers/sjuk"}},
	{"föräldrapenning", models.ReadMore{Label: "Läs mer om föräldrapenning", URL: "https://www.forsakringskassan.se/privatperson/foralder/foraldrapenning"}},
}

// ReadMoreLink picks a topic link from the question keywords, or the agency
// home page. Empty and canned answers get no link.
func ReadMoreLink(question string, answer Answer) *models.ReadMore {
	if answer.Text == "" || answer.Kind != KindRetrieval || IsCannedAnswer(answer.Text) {
		return nil
	}

	q := strings.ToLower(question)
	for _, t := range topicLinks {
		if strings.Contains(q, t.keyword) {
			link := t.link
			return &link
		}
	}
	return &models.ReadMore{Label: "forsakringskassan.se", URL: "https://www.forsakringskassan.se"}
}
