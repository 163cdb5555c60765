package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBulletsToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Det framgår inte.", "<p>Det framgår inte.</p>"},
		{"list", "* a\n* b", "<ul>\n<li>a</li>\n<li>b</li>\n</ul>"},
		{"two lists", "* a\nmellan\n* b", "<ul>\n<li>a</li>\n</ul>\n<p>mellan</p>\n<ul>\n<li>b</li>\n</ul>"},
		{"indented bullet", "   * a", "<ul>\n<li>a</li>\n</ul>"},
		{"blank lines dropped", "a\n\n\nb", "<p>a</p>\n<p>b</p>"},
		{"escaped", "<script>x</script>", "<p>&lt;script&gt;x&lt;/script&gt;</p>"},
		{"bold", "**viktigt** nu", "<p><b>viktigt</b> nu</p>"},
		{"link", "besök [forsakringskassan.se](https://www.forsakringskassan.se)", `<p>besök <a href="https://www.forsakringskassan.se" target="_blank">forsakringskassan.se</a></p>`},
		{"star without space", "*a", "<p>*a</p>"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BulletsToHTML(tt.in))
		})
	}
}

func TestFormatExchange(t *testing.T) {
	got := FormatExchange("Rad ett\n<b>två</b>", "<p>Svar</p>")

	assert.Equal(t,
		"<b><span style='color:#127247;'>Fråga:</span></b><br>Rad ett<br>&lt;b&gt;två&lt;/b&gt;<br><br>"+
			"<b><span style='color:#127247;'>Svar:</span></b><br><p>Svar</p>",
		got)
}

func TestIsCannedAnswer(t *testing.T) {
	for _, text := range []string{NotInContextAnswer, OutOfDomainAnswer, IdentityAnswer, UnknownUserNameAnswer, GreetingAnswer} {
		assert.True(t, IsCannedAnswer(text), text)
	}
	assert.False(t, IsCannedAnswer("Sjukpenning betalas ut i högst 364 dagar."))
}

func TestReadMoreLink(t *testing.T) {
	retrieval := Answer{Text: "Du kan få bostadsbidrag.", Kind: KindRetrieval}

	link := ReadMoreLink("Kan jag få Bostadsbidrag?", retrieval)
	if assert.NotNil(t, link) {
		assert.Contains(t, link.URL, "bostadsbidrag")
	}

	link = ReadMoreLink("Hur ansöker jag?", retrieval)
	if assert.NotNil(t, link) {
		assert.Equal(t, "https://www.forsakringskassan.se", link.URL)
	}

	assert.Nil(t, ReadMoreLink("sjukpenning?", Answer{Text: NotInContextAnswer, Kind: KindRetrieval}))
	assert.Nil(t, ReadMoreLink("hej", Answer{Text: GreetingAnswer, Kind: KindGreeting}))
	assert.Nil(t, ReadMoreLink("", Answer{Kind: KindEmpty}))
}
