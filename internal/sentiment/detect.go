package sentiment

import "strings"

const (
	ethiopicFirst = 0x1200
	ethiopicLast  = 0x137F
)

// DetectLanguage returns Amharic if any rune falls in the Ethiopic block,
// English otherwise.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if r >= ethiopicFirst && r <= ethiopicLast {
			return Amharic
		}
	}
	return English
}

// DetectCategory returns the first category, in lexicon order, whose keywords
// appear in text. The second result is false when nothing matched.
func (l *Lexicon) DetectCategory(text string, lang Language) (Category, bool) {
	lower := strings.ToLower(text)
	for _, ck := range l.For(lang).Categories {
		for _, kw := range ck.Keywords {
			if strings.Contains(lower, kw) {
				return ck.Category, true
			}
		}
	}
	return "", false
}
