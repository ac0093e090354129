package sentiment

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon holds the keyword sets used by the classifier and category detector.
// It is read-only after construction and safe to share across goroutines.
type Lexicon struct {
	Languages map[Language]LanguageLexicon `yaml:"languages"`
}

// LanguageLexicon is the keyword configuration for one language.
type LanguageLexicon struct {
	Positive   []string           `yaml:"positive"`
	Negative   []string           `yaml:"negative"`
	Categories []CategoryKeywords `yaml:"categories"`
}

// CategoryKeywords pairs a category with the keywords that trigger it.
type CategoryKeywords struct {
	Category Category `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

var (
	defaultOnce    sync.Once
	defaultLexicon *Lexicon
)

// DefaultLexicon returns the embedded keyword lexicon, parsed once.
func DefaultLexicon() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := ParseLexicon(defaultLexiconYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded lexicon is invalid: %v", err))
		}
		defaultLexicon = lex
	})
	return defaultLexicon
}

// LoadLexicon reads a lexicon YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon parses lexicon YAML and normalizes every keyword to lower case.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	for _, lang := range []Language{English, Amharic} {
		if _, ok := lex.Languages[lang]; !ok {
			return nil, fmt.Errorf("lexicon missing language %q", lang)
		}
	}

	for lang, ll := range lex.Languages {
		ll.Positive = normalize(ll.Positive)
		ll.Negative = normalize(ll.Negative)
		for i := range ll.Categories {
			if ll.Categories[i].Category == "" {
				return nil, fmt.Errorf("lexicon %s: category %d has no name", lang, i)
			}
			ll.Categories[i].Keywords = normalize(ll.Categories[i].Keywords)
		}
		lex.Languages[lang] = ll
	}
	return &lex, nil
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// For returns the keyword sets for lang. Unknown languages fall back to English.
func (l *Lexicon) For(lang Language) LanguageLexicon {
	if ll, ok := l.Languages[lang]; ok {
		return ll
	}
	return l.Languages[English]
}
