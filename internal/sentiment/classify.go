package sentiment

import "strings"

const (
	baseConfidence    = 50 // percent
	confidenceStep    = 10
	maxConfidence     = 95
	neutralConfidence = 0.6
)

// Classifier scores text by counting positive and negative keyword hits.
type Classifier struct {
	lexicon *Lexicon
}

// NewClassifier creates a classifier over lex. A nil lexicon uses DefaultLexicon.
func NewClassifier(lex *Lexicon) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Classifier{lexicon: lex}
}

// Classify scores text in the given language. Each keyword counts once no
// matter how often it appears.
func (c *Classifier) Classify(text string, lang Language) Score {
	lower := strings.ToLower(text)
	ll := c.lexicon.For(lang)

	pos := countPresent(lower, ll.Positive)
	neg := countPresent(lower, ll.Negative)

	switch {
	case pos > neg:
		return Score{Sentiment: Positive, Confidence: confidence(pos - neg)}
	case neg > pos:
		return Score{Sentiment: Negative, Confidence: confidence(neg - pos)}
	default:
		return Score{Sentiment: Neutral, Confidence: neutralConfidence}
	}
}

// confidence works in whole percent so 0.5+0.1*n lands on exact decimals.
func confidence(margin int) float64 {
	pct := baseConfidence + confidenceStep*margin
	if pct > maxConfidence {
		pct = maxConfidence
	}
	return float64(pct) / 100
}

func countPresent(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// Analyzer runs language detection, classification and category detection.
// It holds no mutable state and may be shared freely.
type Analyzer struct {
	lexicon    *Lexicon
	classifier *Classifier
}

// NewAnalyzer creates an analyzer over lex. A nil lexicon uses DefaultLexicon.
func NewAnalyzer(lex *Lexicon) *Analyzer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Analyzer{lexicon: lex, classifier: NewClassifier(lex)}
}

// Analyze classifies one feedback text.
func (a *Analyzer) Analyze(text string) Record {
	lang := DetectLanguage(text)
	score := a.classifier.Classify(text, lang)

	rec := Record{
		Sentiment:  score.Sentiment,
		Confidence: score.Confidence,
		Language:   lang,
	}
	if cat, ok := a.lexicon.DetectCategory(text, lang); ok {
		rec.Category = &cat
	}
	return rec
}

// AnalyzeText is Analyze for optional input; a nil text is ErrInvalidInput.
func (a *Analyzer) AnalyzeText(text *string) (Record, error) {
	if text == nil {
		return Record{}, ErrInvalidInput
	}
	return a.Analyze(*text), nil
}
