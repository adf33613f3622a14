// Package classify assigns a coarse legal-topic label to a question so
// the generation prompt can use domain-specific framing.
package classify

import "strings"

// Topic labels returned by the classifier. Labels are Arabic because
// they are embedded verbatim in the generation prompt.
const (
	TopicFamily     = "قانون الأسرة"
	TopicLabor      = "قانون العمل"
	TopicCommercial = "القانون التجاري"
	TopicCriminal   = "القانون الجنائي"
	TopicRealEstate = "القانون العقاري"
	TopicGeneral    = ""
)

// topicKeywords maps each topic to the stems that signal it. Matching
// is substring-based over normalized text, which is enough for routing
// a prompt; this is framing, not legal analysis.
var topicKeywords = map[string][]string{
	TopicFamily:     {"طلاق", "زواج", "حضانة", "نفقة", "ميراث", "وصاية", "خلع"},
	TopicLabor:      {"عمل", "موظف", "راتب", "اجازة", "فصل تعسفي", "استقالة", "مكافأة نهاية الخدمة"},
	TopicCommercial: {"شركة", "تجاري", "عقد بيع", "افلاس", "شيك", "سجل تجاري", "علامة تجارية"},
	TopicCriminal:   {"جريمة", "سرقة", "اعتداء", "عقوبة", "حبس", "غرامة", "تزوير"},
	TopicRealEstate: {"عقار", "ايجار", "ملكية", "مستأجر", "اخلاء", "رهن عقاري"},
}

// KeywordClassifier implements ports.Classifier with keyword matching.
// Confidence grows with the number of distinct keyword hits and is
// capped at 1.
type KeywordClassifier struct{}

// New returns a keyword-based topic classifier.
func New() *KeywordClassifier { return &KeywordClassifier{} }

// Classify returns the topic with the most keyword hits. Zero hits
// yields the general topic at zero confidence; ties resolve to the
// first topic found, which is acceptable for prompt framing.
func (c *KeywordClassifier) Classify(query string) (string, float64) {
	bestTopic := TopicGeneral
	bestHits := 0

	for topic, keywords := range topicKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(query, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestTopic, bestHits = topic, hits
		}
	}

	if bestHits == 0 {
		return TopicGeneral, 0
	}
	confidence := 0.5 + 0.25*float64(bestHits-1)
	if confidence > 1 {
		confidence = 1
	}
	return bestTopic, confidence
}
