package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier(t *testing.T) {
	c := New()

	tests := []struct {
		name          string
		query         string
		wantTopic     string
		minConfidence float64
	}{
		{
			name:          "family law",
			query:         "ما شروط حضانة الأطفال بعد الطلاق؟",
			wantTopic:     TopicFamily,
			minConfidence: 0.75,
		},
		{
			name:          "labor law",
			query:         "هل يحق للموظف المطالبة بتعويض عن الفصل التعسفي؟",
			wantTopic:     TopicLabor,
			minConfidence: 0.5,
		},
		{
			name:          "commercial law",
			query:         "ما جزاء إصدار شيك بدون رصيد على السجل التجاري للشركة؟",
			wantTopic:     TopicCommercial,
			minConfidence: 0.75,
		},
		{
			name:          "real estate",
			query:         "متى يجوز للمؤجر إخلاء المستأجر من العقار؟",
			wantTopic:     TopicRealEstate,
			minConfidence: 0.5,
		},
		{
			name:      "no keywords",
			query:     "ما هو الموقف من هذه المسألة؟",
			wantTopic: TopicGeneral,
		},
		{
			name:      "empty query",
			query:     "",
			wantTopic: TopicGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, confidence := c.Classify(tt.query)
			assert.Equal(t, tt.wantTopic, topic)
			if tt.wantTopic == TopicGeneral {
				assert.Zero(t, confidence)
			} else {
				assert.GreaterOrEqual(t, confidence, tt.minConfidence)
				assert.LessOrEqual(t, confidence, 1.0)
			}
		})
	}
}

func TestKeywordClassifier_ConfidenceCapped(t *testing.T) {
	c := New()

	_, confidence := c.Classify("طلاق زواج حضانة نفقة ميراث وصاية خلع")
	assert.Equal(t, 1.0, confidence)
}
