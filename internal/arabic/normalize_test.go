package arabic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips diacritics",
			input: "مَا حُكْمُ الطَّلَاقِ؟",
			want:  "ما حكم الطلاق؟",
		},
		{
			name:  "removes tatweel",
			input: "القـــانون",
			want:  "القانون",
		},
		{
			name:  "collapses whitespace",
			input: "ما   حكم \n\t الفصل",
			want:  "ما حكم الفصل",
		},
		{
			name:  "trims leading and trailing space",
			input: "  سؤال  ",
			want:  "سؤال",
		},
		{
			name:  "plain text unchanged",
			input: "ما هي شروط الحضانة؟",
			want:  "ما هي شروط الحضانة؟",
		},
		{
			name:  "mixed language preserved",
			input: "ما معنى force majeure في العقود؟",
			want:  "ما معنى force majeure في العقود؟",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: " \n\t ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}
