package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRetriever_Search(t *testing.T) {
	r := NewStaticRetriever()

	chunks, err := r.Search(context.Background(), "هل يحق للمؤجر إخلاء المستأجر قبل نهاية عقد الايجار؟", 4)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Contains(t, chunks[0].Text, "إخلاء")
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].Score, chunks[i-1].Score)
	}
}

func TestStaticRetriever_NoMatches(t *testing.T) {
	r := NewStaticRetriever()

	chunks, err := r.Search(context.Background(), "سؤال عام بلا مصطلحات", 4)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestStaticRetriever_TopKLimit(t *testing.T) {
	r := NewStaticRetrieverWith(map[string][]string{
		"نص أول":  {"عقد"},
		"نص ثانٍ": {"عقد"},
		"نص ثالث": {"عقد"},
	})

	chunks, err := r.Search(context.Background(), "سؤال عن عقد", 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	chunks, err = r.Search(context.Background(), "سؤال عن عقد", 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestStaticRetriever_CancelledContext(t *testing.T) {
	r := NewStaticRetriever()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Search(ctx, "عقد", 4)
	assert.ErrorIs(t, err, context.Canceled)
}
