// Package retrieval supplies statute context for the generation prompt.
// The static retriever ranks a small built-in corpus by keyword overlap;
// it exists so the pipeline's retrieval path is exercised end to end and
// can be swapped for a vector store behind the same port.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/mizanlegal/mizan/internal/ports"
)

// corpusEntry is one retrievable statute snippet with the terms that
// signal its relevance.
type corpusEntry struct {
	text  string
	terms []string
}

// defaultCorpus covers the most common consumer legal topics. Entries
// are summaries, not verbatim statute text; the generator models are
// instructed to treat them as context, not authority.
var defaultCorpus = []corpusEntry{
	{
		text:  "نظام العمل: لا يجوز فصل العامل دون سبب مشروع، وللعامل المفصول تعسفياً الحق في تعويض يقدر وفق مدة خدمته وأجره.",
		terms: []string{"عمل", "فصل", "تعويض", "موظف", "عامل"},
	},
	{
		text:  "نظام العمل: يستحق العامل مكافأة نهاية الخدمة بواقع أجر نصف شهر عن كل سنة من السنوات الخمس الأولى وأجر شهر عن كل سنة تالية.",
		terms: []string{"مكافأة", "نهاية الخدمة", "استقالة", "راتب"},
	},
	{
		text:  "نظام الأحوال الشخصية: الحضانة حق للمحضون، وتكون للأم ما لم يقضِ القاضي بخلاف ذلك لمصلحة المحضون.",
		terms: []string{"حضانة", "طلاق", "ام", "محضون"},
	},
	{
		text:  "نظام الأحوال الشخصية: النفقة تشمل السكن والمأكل والملبس وما يحتاجه المنفق عليه بالمعروف، وتقدر بحال المنفق يسراً وعسراً.",
		terms: []string{"نفقة", "زواج", "طلاق"},
	},
	{
		text:  "نظام الإيجار: لا يجوز للمؤجر إخلاء المستأجر قبل انتهاء مدة العقد إلا بحكم قضائي أو باتفاق الطرفين.",
		terms: []string{"ايجار", "اخلاء", "مستأجر", "عقار", "مؤجر"},
	},
	{
		text:  "النظام التجاري: إصدار شيك بدون رصيد جريمة يعاقب عليها بالغرامة، ويحق للمستفيد المطالبة بقيمة الشيك والتعويض.",
		terms: []string{"شيك", "رصيد", "تجاري"},
	},
	{
		text:  "نظام الشركات: الشركة ذات المسؤولية المحدودة لا يُسأل الشركاء فيها عن ديونها إلا بقدر حصصهم في رأس المال.",
		terms: []string{"شركة", "مسؤولية", "ديون", "شركاء"},
	},
	{
		text:  "نظام المعاملات المدنية: العقد شريعة المتعاقدين، ولا يجوز نقضه ولا تعديله إلا باتفاق الطرفين أو لأسباب يقررها النظام.",
		terms: []string{"عقد", "اتفاق", "التزام"},
	},
}

// StaticRetriever implements ports.Retriever over an in-memory corpus.
type StaticRetriever struct {
	corpus []corpusEntry
}

// NewStaticRetriever returns a retriever over the built-in corpus.
func NewStaticRetriever() *StaticRetriever {
	return &StaticRetriever{corpus: defaultCorpus}
}

// NewStaticRetrieverWith returns a retriever over caller-supplied
// chunks, each indexed by its terms.
func NewStaticRetrieverWith(entries map[string][]string) *StaticRetriever {
	corpus := make([]corpusEntry, 0, len(entries))
	for text, terms := range entries {
		corpus = append(corpus, corpusEntry{text: text, terms: terms})
	}
	return &StaticRetriever{corpus: corpus}
}

// Search scores each corpus entry by the fraction of its terms present
// in the query and returns the topK best matches, highest score first.
// Entries with no matching term are excluded entirely.
func (r *StaticRetriever) Search(ctx context.Context, query string, topK int) ([]ports.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	var chunks []ports.Chunk
	for _, entry := range r.corpus {
		hits := 0
		for _, term := range entry.terms {
			if strings.Contains(query, term) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		chunks = append(chunks, ports.Chunk{
			Text:  entry.text,
			Score: float64(hits) / float64(len(entry.terms)),
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

var _ ports.Retriever = (*StaticRetriever)(nil)
