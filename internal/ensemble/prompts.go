package ensemble

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/mizanlegal/mizan/internal/domain"
	"github.com/mizanlegal/mizan/internal/ports"
)

// Prompt templates are compiled once at package load. Instructional text
// is bilingual: the legal framing is stated in Arabic for the model's
// register, structural instructions in English for reliability across
// providers.

var generationTemplate = template.Must(template.New("generation").Parse(
	`أنت مساعد قانوني متخصص في الأنظمة والقوانين العربية. أجب على السؤال التالي إجابة دقيقة ومفصلة بالاستناد إلى النصوص النظامية ذات الصلة، مع ذكر المواد والأنظمة عند الإمكان.
{{if .Topic}}
مجال السؤال: {{.Topic}}
{{end}}{{if .Context}}
نصوص مرجعية قد تكون ذات صلة:
{{.Context}}
{{end}}
السؤال: {{.Question}}

أجب باللغة العربية الفصحى وبأسلوب قانوني واضح.`))

var judgeTemplate = template.Must(template.New("judge").Parse(
	`You are reviewing {{.Count}} candidate answers to the same Arabic legal question. The answers are labelled by position only.

Question:
{{.Question}}

{{.Answers}}
For each model, extract the single best excerpt: the passage with the most accurate and complete legal content, quoted verbatim. If a model's answer contains nothing worth keeping, use an empty string for its position. Then rate the overall quality of the full set on a scale of 0 to 10.

Respond with only a JSON object in exactly this shape, no other text:
{"excerpts": [{{.Placeholders}}], "overall_score": <0-10>}

The "excerpts" array must contain exactly {{.Count}} strings, one per model, in the same order the models appear above.`))

var synthesisTemplate = template.Must(template.New("synthesis").Parse(
	`فيما يلي مقتطفات مختارة من عدة إجابات قانونية على السؤال نفسه. صُغ منها إجابة واحدة متماسكة باللغة العربية الفصحى وبأسلوب قانوني رصين، مع الحفاظ على كل المحتوى الموضوعي ودمج المقتطفات المتكررة دون تكرار.

السؤال: {{.Question}}

المقتطفات:
{{.Excerpts}}

اكتب الإجابة النهائية فقط.`))

// buildGenerationPrompt renders the shared generator prompt: the fixed
// legal framing, an optional topic label from the classifier, optional
// retrieval context, and the user's question. Every generator receives
// this exact prompt.
func buildGenerationPrompt(question, topic string, chunks []ports.Chunk) (string, error) {
	var ctxText string
	if len(chunks) > 0 {
		var sb strings.Builder
		for i, c := range chunks {
			fmt.Fprintf(&sb, "[%d] %s\n", i+1, strings.TrimSpace(c.Text))
		}
		ctxText = sb.String()
	}

	var buf bytes.Buffer
	err := generationTemplate.Execute(&buf, struct {
		Question string
		Topic    string
		Context  string
	}{Question: question, Topic: topic, Context: ctxText})
	if err != nil {
		return "", fmt.Errorf("failed to execute generation template: %w", err)
	}
	return buf.String(), nil
}

// buildJudgePrompt renders the compare-and-extract prompt over the
// successful generator outputs. Answers are labelled "MODEL 1..N" by
// position; real model names are withheld so judges cannot favor known
// brands.
func buildJudgePrompt(question string, responses []domain.ModelResponse) (string, error) {
	var answers strings.Builder
	placeholders := make([]string, len(responses))
	for i, resp := range responses {
		fmt.Fprintf(&answers, "=== MODEL %d ===\n%s\n\n", i+1, strings.TrimSpace(resp.Text))
		placeholders[i] = fmt.Sprintf("\"<best excerpt from MODEL %d>\"", i+1)
	}

	var buf bytes.Buffer
	err := judgeTemplate.Execute(&buf, struct {
		Question     string
		Count        int
		Answers      string
		Placeholders string
	}{
		Question:     question,
		Count:        len(responses),
		Answers:      answers.String(),
		Placeholders: strings.Join(placeholders, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute judge template: %w", err)
	}
	return buf.String(), nil
}

// buildSynthesisPrompt renders the final rewrite prompt over the pooled
// excerpts.
func buildSynthesisPrompt(question, combinedExcerpts string) (string, error) {
	var buf bytes.Buffer
	err := synthesisTemplate.Execute(&buf, struct {
		Question string
		Excerpts string
	}{Question: question, Excerpts: combinedExcerpts})
	if err != nil {
		return "", fmt.Errorf("failed to execute synthesis template: %w", err)
	}
	return buf.String(), nil
}
