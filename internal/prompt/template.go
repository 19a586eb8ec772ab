package prompt

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultPersona       = "당신은 구직자들을 돕는 채용 정보 전문가 'JOBIS(자비스)'입니다."
	DefaultDeclinePhrase = "죄송합니다. 해당 기업이나 내용에 대한 정보가 데이터에 없습니다."
	DefaultContextLabel  = "[관련 기업 정보]"
	DefaultQuestionLabel = "질문"
	DefaultAnswerLabel   = "답변"
)

// Slots are the per-request values substituted into a Template.
type Slots struct {
	Context  string
	Question string
}

// Template is the fixed instruction sent with every generation request.
// The grounding and decline rules are always rendered; Instructions only
// adds to them.
type Template struct {
	Persona       string
	Instructions  []string
	DeclinePhrase string
	ContextLabel  string
	QuestionLabel string
	AnswerLabel   string
}

func Default() Template {
	return Template{
		Persona: DefaultPersona,
		Instructions: []string{
			"답변은 보기 좋게 마크다운 형태로 정리해주세요.",
		},
		DeclinePhrase: DefaultDeclinePhrase,
		ContextLabel:  DefaultContextLabel,
		QuestionLabel: DefaultQuestionLabel,
		AnswerLabel:   DefaultAnswerLabel,
	}
}

func (t Template) Validate() error {
	var errs []error
	if strings.TrimSpace(t.Persona) == "" {
		errs = append(errs, errors.New("prompt: persona is empty"))
	}
	if strings.TrimSpace(t.DeclinePhrase) == "" {
		errs = append(errs, errors.New("prompt: decline phrase is empty"))
	}
	if strings.TrimSpace(t.ContextLabel) == "" || strings.TrimSpace(t.QuestionLabel) == "" || strings.TrimSpace(t.AnswerLabel) == "" {
		errs = append(errs, errors.New("prompt: section labels must be set"))
	}
	return errors.Join(errs...)
}

// Render fills the template. Context and question are inserted verbatim.
func (t Template) Render(s Slots) string {
	var b strings.Builder
	b.WriteString(t.Persona)
	b.WriteString("\n")
	fmt.Fprintf(&b, "아래 제공된 %s만을 바탕으로 질문에 대해 친절하고 정확하게 답변해주세요.\n\n", t.ContextLabel)

	rules := []string{
		fmt.Sprintf("정보가 %s에 없다면 정확히 \"%s\"라고만 답하세요.", t.ContextLabel, t.DeclinePhrase),
		"문맥에 없는 내용을 지어내지 마세요.",
	}
	rules = append(rules, t.Instructions...)
	for _, r := range rules {
		if strings.TrimSpace(r) == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s:\n%s\n\n", t.ContextLabel, s.Context)
	fmt.Fprintf(&b, "%s: %s\n\n", t.QuestionLabel, s.Question)
	fmt.Fprintf(&b, "%s:", t.AnswerLabel)
	return b.String()
}
