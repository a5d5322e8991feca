package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quiz-gauntlet/internal/answer"
	"quiz-gauntlet/internal/domain"
)

// questionFile is the on-disk question bank format. Authors may write the
// plain answer; it is replaced by its digest at load time.
type questionFile struct {
	Sets []struct {
		Key       string         `yaml:"key"`
		Questions []fileQuestion `yaml:"questions"`
	} `yaml:"sets"`
}

type fileQuestion struct {
	ID            string   `yaml:"id"`
	Prompt        string   `yaml:"question"`
	DisplayType   string   `yaml:"displayType"`
	SelectionType string   `yaml:"selectionType"`
	Choices       []string `yaml:"choices"`
	Answer        []string `yaml:"answer"`
	AnswerHash    string   `yaml:"answerHash"`
}

// LoadQuestionFile reads a YAML question bank into a StaticQuestionLoader.
func LoadQuestionFile(path string) (*StaticQuestionLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var f questionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question file: %w", err)
	}

	sets := make([]domain.QuestionSet, 0, len(f.Sets))
	for _, s := range f.Sets {
		set := domain.QuestionSet{Key: s.Key, Questions: make([]domain.Question, 0, len(s.Questions))}
		for _, fq := range s.Questions {
			q, err := fq.question()
			if err != nil {
				return nil, fmt.Errorf("set %s question %s: %w", s.Key, fq.ID, err)
			}
			set.Questions = append(set.Questions, q)
		}
		sets = append(sets, set)
	}
	return NewStaticQuestionLoader(sets...), nil
}

func (fq fileQuestion) question() (domain.Question, error) {
	if len(fq.Choices) > 4 {
		return domain.Question{}, fmt.Errorf("at most 4 choices, got %d", len(fq.Choices))
	}
	q := domain.Question{
		ID:            fq.ID,
		Prompt:        fq.Prompt,
		DisplayType:   domain.DisplayType(fq.DisplayType),
		SelectionType: domain.SelectionType(fq.SelectionType),
		AnswerDigest:  fq.AnswerHash,
	}
	if q.DisplayType == "" {
		q.DisplayType = domain.DisplayText
	}
	if q.SelectionType == "" {
		q.SelectionType = domain.SelectionSingle
	}
	slots := []*string{&q.ChoiceA, &q.ChoiceB, &q.ChoiceC, &q.ChoiceD}
	for i, c := range fq.Choices {
		*slots[i] = c
	}

	if q.AnswerDigest == "" {
		a := domain.SingleAnswer("")
		if len(fq.Answer) > 0 {
			a = domain.SingleAnswer(fq.Answer[0])
		}
		if q.IsMultiple() {
			a = domain.MultiAnswer(fq.Answer...)
		}
		digest, err := answer.DigestAnswer(a)
		if err != nil {
			return domain.Question{}, err
		}
		q.AnswerDigest = digest
	}
	return q, nil
}
