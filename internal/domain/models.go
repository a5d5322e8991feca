package domain

import "time"

// SelectionType describes how a question is answered.
type SelectionType string

const (
	SelectionSingle   SelectionType = "single"
	SelectionMultiple SelectionType = "multiple"
	SelectionInput    SelectionType = "input"
)

// DisplayType describes whether the prompt is text or an image reference.
type DisplayType string

const (
	DisplayText  DisplayType = "text"
	DisplayImage DisplayType = "image"
)

// Question is immutable once fetched. The correct answer is only ever known as a digest.
type Question struct {
	ID            string        `json:"id"`
	Prompt        string        `json:"question"`
	DisplayType   DisplayType   `json:"displayType,omitempty"`
	SelectionType SelectionType `json:"selectionType"`
	ChoiceA       string        `json:"choiceA,omitempty"`
	ChoiceB       string        `json:"choiceB,omitempty"`
	ChoiceC       string        `json:"choiceC,omitempty"`
	ChoiceD       string        `json:"choiceD,omitempty"`
	AnswerDigest  string        `json:"answerHash,omitempty"`
}

// Choices returns the non-empty choices in display order.
func (q Question) Choices() []string {
	out := make([]string, 0, 4)
	for _, c := range []string{q.ChoiceA, q.ChoiceB, q.ChoiceC, q.ChoiceD} {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// IsMultiple reports whether the question accepts several choices.
func (q Question) IsMultiple() bool {
	return q.SelectionType == SelectionMultiple
}

// HasChoice reports whether choice is one of the question's choices.
func (q Question) HasChoice(choice string) bool {
	for _, c := range q.Choices() {
		if c == choice {
			return true
		}
	}
	return false
}

// QuestionView is the client-facing projection of a question; it never carries the digest.
type QuestionView struct {
	ID            string        `json:"id"`
	Prompt        string        `json:"question"`
	DisplayType   DisplayType   `json:"displayType,omitempty"`
	SelectionType SelectionType `json:"selectionType"`
	Choices       []string      `json:"choices,omitempty"`
}

// View strips the answer digest.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:            q.ID,
		Prompt:        q.Prompt,
		DisplayType:   q.DisplayType,
		SelectionType: q.SelectionType,
		Choices:       q.Choices(),
	}
}

// QuestionSet is an ordered, fixed list of questions for one session.
type QuestionSet struct {
	Key       string     `json:"key"`
	Questions []Question `json:"questions"`
}

// ExtraSetKey names the extra-stage question set.
const ExtraSetKey = "extra"

// LevelSetKey names the question set of a genre/level pair.
func LevelSetKey(genre, level string) string {
	return genre + "/" + level
}

// Answer is a submitted answer: one value, or a set of values for multiple-select.
type Answer struct {
	Values   []string
	Multiple bool
}

// SingleAnswer builds an answer for single-select and input questions.
func SingleAnswer(v string) Answer {
	return Answer{Values: []string{v}}
}

// MultiAnswer builds an answer for multiple-select questions.
func MultiAnswer(vs ...string) Answer {
	return Answer{Values: append([]string(nil), vs...), Multiple: true}
}

// Empty reports whether the answer carries nothing to judge.
func (a Answer) Empty() bool {
	if len(a.Values) == 0 {
		return true
	}
	if !a.Multiple && a.Values[0] == "" {
		return true
	}
	return false
}

// Outcome is the lifecycle state of an extra-stage session.
type Outcome string

const (
	OutcomeLoading    Outcome = "loading"
	OutcomeInProgress Outcome = "in-progress"
	OutcomePassed     Outcome = "passed"
	OutcomeFailed     Outcome = "failed"
)

// Terminal reports whether the outcome can no longer change.
func (o Outcome) Terminal() bool {
	return o == OutcomePassed || o == OutcomeFailed
}

// ExtraStageResult is the final state of an extra-stage run.
type ExtraStageResult struct {
	Outcome      Outcome       `json:"outcome"`
	ReachedIndex int           `json:"reachedIndex"`
	CorrectCount int           `json:"correctCount"`
	Total        int           `json:"total"`
	Elapsed      time.Duration `json:"elapsed"`
	TimedOut     bool          `json:"timedOut"`
}

// Perfect reports a run where every question was cleared.
func (r ExtraStageResult) Perfect() bool {
	return r.Outcome == OutcomePassed && r.CorrectCount == r.Total && r.Total > 0
}

// BestScore is the locally persisted best extra-stage run for this device.
type BestScore struct {
	CorrectCount  int   `json:"correctCount"`
	ElapsedTimeMs int64 `json:"elapsedTimeMs"`
}

// Better reports whether b is strictly better than other: more correct answers,
// or the same count in less time.
func (b BestScore) Better(other BestScore) bool {
	if b.CorrectCount != other.CorrectCount {
		return b.CorrectCount > other.CorrectCount
	}
	return b.ElapsedTimeMs < other.ElapsedTimeMs
}

// CertificateMetadata is stored per passed level and gates unlocking.
type CertificateMetadata struct {
	Nickname  string `json:"nickname"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// ScoreSubmission is sent to the remote API when a player registers a best score.
type ScoreSubmission struct {
	BrowserID      string `json:"browserId"`
	Nickname       string `json:"nickname"`
	CorrectCount   int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Genre          string `json:"genre"`
	ElapsedTimeMs  int64  `json:"elapsedTimeMs"`
}

// Judgment is the remote verdict for a standard-mode batch submission.
type Judgment struct {
	Results      []bool        `json:"results"`
	WrongAnswers []WrongAnswer `json:"wrongAnswers"`
}

// CorrectCount counts true verdicts.
func (j Judgment) CorrectCount() int {
	n := 0
	for _, ok := range j.Results {
		if ok {
			n++
		}
	}
	return n
}

// WrongAnswer is review material returned for a missed question.
type WrongAnswer struct {
	QuestionNumber int    `json:"questionNumber"`
	Question       string `json:"question"`
	UserAnswer     string `json:"userAnswer"`
	HintText       string `json:"hintText,omitempty"`
	HintURL        string `json:"hintUrl,omitempty"`
}

// LeaderboardEntry is one row of the remote top-challengers board.
type LeaderboardEntry struct {
	Nickname  string  `json:"nickname"`
	Score     int     `json:"score"`
	ClearTime float64 `json:"clearTime"`
	Date      string  `json:"date"`
}

// HallOfFameEntry is one player who cleared the extra stage.
type HallOfFameEntry struct {
	Nickname       string `json:"nickname"`
	Time           int64  `json:"time"`
	CompletionDate string `json:"completionDate"`
}
