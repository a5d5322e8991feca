package app

import (
	"math"
	"sync"
	"time"

	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/logger"
	"quiz-gauntlet/internal/timer"
)

// EventKind names what changed in a run.
type EventKind string

const (
	EventQuestion  EventKind = "question"
	EventTick      EventKind = "tick"
	EventSelection EventKind = "selection"
	EventJudged    EventKind = "judged"
	EventFinished  EventKind = "finished"
	EventAbandoned EventKind = "abandoned"
)

// Event is a render-ready snapshot pushed to subscribers.
type Event struct {
	Kind      EventKind                `json:"kind"`
	RunID     string                   `json:"runId"`
	Index     int                      `json:"index"`
	Total     int                      `json:"total"`
	Question  *domain.QuestionView     `json:"question,omitempty"`
	Duration  int                      `json:"duration,omitempty"`
	Remaining int                      `json:"remaining"`
	Warning   bool                     `json:"warning"`
	Selected  []string                 `json:"selected,omitempty"`
	Correct   bool                     `json:"correct"`
	Result    *domain.ExtraStageResult `json:"result,omitempty"`
}

// ExtraStageRun binds one ExtraStage to its per-question timer and serialises
// every transition. The timer is always stopped before a submission is judged,
// and timer callbacks from an instance that is no longer armed are dropped.
type ExtraStageRun struct {
	id           string
	owner        string
	clock        timer.Clock
	questionTime time.Duration
	warnAt       time.Duration
	log          *logger.Logger
	timer        *timer.Timer

	mu          sync.Mutex
	state       ExtraStage
	abandoned   bool
	done        chan struct{}
	subscribers map[chan Event]struct{}
}

func newExtraStageRun(id, owner string, questions []domain.Question, clock timer.Clock, questionTime, warnAt time.Duration, log *logger.Logger) (*ExtraStageRun, error) {
	state, err := StartExtraStage(questions, clock.Now())
	if err != nil {
		return nil, err
	}
	r := &ExtraStageRun{
		id:           id,
		owner:        owner,
		clock:        clock,
		questionTime: questionTime,
		warnAt:       warnAt,
		log:          log.With("run", id, "owner", owner),
		state:        state,
		done:         make(chan struct{}),
		subscribers:  make(map[chan Event]struct{}),
	}
	r.timer = timer.New(clock,
		timer.WithWarning(warnAt),
		timer.OnTick(r.handleTick),
		timer.OnTimeout(r.handleTimeout),
	)
	return r, nil
}

func (r *ExtraStageRun) ID() string    { return r.id }
func (r *ExtraStageRun) Owner() string { return r.owner }

// Done is closed once the run reaches a terminal outcome or is abandoned.
func (r *ExtraStageRun) Done() <-chan struct{} { return r.done }

// State returns a copy of the current stage.
func (r *ExtraStageRun) State() ExtraStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the final result once the run is terminal.
func (r *ExtraStageRun) Result() (domain.ExtraStageResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Outcome().Terminal() {
		return domain.ExtraStageResult{}, false
	}
	return r.state.Result(), true
}

// begin presents the first question.
func (r *ExtraStageRun) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enterLocked()
}

// Select records a pending choice for the active question.
func (r *ExtraStageRun) Select(choice string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return Event{}, domain.ErrSessionFinished
	}
	next, err := r.state.Select(choice)
	if err != nil {
		return Event{}, err
	}
	r.state = next
	ev := r.baseEventLocked(EventSelection)
	ev.Selected = next.Selected()
	r.broadcastLocked(ev)
	return ev, nil
}

// Confirm submits the pending selection; it is the multi-select confirm action.
func (r *ExtraStageRun) Confirm() (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(r.state.Selection())
}

// Submit judges a for the active question.
func (r *ExtraStageRun) Submit(a domain.Answer) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(a)
}

// Abandon stops the timer and ends the run without an outcome. Safe to call repeatedly.
func (r *ExtraStageRun) Abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timer.Stop()
	if r.abandoned || r.state.Outcome().Terminal() {
		return
	}
	r.abandoned = true
	r.log.Info("extra stage abandoned", "index", r.state.Cursor())
	r.broadcastLocked(r.baseEventLocked(EventAbandoned))
	close(r.done)
}

// Subscribe returns a channel of run events, primed with the current snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (r *ExtraStageRun) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.snapshotLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot describes the run as a subscriber joining now would see it.
func (r *ExtraStageRun) Snapshot() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *ExtraStageRun) submitLocked(a domain.Answer) (Event, error) {
	if r.abandoned {
		return Event{}, domain.ErrSessionFinished
	}
	if _, ok := r.state.Current(); !ok {
		err := domain.ErrNoActiveQuestion
		if r.state.Outcome().Terminal() {
			err = domain.ErrSessionFinished
		}
		r.log.Error("submit without active question", "outcome", r.state.Outcome(), "error", err)
		return Event{}, err
	}
	if a.Empty() {
		return Event{}, domain.ErrEmptyAnswer
	}

	// Invalidate the running instance before judging so a late timeout cannot
	// fail an answer that was already in.
	remaining := r.timer.Remaining()
	r.timer.Stop()

	index := r.state.Cursor()
	next, correct, err := r.state.Submit(a, r.clock.Now())
	if err != nil {
		r.rearmLocked(remaining)
		return Event{}, err
	}
	r.state = next

	judged := r.baseEventLocked(EventJudged)
	judged.Index = index
	judged.Correct = correct
	r.broadcastLocked(judged)
	r.log.Debug("answer judged", "index", index, "correct", correct)

	if next.Outcome() == domain.OutcomeInProgress {
		r.enterLocked()
	} else {
		r.finishLocked()
	}
	return judged, nil
}

func (r *ExtraStageRun) handleTick(tok timer.Token, remaining time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned || tok != r.state.Token() {
		return
	}
	ev := r.baseEventLocked(EventTick)
	ev.Remaining = seconds(remaining)
	ev.Warning = remaining <= r.warnAt
	r.broadcastLocked(ev)
}

func (r *ExtraStageRun) handleTimeout(tok timer.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return
	}
	next, applied := r.state.Timeout(tok, r.clock.Now())
	if !applied {
		r.log.Debug("stale timeout ignored", "token", tok)
		return
	}
	r.state = next
	r.log.Info("question timed out", "index", next.Cursor())
	r.finishLocked()
}

// enterLocked (re)starts the timer for the active question and clears any selection.
func (r *ExtraStageRun) enterLocked() {
	tok := r.timer.Start(r.questionTime)
	r.state = r.state.Arm(tok)
	r.broadcastLocked(r.snapshotLocked())
}

// rearmLocked resumes the countdown after a rejected submission without changing the question.
func (r *ExtraStageRun) rearmLocked(remaining time.Duration) {
	if remaining <= 0 {
		remaining = r.questionTime
	}
	tok := r.timer.Start(remaining)
	r.state = r.state.Arm(tok)
}

func (r *ExtraStageRun) finishLocked() {
	r.timer.Stop()
	res := r.state.Result()
	r.log.Info("extra stage finished",
		"outcome", res.Outcome,
		"correct", res.CorrectCount,
		"total", res.Total,
		"elapsedMs", res.Elapsed.Milliseconds(),
	)
	ev := r.baseEventLocked(EventFinished)
	ev.Result = &res
	r.broadcastLocked(ev)
	close(r.done)
}

func (r *ExtraStageRun) baseEventLocked(kind EventKind) Event {
	return Event{
		Kind:  kind,
		RunID: r.id,
		Index: r.state.Cursor(),
		Total: r.state.Total(),
	}
}

func (r *ExtraStageRun) snapshotLocked() Event {
	if r.state.Outcome().Terminal() {
		res := r.state.Result()
		ev := r.baseEventLocked(EventFinished)
		ev.Result = &res
		return ev
	}
	if r.abandoned {
		return r.baseEventLocked(EventAbandoned)
	}
	ev := r.baseEventLocked(EventQuestion)
	if q, ok := r.state.Current(); ok {
		view := q.View()
		ev.Question = &view
	}
	ev.Duration = seconds(r.questionTime)
	ev.Remaining = seconds(r.timer.Remaining())
	ev.Warning = r.timer.Warning()
	ev.Selected = r.state.Selected()
	return ev
}

func (r *ExtraStageRun) broadcastLocked(ev Event) {
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest queued event so a slow consumer never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
