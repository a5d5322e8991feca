package domain

import "errors"

var (
	// ErrEmptyAnswer is returned when an answer with no value reaches the hasher.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrNoQuestions is returned when the question source yields an empty set.
	ErrNoQuestions = errors.New("no questions available")
	// ErrQuestionsUnavailable wraps failures of the remote question source.
	ErrQuestionsUnavailable = errors.New("questions unavailable")
	// ErrNoActiveQuestion is returned when an answer arrives while no question is active.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrSessionFinished is returned when a finished session is driven further.
	ErrSessionFinished = errors.New("session already finished")
	// ErrUnknownChoice indicates a selection that is not one of the question's choices.
	ErrUnknownChoice = errors.New("choice not found")
	// ErrRunNotFound is returned when no active run exists for an owner.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidNickname is returned when a nickname fails validation.
	ErrInvalidNickname = errors.New("invalid nickname")
	// ErrNicknameRequired is returned when play starts without a nickname.
	ErrNicknameRequired = errors.New("nickname not set")
	// ErrLocked is returned when a level has not been unlocked yet.
	ErrLocked = errors.New("level locked")
	// ErrIncomplete is returned when a standard-mode run is submitted with unanswered questions.
	ErrIncomplete = errors.New("not all questions answered")
	// ErrQuestionSetNotFound is returned by question loaders for unknown set keys.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrNotFound is returned by key-value stores for missing keys.
	ErrNotFound = errors.New("not found")
)
