package domain

import (
	"slices"
	"time"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// Letters labels option slots in display order.
var Letters = [OptionCount]string{"A", "B", "C", "D"}

// Question is an immutable entry of the question bank.
type Question struct {
	ID          string              `json:"id"`
	Text        string              `json:"question"`
	Options     [OptionCount]string `json:"options"`
	AnswerIndex int                 `json:"answer_index"`
	Explanation string              `json:"explanation"`
}

// ShuffledQuestion is a session-local copy of a Question with permuted options.
// Origin[i] is the index in the source question of the option now at slot i.
type ShuffledQuestion struct {
	ID          string              `json:"id"`
	Text        string              `json:"question"`
	Options     [OptionCount]string `json:"options"`
	AnswerIndex int                 `json:"answer_index"`
	Explanation string              `json:"explanation"`
	Origin      [OptionCount]int    `json:"origin"`
}

// CorrectLetter returns the letter of the correct option.
func (q ShuffledQuestion) CorrectLetter() string {
	return Letters[q.AnswerIndex]
}

// AnswerRecord captures one answered question.
type AnswerRecord struct {
	QuestionID  string `json:"id"`
	Question    string `json:"question"`
	Chosen      string `json:"chosen"`
	Correct     string `json:"correct"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

// Session is one quiz attempt.
type Session struct {
	Questions  []ShuffledQuestion `json:"questions"`
	Position   int                `json:"idx"`
	Score      int                `json:"score"`
	Answers    []AnswerRecord     `json:"answers"`
	StartedAt  time.Time          `json:"started_at"`
	ScoreSaved bool               `json:"score_saved"`
}

// Total is the number of questions in the attempt.
func (s *Session) Total() int {
	return len(s.Questions)
}

// Complete reports whether every question has been answered.
func (s *Session) Complete() bool {
	return s.Position >= len(s.Questions)
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"` // error, warning, success
	Message string `json:"message"`
}

// Visitor is the per-visitor state held by session storage.
type Visitor struct {
	ID         string   `json:"id"`
	PlayerName string   `json:"player_name"`
	Amount     int      `json:"amount"`
	Quiz       *Session `json:"quiz,omitempty"`
	Flashes    []Flash  `json:"flashes,omitempty"`
}

// Clone returns a deep copy so stores never share slices with callers.
func (v Visitor) Clone() Visitor {
	out := v
	out.Flashes = slices.Clone(v.Flashes)
	if v.Quiz != nil {
		quiz := *v.Quiz
		quiz.Questions = slices.Clone(v.Quiz.Questions)
		quiz.Answers = slices.Clone(v.Quiz.Answers)
		out.Quiz = &quiz
	}
	return out
}

// LeaderboardEntry is a persisted result of one completed quiz.
type LeaderboardEntry struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Percent   float64   `json:"percent"`
	CreatedAt time.Time `json:"createdAt"`
}

// Leaderboard is an ordered snapshot of the top entries.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Grade is the band assigned to a final score.
type Grade struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
