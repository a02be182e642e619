package app

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"arcquiz-service/internal/domain"
)

// Outcome is the control-flow result of a session operation. Only
// OutcomeAccepted and OutcomeReady carry data; the rest tell the caller
// where to send the visitor.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeReady
	OutcomeNoSession
	OutcomeComplete
	OutcomeInProgress
	OutcomeInvalidChoice
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeReady:
		return "ready"
	case OutcomeNoSession:
		return "no_session"
	case OutcomeComplete:
		return "complete"
	case OutcomeInProgress:
		return "in_progress"
	case OutcomeInvalidChoice:
		return "invalid_choice"
	default:
		return "unknown"
	}
}

// ClampAmount parses an untrusted requested amount. Non-numeric input yields
// def; numbers are clamped into [lo, hi]. reduced is true when a number above
// hi was cut down.
func ClampAmount(raw string, def, lo, hi int) (amount int, reduced bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def, false
	}
	return clamp(n, lo, hi), n > hi
}

func clamp(n, lo, hi int) int {
	if n > hi {
		n = hi
	}
	if n < lo {
		n = lo
	}
	return n
}

// BuildSession selects amount questions uniformly at random and shuffles the
// options of each. The bank is not modified.
func BuildSession(bank []domain.Question, amount int, rnd *rand.Rand, now time.Time) (domain.Session, error) {
	if len(bank) == 0 {
		return domain.Session{}, domain.ErrNoQuestions
	}
	amount = clamp(amount, 1, len(bank))

	pool := make([]domain.Question, len(bank))
	copy(pool, bank)
	rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	selected := make([]domain.ShuffledQuestion, 0, amount)
	for _, q := range pool[:amount] {
		selected = append(selected, ShuffleQuestion(q, rnd))
	}

	return domain.Session{
		Questions: selected,
		Answers:   []domain.AnswerRecord{},
		StartedAt: now,
	}, nil
}

// ShuffleQuestion permutes the options of q and remaps the correct index.
func ShuffleQuestion(q domain.Question, rnd *rand.Rand) domain.ShuffledQuestion {
	out := domain.ShuffledQuestion{
		ID:          q.ID,
		Text:        q.Text,
		Explanation: q.Explanation,
	}
	for slot, from := range rnd.Perm(domain.OptionCount) {
		out.Options[slot] = q.Options[from]
		out.Origin[slot] = from
		if from == q.AnswerIndex {
			out.AnswerIndex = slot
		}
	}
	return out
}

// SubmitAnswer records choice against the current question of s. The session
// is only mutated when OutcomeAccepted is returned.
func SubmitAnswer(s *domain.Session, choice string) Outcome {
	if s == nil {
		return OutcomeNoSession
	}
	if s.Complete() {
		return OutcomeComplete
	}

	chosen := strings.ToUpper(strings.TrimSpace(choice))
	index := letterIndex(chosen)
	if index < 0 {
		return OutcomeInvalidChoice
	}

	q := s.Questions[s.Position]
	correct := index == q.AnswerIndex
	if correct {
		s.Score++
	}
	s.Answers = append(s.Answers, domain.AnswerRecord{
		QuestionID:  q.ID,
		Question:    q.Text,
		Chosen:      chosen,
		Correct:     q.CorrectLetter(),
		IsCorrect:   correct,
		Explanation: q.Explanation,
	})
	s.Position++
	return OutcomeAccepted
}

func letterIndex(letter string) int {
	for i, l := range domain.Letters {
		if l == letter {
			return i
		}
	}
	return -1
}
