package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"arcquiz-service/internal/domain"
)

const (
	defaultPlayerName       = "Player"
	defaultAmountCap        = 10
	defaultLeaderboardLimit = 20
)

// QuestionSource loads the question bank (file, embedded data, database, cache).
type QuestionSource interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// SessionRepository abstracts how visitor state is stored (in-memory, Redis, etc).
// Load returns domain.ErrVisitorNotFound for unknown ids.
type SessionRepository interface {
	Load(ctx context.Context, visitorID string) (domain.Visitor, error)
	Save(ctx context.Context, visitor domain.Visitor) error
	Delete(ctx context.Context, visitorID string) error
}

// LeaderboardRepository is the append-only store of finished attempts.
// Top orders by percent desc, score desc, created_at desc.
type LeaderboardRepository interface {
	Insert(ctx context.Context, entry domain.LeaderboardEntry) error
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// QuizService contains the quiz use cases.
type QuizService struct {
	questions   QuestionSource
	sessions    SessionRepository
	leaderboard LeaderboardRepository
	feed        *LeaderboardFeed
	logger      *slog.Logger

	now              func() time.Time
	defaultAmountCap int
	leaderboardLimit int

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithRand injects the random source used for selection and shuffling.
func WithRand(rnd *rand.Rand) Option {
	return func(s *QuizService) { s.rnd = rnd }
}

// WithClock is mostly useful for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithLeaderboardLimit sets how many entries Leaderboard returns.
func WithLeaderboardLimit(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.leaderboardLimit = n
		}
	}
}

// WithDefaultAmount caps the amount used when the visitor's input is not a number.
func WithDefaultAmount(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.defaultAmountCap = n
		}
	}
}

// WithFeed shares a leaderboard feed between services.
func WithFeed(feed *LeaderboardFeed) Option {
	return func(s *QuizService) { s.feed = feed }
}

func NewQuizService(questions QuestionSource, sessions SessionRepository, leaderboard LeaderboardRepository, logger *slog.Logger, opts ...Option) *QuizService {
	s := &QuizService{
		questions:        questions,
		sessions:         sessions,
		leaderboard:      leaderboard,
		logger:           logger,
		now:              time.Now,
		defaultAmountCap: defaultAmountCap,
		leaderboardLimit: defaultLeaderboardLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.feed == nil {
		s.feed = NewLeaderboardFeed()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// LabeledOption is an answer option with its display letter.
type LabeledOption struct {
	Letter string
	Text   string
}

// QuestionView is what the quiz page renders for the current question.
type QuestionView struct {
	PlayerName string
	Index      int
	Total      int
	QuestionID string
	Text       string
	Options    []LabeledOption
}

// ResultView is the summary of a finished attempt.
type ResultView struct {
	PlayerName string
	Score      int
	Total      int
	Percent    float64
	Grade      domain.Grade
	Answers    []domain.AnswerRecord
}

// StartResult reports how a requested amount was interpreted.
type StartResult struct {
	Amount    int
	Available int
	Reduced   bool
}

// IsBankUnavailable reports whether err means there is no usable question bank.
func IsBankUnavailable(err error) bool {
	var verr *domain.ValidationError
	return errors.Is(err, domain.ErrNoQuestions) ||
		errors.Is(err, domain.ErrBankNotFound) ||
		errors.Is(err, domain.ErrBankMalformed) ||
		errors.As(err, &verr)
}

// Available returns the bank size, or false when the bank cannot be loaded.
func (s *QuizService) Available(ctx context.Context) (int, bool) {
	bank, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		s.logger.Warn("question bank unavailable", "error", err)
		return 0, false
	}
	return len(bank), len(bank) > 0
}

// Start records the player's name and amount and begins a fresh attempt.
func (s *QuizService) Start(ctx context.Context, visitorID, name, rawAmount string) (StartResult, error) {
	bank, err := s.loadBank(ctx)
	if err != nil {
		return StartResult{}, err
	}

	available := len(bank)
	amount, reduced := ClampAmount(rawAmount, min(s.defaultAmountCap, available), 1, available)

	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return StartResult{}, err
	}
	visitor.PlayerName = strings.TrimSpace(name)
	if visitor.PlayerName == "" {
		visitor.PlayerName = defaultPlayerName
	}
	visitor.Amount = amount

	quiz, err := s.build(bank, amount)
	if err != nil {
		return StartResult{}, err
	}
	visitor.Quiz = &quiz
	if err := s.sessions.Save(ctx, visitor); err != nil {
		return StartResult{}, fmt.Errorf("save visitor: %w", err)
	}

	s.logger.Info("quiz started", "visitor", visitorID, "amount", amount, "available", available)
	return StartResult{Amount: amount, Available: available, Reduced: reduced}, nil
}

// Reset begins a new attempt keeping the stored name and amount. When the
// bank is unavailable the current attempt is discarded and the error returned.
func (s *QuizService) Reset(ctx context.Context, visitorID string) (StartResult, error) {
	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return StartResult{}, err
	}

	bank, err := s.loadBank(ctx)
	if err != nil {
		visitor.Quiz = nil
		if saveErr := s.sessions.Save(ctx, visitor); saveErr != nil {
			return StartResult{}, errors.Join(err, fmt.Errorf("save visitor: %w", saveErr))
		}
		return StartResult{}, err
	}

	available := len(bank)
	amount := visitor.Amount
	if amount <= 0 {
		amount = min(s.defaultAmountCap, available)
	}
	amount = clamp(amount, 1, available)
	if visitor.PlayerName == "" {
		visitor.PlayerName = defaultPlayerName
	}
	visitor.Amount = amount

	quiz, err := s.build(bank, amount)
	if err != nil {
		return StartResult{}, err
	}
	visitor.Quiz = &quiz
	if err := s.sessions.Save(ctx, visitor); err != nil {
		return StartResult{}, fmt.Errorf("save visitor: %w", err)
	}
	return StartResult{Amount: amount, Available: available}, nil
}

// Current returns the question the visitor should answer next.
func (s *QuizService) Current(ctx context.Context, visitorID string) (QuestionView, Outcome, error) {
	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return QuestionView{}, 0, err
	}
	quiz := visitor.Quiz
	if quiz == nil {
		return QuestionView{}, OutcomeNoSession, nil
	}
	if quiz.Complete() {
		return QuestionView{}, OutcomeComplete, nil
	}

	q := quiz.Questions[quiz.Position]
	options := make([]LabeledOption, 0, len(q.Options))
	for i, text := range q.Options {
		options = append(options, LabeledOption{Letter: domain.Letters[i], Text: text})
	}
	return QuestionView{
		PlayerName: visitor.PlayerName,
		Index:      quiz.Position,
		Total:      quiz.Total(),
		QuestionID: q.ID,
		Text:       q.Text,
		Options:    options,
	}, OutcomeReady, nil
}

// Answer submits choice for the current question. Visitor state is only
// written when the answer is accepted.
func (s *QuizService) Answer(ctx context.Context, visitorID, choice string) (Outcome, error) {
	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return 0, err
	}

	outcome := SubmitAnswer(visitor.Quiz, choice)
	if outcome != OutcomeAccepted {
		return outcome, nil
	}
	if err := s.sessions.Save(ctx, visitor); err != nil {
		return 0, fmt.Errorf("save visitor: %w", err)
	}
	return outcome, nil
}

// Result finalizes a completed attempt and returns its summary. The first
// call writes one leaderboard entry; later calls only read.
func (s *QuizService) Result(ctx context.Context, visitorID string) (ResultView, Outcome, error) {
	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return ResultView{}, 0, err
	}
	quiz := visitor.Quiz
	if quiz == nil {
		return ResultView{}, OutcomeNoSession, nil
	}
	if !quiz.Complete() {
		return ResultView{}, OutcomeInProgress, nil
	}

	name := visitor.PlayerName
	if name == "" {
		name = defaultPlayerName
	}
	total := quiz.Total()
	percent := Percent(quiz.Score, total)

	if !quiz.ScoreSaved {
		entry := domain.LeaderboardEntry{
			Name:      name,
			Score:     quiz.Score,
			Total:     total,
			Percent:   percent,
			CreatedAt: s.now().UTC(),
		}
		// The flag is stored before the insert: a failure between the two
		// loses the entry instead of writing it twice.
		quiz.ScoreSaved = true
		if err := s.sessions.Save(ctx, visitor); err != nil {
			return ResultView{}, 0, fmt.Errorf("save visitor: %w", err)
		}
		if err := s.leaderboard.Insert(ctx, entry); err != nil {
			quiz.ScoreSaved = false
			if saveErr := s.sessions.Save(ctx, visitor); saveErr != nil {
				s.logger.Error("score lost after failed insert", "visitor", visitorID, "error", saveErr)
			}
			return ResultView{}, 0, fmt.Errorf("insert leaderboard entry: %w", err)
		}
		s.logger.Info("score saved", "visitor", visitorID, "score", quiz.Score, "total", total)
		s.publishLeaderboard(ctx)
	}

	return ResultView{
		PlayerName: name,
		Score:      quiz.Score,
		Total:      total,
		Percent:    percent,
		Grade:      Grade(quiz.Score, total),
		Answers:    quiz.Answers,
	}, OutcomeComplete, nil
}

// Leaderboard returns the top entries.
func (s *QuizService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	entries, err := s.leaderboard.Top(ctx, s.leaderboardLimit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list leaderboard: %w", err)
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now()}, nil
}

// Subscribe returns a channel that receives leaderboard snapshots after
// every saved score. The caller must invoke the returned cancel function.
func (s *QuizService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(initial)
	return ch, cancel, nil
}

// Flash queues a message for the visitor's next page.
func (s *QuizService) Flash(ctx context.Context, visitorID, kind, message string) error {
	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return err
	}
	visitor.Flashes = append(visitor.Flashes, domain.Flash{Kind: kind, Message: message})
	return s.sessions.Save(ctx, visitor)
}

// TakeFlashes drains the visitor's pending messages.
func (s *QuizService) TakeFlashes(ctx context.Context, visitorID string) ([]domain.Flash, error) {
	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if len(visitor.Flashes) == 0 {
		return nil, nil
	}
	flashes := visitor.Flashes
	visitor.Flashes = nil
	if err := s.sessions.Save(ctx, visitor); err != nil {
		return nil, err
	}
	return flashes, nil
}

// PlayerName returns the stored name, or the default when none was set.
func (s *QuizService) PlayerName(ctx context.Context, visitorID string) (string, error) {
	visitor, err := s.visitor(ctx, visitorID)
	if err != nil {
		return "", err
	}
	if visitor.PlayerName == "" {
		return defaultPlayerName, nil
	}
	return visitor.PlayerName, nil
}

func (s *QuizService) loadBank(ctx context.Context) ([]domain.Question, error) {
	bank, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(bank) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return bank, nil
}

func (s *QuizService) build(bank []domain.Question, amount int) (domain.Session, error) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return BuildSession(bank, amount, s.rnd, s.now().UTC())
}

func (s *QuizService) visitor(ctx context.Context, visitorID string) (domain.Visitor, error) {
	visitor, err := s.sessions.Load(ctx, visitorID)
	if errors.Is(err, domain.ErrVisitorNotFound) {
		return domain.Visitor{ID: visitorID}, nil
	}
	if err != nil {
		return domain.Visitor{}, fmt.Errorf("load visitor: %w", err)
	}
	return visitor, nil
}

func (s *QuizService) publishLeaderboard(ctx context.Context) {
	lb, err := s.Leaderboard(ctx)
	if err != nil {
		s.logger.Warn("leaderboard refresh failed", "error", err)
		return
	}
	s.feed.Publish(lb)
}
