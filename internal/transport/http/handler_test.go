package http

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arcquiz-service/internal/app"
	"arcquiz-service/internal/domain"
	"arcquiz-service/internal/infra/memory"
	"arcquiz-service/internal/questionbank"
)

func TestQuizFlowSavesScoreOnce(t *testing.T) {
	server, board := newTestServer(t, sampleBank())
	client := newClient(t)

	body := get(t, client, server.URL+"/")
	if !strings.Contains(body, "3 questions available") {
		t.Fatalf("expected availability on landing page, got:\n%s", body)
	}

	body = post(t, client, server.URL+"/start", url.Values{"name": {"Ann"}, "amount": {"2"}})
	if !strings.Contains(body, "question 1 of 2") {
		t.Fatalf("expected first question, got:\n%s", body)
	}

	body = post(t, client, server.URL+"/answer", url.Values{"choice": {"Z"}})
	if !strings.Contains(body, "Select a valid option") || !strings.Contains(body, "question 1 of 2") {
		t.Fatalf("expected re-prompt of the same question, got:\n%s", body)
	}

	_ = post(t, client, server.URL+"/answer", url.Values{"choice": {"a"}})
	body = post(t, client, server.URL+"/answer", url.Values{"choice": {"B"}})
	if !strings.Contains(body, "Ann scored") {
		t.Fatalf("expected result page after last answer, got:\n%s", body)
	}

	// refreshing the result page must not save again
	_ = get(t, client, server.URL+"/result")
	if board.Len() != 1 {
		t.Fatalf("expected one leaderboard entry, got %d", board.Len())
	}

	body = get(t, client, server.URL+"/highscores")
	if !strings.Contains(body, "Ann") {
		t.Fatalf("expected Ann on highscores, got:\n%s", body)
	}
}

func TestQuizWithoutSessionRedirectsHome(t *testing.T) {
	server, _ := newTestServer(t, sampleBank())
	client := newClient(t)

	body := get(t, client, server.URL+"/quiz")
	if !strings.Contains(body, "No active quiz") || !strings.Contains(body, "Start quiz") {
		t.Fatalf("expected landing page with notice, got:\n%s", body)
	}
}

func TestStartReportsAdjustedAmount(t *testing.T) {
	server, _ := newTestServer(t, sampleBank())
	client := newClient(t)

	body := post(t, client, server.URL+"/start", url.Values{"name": {"Ben"}, "amount": {"50"}})
	if !strings.Contains(body, "Amount adjusted to 3") || !strings.Contains(body, "question 1 of 3") {
		t.Fatalf("expected adjusted amount notice, got:\n%s", body)
	}
}

func TestResetStartsNewQuiz(t *testing.T) {
	server, _ := newTestServer(t, sampleBank())
	client := newClient(t)

	_ = post(t, client, server.URL+"/start", url.Values{"name": {"Cid"}, "amount": {"2"}})
	_ = post(t, client, server.URL+"/answer", url.Values{"choice": {"A"}})

	body := post(t, client, server.URL+"/reset", nil)
	if !strings.Contains(body, "New quiz started") || !strings.Contains(body, "question 1 of 2") {
		t.Fatalf("expected fresh quiz after reset, got:\n%s", body)
	}
}

func TestStartWithoutQuestions(t *testing.T) {
	server, _ := newTestServer(t, nil)
	client := newClient(t)

	body := post(t, client, server.URL+"/start", url.Values{"name": {"Dee"}, "amount": {"2"}})
	if !strings.Contains(body, "No questions available") {
		t.Fatalf("expected unavailable notice, got:\n%s", body)
	}
}

func TestBrokenBankFileShowsNoQuestions(t *testing.T) {
	banks := map[string]string{
		"number entry":   `[1]`,
		"not a list":     `{"not": "array"}`,
		"truncated json": `[{"id": 1,`,
	}
	for name, bank := range banks {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "questions.json")
			if err := os.WriteFile(path, []byte(bank), 0o600); err != nil {
				t.Fatalf("write bank: %v", err)
			}
			server, _ := newTestServerWithSource(t, questionbank.NewFileSource(path))
			client := newClient(t)

			body := post(t, client, server.URL+"/start", url.Values{"name": {"Fay"}, "amount": {"2"}})
			if !strings.Contains(body, "No questions available") {
				t.Fatalf("expected unavailable notice, got:\n%s", body)
			}
			body = post(t, client, server.URL+"/reset", nil)
			if !strings.Contains(body, "No questions available") {
				t.Fatalf("expected unavailable notice after reset, got:\n%s", body)
			}
		})
	}
}

func newTestServer(t *testing.T, bank []domain.Question) (*httptest.Server, *memory.Leaderboard) {
	t.Helper()
	return newTestServerWithSource(t, staticSource(bank))
}

func newTestServerWithSource(t *testing.T, source app.QuestionSource) (*httptest.Server, *memory.Leaderboard) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	board := memory.NewLeaderboard()
	service := app.NewQuizService(source, memory.NewSessionStore(), board, logger,
		app.WithRand(rand.New(rand.NewSource(3))),
	)

	handler, err := NewHandler(service, logger, Options{})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /ws/leaderboard", NewWSHandler(service, logger).ServeWS)

	server := httptest.NewServer(Logging(logger)(mux))
	t.Cleanup(server.Close)
	return server, board
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func get(t *testing.T, client *http.Client, u string) string {
	t.Helper()
	resp, err := client.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	return readBody(t, resp)
}

func post(t *testing.T, client *http.Client, u string, form url.Values) string {
	t.Helper()
	resp, err := client.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	return readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d for %s", resp.StatusCode, resp.Request.URL)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

type staticSource []domain.Question

func (s staticSource) LoadQuestions(context.Context) ([]domain.Question, error) {
	return s, nil
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: "1", Text: "What is 2 + 2?", Options: [4]string{"3", "4", "5", "6"}, AnswerIndex: 1, Explanation: "math"},
		{ID: "2", Text: "Largest ocean?", Options: [4]string{"Atlantic", "Indian", "Arctic", "Pacific"}, AnswerIndex: 3, Explanation: "geo"},
		{ID: "3", Text: "Bits in a byte?", Options: [4]string{"4", "8", "16", "32"}, AnswerIndex: 1, Explanation: "eight"},
	}
}
