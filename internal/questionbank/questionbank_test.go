package questionbank_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"arcquiz-service/internal/domain"
	"arcquiz-service/internal/questionbank"
)

const validBank = `[
  {"id": 1, "question": "2 + 2?", "options": ["3", "4", "5", "6"], "answer_index": 1, "explanation": "basic"},
  {"id": "q-2", "question": "Capital of France?", "options": ["Paris", "Rome", "Lima", "Oslo"], "answer_index": 0, "explanation": "geo"}
]`

func TestParseValidBank(t *testing.T) {
	questions, err := questionbank.Parse([]byte(validBank))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].ID != "1" || questions[1].ID != "q-2" {
		t.Fatalf("unexpected ids %q %q", questions[0].ID, questions[1].ID)
	}
	if questions[0].Options[questions[0].AnswerIndex] != "4" {
		t.Fatalf("expected correct option 4, got %q", questions[0].Options[questions[0].AnswerIndex])
	}
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	cases := []struct {
		name  string
		bank  string
		field string
	}{
		{"missing explanation", `[{"id": 1, "question": "q", "options": ["a","b","c","d"], "answer_index": 0}]`, "explanation"},
		{"missing id", `[{"question": "q", "options": ["a","b","c","d"], "answer_index": 0, "explanation": "e"}]`, "id"},
		{"null question", `[{"id": 1, "question": null, "options": ["a","b","c","d"], "answer_index": 0, "explanation": "e"}]`, "question"},
		{"three options", `[{"id": 1, "question": "q", "options": ["a","b","c"], "answer_index": 0, "explanation": "e"}]`, "options"},
		{"options not a list", `[{"id": 1, "question": "q", "options": "abcd", "answer_index": 0, "explanation": "e"}]`, "options"},
		{"index too large", `[{"id": 1, "question": "q", "options": ["a","b","c","d"], "answer_index": 4, "explanation": "e"}]`, "answer_index"},
		{"negative index", `[{"id": 1, "question": "q", "options": ["a","b","c","d"], "answer_index": -1, "explanation": "e"}]`, "answer_index"},
		{"fractional index", `[{"id": 1, "question": "q", "options": ["a","b","c","d"], "answer_index": 1.5, "explanation": "e"}]`, "answer_index"},
		{"string index", `[{"id": 1, "question": "q", "options": ["a","b","c","d"], "answer_index": "1", "explanation": "e"}]`, "answer_index"},
		{"number entry", `[1]`, "entry"},
		{"null entry", `[null]`, "entry"},
		{"duplicate id", `[
			{"id": 1, "question": "q", "options": ["a","b","c","d"], "answer_index": 0, "explanation": "e"},
			{"id": "1", "question": "q", "options": ["a","b","c","d"], "answer_index": 0, "explanation": "e"}]`, "id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			questions, err := questionbank.Parse([]byte(tc.bank))
			if questions != nil {
				t.Fatalf("expected no questions on failure, got %d", len(questions))
			}
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q (%v)", tc.field, verr.Field, err)
			}
		})
	}
}

func TestParseRejectsMalformedBank(t *testing.T) {
	for _, bank := range []string{`{"not": "array"}`, `[{"id": 1,`, `"questions"`, ``} {
		questions, err := questionbank.Parse([]byte(bank))
		if questions != nil || !errors.Is(err, domain.ErrBankMalformed) {
			t.Fatalf("bank %q: expected ErrBankMalformed, got %v (%d questions)", bank, err, len(questions))
		}
	}

	if _, err := questionbank.ParseYAML([]byte("not: a list")); !errors.Is(err, domain.ErrBankMalformed) {
		t.Fatalf("expected ErrBankMalformed for yaml mapping, got %v", err)
	}
}

func TestParseReportsOffendingEntry(t *testing.T) {
	bank := `[
	  {"id": 1, "question": "q", "options": ["a","b","c","d"], "answer_index": 0, "explanation": "e"},
	  {"id": 7, "question": "q", "options": ["a","b"], "answer_index": 0, "explanation": "e"}
	]`
	_, err := questionbank.Parse([]byte(bank))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Index != 1 || verr.QuestionID != "7" {
		t.Fatalf("expected entry 1 / id 7, got %+v", verr)
	}
}

func TestParseYAML(t *testing.T) {
	bank := `
- id: 1
  question: "2 + 2?"
  options: ["3", "4", "5", "6"]
  answer_index: 1
  explanation: basic
`
	questions, err := questionbank.ParseYAML([]byte(bank))
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != "1" || questions[0].AnswerIndex != 1 {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestParseYAMLRejectsWholeFloatIndex(t *testing.T) {
	bank := `
- id: 1
  question: "2 + 2?"
  options: ["3", "4", "5", "6"]
  answer_index: 1.0
  explanation: basic
`
	_, err := questionbank.ParseYAML([]byte(bank))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "answer_index" {
		t.Fatalf("expected answer_index ValidationError, got %v", err)
	}

	_, err = questionbank.ParseYAML([]byte("- 1\n"))
	if !errors.As(err, &verr) || verr.Field != "entry" || verr.Index != 0 {
		t.Fatalf("expected entry ValidationError for scalar item, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.json")
	if err := os.WriteFile(path, []byte(validBank), 0o600); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	questions, err := questionbank.NewFileSource(path).LoadQuestions(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}

func TestFileSourceMissing(t *testing.T) {
	src := questionbank.NewFileSource(filepath.Join(t.TempDir(), "nope.json"))
	_, err := src.LoadQuestions(context.Background())
	if !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}

func TestEmbeddedBankIsValid(t *testing.T) {
	questions, err := questionbank.NewEmbeddedSource().LoadQuestions(context.Background())
	if err != nil {
		t.Fatalf("embedded bank: %v", err)
	}
	if len(questions) < 10 {
		t.Fatalf("expected at least 10 embedded questions, got %d", len(questions))
	}
}
