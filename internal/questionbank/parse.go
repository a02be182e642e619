package questionbank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"arcquiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

var requiredFields = []string{"id", "question", "options", "answer_index", "explanation"}

// Parse decodes and validates a JSON array of question entries.
// Either every entry is valid or an error is returned; there is no partial bank.
func Parse(data []byte) ([]domain.Question, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBankMalformed, err)
	}

	questions := make([]domain.Question, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, raw := range entries {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &domain.ValidationError{Index: i, Field: "entry", Reason: "must be an object"}
		}
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return nil, &domain.ValidationError{Index: i, Field: "entry", Reason: err.Error()}
		}

		q, err := parseEntry(i, entry)
		if err != nil {
			return nil, err
		}
		if first, ok := seen[q.ID]; ok {
			return nil, &domain.ValidationError{
				Index:      i,
				QuestionID: q.ID,
				Field:      "id",
				Reason:     fmt.Sprintf("duplicate of entry %d", first),
			}
		}
		seen[q.ID] = i
		questions = append(questions, q)
	}
	return questions, nil
}

// ParseYAML accepts the same entries written as a YAML sequence.
func ParseYAML(data []byte) ([]domain.Question, error) {
	var entries []any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBankMalformed, err)
	}
	if entries == nil {
		entries = []any{}
	}
	for i, entry := range entries {
		entries[i] = keepFloats(entry)
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBankMalformed, err)
	}
	return Parse(raw)
}

// keepFloats rewrites YAML floats so whole values like 1.0 still read as
// non-integers once converted to JSON.
func keepFloats(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v
		}
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return json.Number(s)
	case map[string]any:
		for k, item := range v {
			v[k] = keepFloats(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = keepFloats(item)
		}
		return v
	default:
		return v
	}
}

func parseEntry(index int, entry map[string]json.RawMessage) (domain.Question, error) {
	for _, field := range requiredFields {
		if raw, ok := entry[field]; !ok || isNull(raw) {
			return domain.Question{}, &domain.ValidationError{
				Index:      index,
				QuestionID: looseID(entry),
				Field:      field,
				Reason:     "missing required field",
			}
		}
	}

	id, err := decodeID(entry["id"])
	if err != nil {
		return domain.Question{}, &domain.ValidationError{Index: index, Field: "id", Reason: err.Error()}
	}
	invalid := func(field, reason string) error {
		return &domain.ValidationError{Index: index, QuestionID: id, Field: field, Reason: reason}
	}

	q := domain.Question{ID: id}
	if err := json.Unmarshal(entry["question"], &q.Text); err != nil {
		return domain.Question{}, invalid("question", "must be a string")
	}
	if err := json.Unmarshal(entry["explanation"], &q.Explanation); err != nil {
		return domain.Question{}, invalid("explanation", "must be a string")
	}

	var options []string
	if err := json.Unmarshal(entry["options"], &options); err != nil {
		return domain.Question{}, invalid("options", "must be a list of strings")
	}
	if len(options) != domain.OptionCount {
		return domain.Question{}, invalid("options", fmt.Sprintf("must have exactly %d options, got %d", domain.OptionCount, len(options)))
	}
	copy(q.Options[:], options)

	answer, err := decodeInt(entry["answer_index"])
	if err != nil {
		return domain.Question{}, invalid("answer_index", "must be an integer")
	}
	if answer < 0 || answer >= domain.OptionCount {
		return domain.Question{}, invalid("answer_index", fmt.Sprintf("out of range [0,%d]: %d", domain.OptionCount-1, answer))
	}
	q.AnswerIndex = int(answer)
	return q, nil
}

// decodeID accepts a string or an integer id and normalizes it to text.
func decodeID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("must not be empty")
		}
		return s, nil
	}
	n, err := decodeInt(raw)
	if err != nil {
		return "", fmt.Errorf("must be a string or an integer")
	}
	return strconv.FormatInt(n, 10), nil
}

func decodeInt(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("not a number")
	}
	return num.Int64()
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// looseID is used for error messages about entries that may lack a valid id.
func looseID(entry map[string]json.RawMessage) string {
	raw, ok := entry["id"]
	if !ok || isNull(raw) {
		return ""
	}
	id, err := decodeID(raw)
	if err != nil {
		return ""
	}
	return id
}
