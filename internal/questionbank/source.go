package questionbank

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"arcquiz-service/internal/domain"
)

//go:embed data/questions.json
var defaultBank []byte

// FileSource reads the bank from a JSON or YAML file on every call.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// LoadQuestions reads and validates the file. A missing file matches domain.ErrBankNotFound.
func (s *FileSource) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBankNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// EmbeddedSource serves the bank compiled into the binary.
type EmbeddedSource struct{}

func NewEmbeddedSource() EmbeddedSource {
	return EmbeddedSource{}
}

func (EmbeddedSource) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	return Parse(defaultBank)
}
