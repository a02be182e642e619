package cli

import (
	"context"
	"errors"
	"fmt"

	"arcquiz-service/internal/app"
	"arcquiz-service/internal/config"
	"arcquiz-service/internal/domain"
	"arcquiz-service/internal/infra/postgres"
	"arcquiz-service/internal/questionbank"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewQuestionsCmd groups question bank maintenance commands.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Inspect and import question banks",
	}
	cmd.AddCommand(newValidateCmd(configPath))
	cmd.AddCommand(newImportCmd(configPath))
	return cmd
}

func newValidateCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a JSON or YAML question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := bankSource(*configPath, file)
			if err != nil {
				return err
			}
			bank, err := source.LoadQuestions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d questions OK\n", len(bank))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "bank file (defaults to quiz.questions_path, then the built-in bank)")
	return cmd
}

func newImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a question bank in Postgres under quiz.bank_name",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			source, err := bankSource(*configPath, file)
			if err != nil {
				return err
			}
			bank, err := source.LoadQuestions(cmd.Context())
			if err != nil {
				return err
			}

			logger := newLogger()
			if err := runMigrations(cmd.Context(), cfg, logger); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := postgres.NewQuestionSource(pool, cfg.Quiz.BankName).Store(cmd.Context(), bank); err != nil {
				return err
			}
			logger.Info("question bank imported", "bank", cfg.Quiz.BankName, "questions", len(bank))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "bank file (defaults to quiz.questions_path, then the built-in bank)")
	return cmd
}

func bankSource(configPath, file string) (app.QuestionSource, error) {
	if file != "" {
		return questionbank.NewFileSource(file), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return fileOrEmbedded(cfg), nil
}

func fileOrEmbedded(cfg config.Config) app.QuestionSource {
	if cfg.Quiz.QuestionsPath != "" {
		return questionbank.NewFileSource(cfg.Quiz.QuestionsPath)
	}
	return questionbank.NewEmbeddedSource()
}

// seedBank stores the fallback bank when Postgres has none under the configured name.
func seedBank(ctx context.Context, pg *postgres.QuestionSource, fallback app.QuestionSource) (bool, error) {
	if _, err := pg.LoadQuestions(ctx); !errors.Is(err, domain.ErrBankNotFound) {
		return false, err
	}
	bank, err := fallback.LoadQuestions(ctx)
	if err != nil {
		return false, err
	}
	return true, pg.Store(ctx, bank)
}
