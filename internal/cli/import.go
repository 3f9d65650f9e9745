package cli

import (
	"fmt"
	"net/http"
	"time"

	"sheet-quiz/internal/config"
	"sheet-quiz/internal/domain"
	"sheet-quiz/internal/infra/postgres"
	"sheet-quiz/internal/infra/sheet"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewImportCmd copies the sheet's questions into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var setID string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the question sheet into the postgres question_sets table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Endpoint == "" || cfg.Postgres.URL == "" {
				return fmt.Errorf("import needs both endpoint and postgres.url")
			}
			if setID == "" {
				setID = cfg.Quiz.QuestionSet
			}

			client := sheet.NewClient(cfg.Endpoint,
				&http.Client{Timeout: config.TTLDuration(cfg.EndpointTimeout, 15*time.Second)},
				log.Named("sheet"))
			rows, err := client.FetchRawQuestions(ctx)
			if err != nil {
				return err
			}
			if len(domain.NormalizeQuestions(rows)) == 0 {
				return domain.ErrEmptySet
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := postgres.StoreQuestionSet(ctx, pool, setID, rows); err != nil {
				return err
			}
			log.Info("question set imported", zap.String("set", setID), zap.Int("rows", len(rows)))
			return nil
		},
	}
	cmd.Flags().StringVar(&setID, "set", "", "question set id (defaults to quiz.question_set)")
	return cmd
}
