package cli

import (
	"context"
	"os"

	"sheet-quiz/internal/console"

	"github.com/spf13/cobra"
)

// NewPlayCmd runs one quiz session on the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Take the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath)
		},
	}
}

func runPlay(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	session := rt.newSession()
	return console.NewPresenter(session, os.Stdin, os.Stdout, log.Named("console")).Run(ctx)
}
