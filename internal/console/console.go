package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"sheet-quiz/internal/app"
	"sheet-quiz/internal/domain"

	"go.uber.org/zap"
)

var marks = map[domain.Classification]string{
	domain.CorrectAndPicked: "[x] correct",
	domain.CorrectNotPicked: "[ ] correct",
	domain.WrongAndPicked:   "[x] wrong",
	domain.NeutralNotPicked: "[ ]",
}

// Presenter plays one session on a terminal. Lines starting with ':' are
// commands (:review, :back, :restart, :quit); anything else is input for the
// current screen.
type Presenter struct {
	session *app.Session
	in      *bufio.Scanner
	out     io.Writer
	log     *zap.Logger
}

func NewPresenter(session *app.Session, in io.Reader, out io.Writer, log *zap.Logger) *Presenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Presenter{session: session, in: bufio.NewScanner(in), out: out, log: log}
}

// Run draws the current screen and feeds input to the session until the
// input ends, :quit is typed or ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		view := p.session.View()
		p.render(view)

		line, ok := p.prompt(promptFor(view.Screen))
		if !ok {
			return p.in.Err()
		}

		var err error
		if strings.HasPrefix(line, ":") {
			var quit bool
			quit, err = p.command(line)
			if quit {
				return nil
			}
		} else {
			err = p.input(ctx, view.Screen, line)
		}
		if err != nil {
			p.log.Debug("input rejected", zap.String("screen", string(view.Screen)), zap.Error(err))
			fmt.Fprintf(p.out, "! %s\n", app.UserMessage(err))
		}
	}
}

func (p *Presenter) command(line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case ":quit", ":q":
		return true, nil
	case ":restart":
		p.session.Restart()
		return false, nil
	case ":review":
		return false, p.session.ShowReview()
	case ":back":
		return false, p.session.HideReview()
	default:
		return false, fmt.Errorf("unknown command %q", line)
	}
}

func (p *Presenter) input(ctx context.Context, screen domain.Screen, line string) error {
	switch screen {
	case domain.ScreenLogin:
		email, ok := p.prompt("Email: ")
		if !ok {
			return p.in.Err()
		}
		return p.session.Login(ctx, line, email)
	case domain.ScreenInstructions:
		return p.session.Begin(ctx)
	case domain.ScreenQuestion:
		return p.session.Answer(ctx, ParseSelection(line))
	default:
		return domain.ErrInvalidTransition
	}
}

func (p *Presenter) prompt(text string) (string, bool) {
	fmt.Fprint(p.out, text)
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func promptFor(screen domain.Screen) string {
	switch screen {
	case domain.ScreenLogin:
		return "Name: "
	case domain.ScreenInstructions:
		return "Press Enter to start: "
	case domain.ScreenQuestion:
		return "Your answer (e.g. A,C): "
	case domain.ScreenResult:
		return "Type :review to see your answers, :restart or :quit: "
	default:
		return "Type :back, :restart or :quit: "
	}
}

func (p *Presenter) render(view app.ViewModel) {
	w := p.out
	switch view.Screen {
	case domain.ScreenLogin:
		fmt.Fprintln(w, "== Quiz ==")
	case domain.ScreenInstructions:
		fmt.Fprintf(w, "Welcome, %s\n%s\n", view.Name, view.Instructions)
	case domain.ScreenQuestion:
		q := view.Question
		fmt.Fprintf(w, "\nQuestion %d of %d\n%s\n", q.Number, q.Total, q.Text)
		for _, opt := range q.Options {
			fmt.Fprintf(w, "  %s) %s\n", opt.Label, opt.Text)
		}
	case domain.ScreenResult:
		fmt.Fprintf(w, "\nYour score: %s\n", view.Result.Text)
	case domain.ScreenReview:
		r := view.Review
		fmt.Fprintf(w, "\n%s\n", r.Summary)
		for _, item := range r.Items {
			verdict := "incorrect"
			if item.Correct {
				verdict = "correct"
			}
			fmt.Fprintf(w, "%d. %s (%s)\n", item.Number, item.Text, verdict)
			for _, opt := range item.Options {
				fmt.Fprintf(w, "   %s) %s %s\n", opt.Label, opt.Text, marks[opt.Class])
			}
		}
	}
}

// ParseSelection reads labels separated by commas or spaces, e.g. "a, C" or "B D".
func ParseSelection(line string) []domain.Label {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';' || r == '\t'
	})
	labels := make([]domain.Label, 0, len(fields))
	for _, f := range fields {
		if l := domain.ParseLabel(f); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
