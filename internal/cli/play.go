package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flashcard-quiz-service/internal/app"
	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/infra/file"
	"flashcard-quiz-service/internal/infra/memory"
)

// NewPlayCmd runs a single quiz session in the terminal.
func NewPlayCmd() *cobra.Command {
	var (
		deckPath      string
		learnerID     string
		showStatement bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a deck in the terminal",
		Long: `Play a deck in the terminal. Type an answer and press enter.
Commands: :next :prev :first :last :reset :results :quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deck := sampleDecks()["sample"]
			if deckPath != "" {
				var err error
				if deck, err = file.ReadDeck(deckPath); err != nil {
					return err
				}
			}
			return play(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), deck, domain.Learner{ID: learnerID}, showStatement)
		},
	}
	cmd.Flags().StringVar(&deckPath, "deck", "", "path to a YAML deck (defaults to a built-in sample)")
	cmd.Flags().StringVar(&learnerID, "learner", "local", "learner id used in the result statement")
	cmd.Flags().BoolVar(&showStatement, "statement", false, "print the result statement as JSON when done")
	return cmd
}

func play(ctx context.Context, in io.Reader, out io.Writer, deck domain.Deck, learner domain.Learner, showStatement bool) error {
	log := memory.NewStatementLog()
	decks := memory.NewDeckRepository(memory.NewStaticDeckLoader(map[string]domain.Deck{deck.ID: deck}), 0)
	service := app.NewQuizService(memory.NewSessionStore(), decks, log)

	session, err := service.Start(ctx, deck.ID, learner, app.NotifierFuncs{
		OnCardEvaluated: func(_ int, correct bool) {
			if correct {
				fmt.Fprintln(out, "  correct")
			} else {
				fmt.Fprintln(out, "  incorrect")
			}
		},
		OnSessionComplete: func(score, maxScore int) {
			fmt.Fprintf(out, "Done: %d/%d\n", score, maxScore)
		},
	})
	if err != nil {
		return err
	}
	defer service.Leave(ctx, session)

	// the terminal shows no images, so every reference resolves without size
	for pos := 0; pos < session.View().Total; pos++ {
		service.ResolveMedia(ctx, session, pos, 0, 0)
	}

	if deck.Title != "" {
		fmt.Fprintln(out, deck.Title)
	}
	printCard(out, session.View())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			return nil
		case ":next", ":n":
			service.Navigate(ctx, session, app.MoveNext)
		case ":prev", ":p":
			service.Navigate(ctx, session, app.MovePrevious)
		case ":first":
			service.Navigate(ctx, session, app.MoveFirst)
		case ":last":
			service.Navigate(ctx, session, app.MoveLast)
		case ":reset":
			service.Reset(ctx, session)
		case ":results":
			rs, _ := service.Results(ctx, session)
			printResults(out, rs)
			continue
		default:
			ev, err := service.Answer(ctx, session, line)
			if errors.Is(err, domain.ErrInputRequired) {
				fmt.Fprintln(out, "  please type an answer first")
				continue
			}
			if err != nil {
				return err
			}
			if !ev.Applied {
				fmt.Fprintf(out, "  already answered with %q\n", ev.Response)
			}
			if ev.Complete {
				rs, st := service.Results(ctx, session)
				printResults(out, rs)
				if showStatement {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(st); err != nil {
						return err
					}
				}
				return nil
			}
			if ev.Applied {
				service.Navigate(ctx, session, app.MoveNext)
			}
		}
		printCard(out, session.View())
	}
	return scanner.Err()
}

func printCard(out io.Writer, v app.View) {
	fmt.Fprintf(out, "[%d/%d] %s\n", v.Position+1, v.Total, v.Card.Question)
	if v.Card.Hint != "" {
		fmt.Fprintf(out, "  hint: %s\n", v.Card.Hint)
	}
	if v.Card.Image != nil {
		fmt.Fprintf(out, "  image: %s\n", v.Card.Image.Path)
	}
}

func printResults(out io.Writer, rs domain.ResultStatement) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tQUESTION\tANSWER\tYOURS\tRESULT")
	for _, c := range rs.Cards {
		result := "-"
		if c.Answered {
			result = "wrong"
			if c.Correct {
				result = "ok"
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Position+1, c.Question, c.Canonical, c.Response, result)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "Score: %d/%d\n", rs.Score, rs.MaxScore)
}
