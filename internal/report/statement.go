package report

import (
	"fmt"
	"strings"
	"time"

	"flashcard-quiz-service/internal/domain"
)

// ResponseSeparator joins per-card values in fill-in responses and patterns.
const ResponseSeparator = "[,]"

const (
	VerbAnswered  = "http://adlnet.gov/expapi/verbs/answered"
	VerbCompleted = "http://adlnet.gov/expapi/verbs/completed"

	activityTypeInteraction = "http://adlnet.gov/expapi/activities/cmi.interaction"
	interactionFillIn       = "fill-in"

	// ExtensionCardResults carries per-card correctness so consumers can
	// rebuild pass/fail without replaying the session.
	ExtensionCardResults = "https://flashcards.example.org/xapi/extensions/card-results"
	// ExtensionSessionID links a statement to its quiz session.
	ExtensionSessionID = "https://flashcards.example.org/xapi/extensions/session-id"

	defaultHomePage = "https://flashcards.example.org"
)

// Envelope carries the non-deterministic parts of a statement.
type Envelope struct {
	ID           string
	SessionID    string
	Learner      domain.Learner
	ActivityBase string
	HomePage     string
	Timestamp    time.Time
}

// Statement is an xAPI 1.0.3 statement describing a flashcard session.
type Statement struct {
	ID        string    `json:"id"`
	Actor     Actor     `json:"actor"`
	Verb      Verb      `json:"verb"`
	Object    Activity  `json:"object"`
	Result    Result    `json:"result"`
	Context   Context   `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

type Actor struct {
	ObjectType string  `json:"objectType"`
	Name       string  `json:"name,omitempty"`
	Account    Account `json:"account"`
}

type Account struct {
	HomePage string `json:"homePage"`
	Name     string `json:"name"`
}

type Verb struct {
	ID      string            `json:"id"`
	Display map[string]string `json:"display"`
}

type Activity struct {
	ObjectType string             `json:"objectType"`
	ID         string             `json:"id"`
	Definition ActivityDefinition `json:"definition"`
}

type ActivityDefinition struct {
	Name                    map[string]string `json:"name,omitempty"`
	Description             map[string]string `json:"description,omitempty"`
	Type                    string            `json:"type"`
	InteractionType         string            `json:"interactionType"`
	CorrectResponsesPattern []string          `json:"correctResponsesPattern"`
}

type Result struct {
	Score      Score          `json:"score"`
	Success    bool           `json:"success"`
	Completion bool           `json:"completion"`
	Response   string         `json:"response"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type Score struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Raw    int     `json:"raw"`
	Scaled float64 `json:"scaled"`
}

type Context struct {
	Extensions map[string]any `json:"extensions,omitempty"`
}

// CardOutcome is the per-card entry of the card-results extension.
type CardOutcome struct {
	Position  int    `json:"position"`
	CardIndex int    `json:"cardIndex"`
	Answered  bool   `json:"answered"`
	Correct   bool   `json:"correct"`
	Canonical string `json:"canonical"`
	Response  string `json:"response"`
}

// NewStatement wraps rs in an xAPI statement. The verb is "completed" once
// every card is evaluated and "answered" before that.
func NewStatement(rs domain.ResultStatement, env Envelope) Statement {
	verb := Verb{ID: VerbAnswered, Display: map[string]string{"en-US": "answered"}}
	if rs.Complete {
		verb = Verb{ID: VerbCompleted, Display: map[string]string{"en-US": "completed"}}
	}

	homePage := env.HomePage
	if homePage == "" {
		homePage = defaultHomePage
	}

	canonical := make([]string, len(rs.Cards))
	responses := make([]string, len(rs.Cards))
	questions := make([]string, len(rs.Cards))
	outcomes := make([]CardOutcome, len(rs.Cards))
	caseSensitive := false
	for i, c := range rs.Cards {
		canonical[i] = c.Canonical
		responses[i] = c.Response
		questions[i] = c.Question
		caseSensitive = c.CaseSensitive
		outcomes[i] = CardOutcome{
			Position:  c.Position,
			CardIndex: c.CardIndex,
			Answered:  c.Answered,
			Correct:   c.Correct,
			Canonical: c.Canonical,
			Response:  c.Response,
		}
	}

	var scaled float64
	if rs.MaxScore > 0 {
		scaled = float64(rs.Score) / float64(rs.MaxScore)
	}

	st := Statement{
		ID: env.ID,
		Actor: Actor{
			ObjectType: "Agent",
			Name:       env.Learner.Name,
			Account:    Account{HomePage: homePage, Name: env.Learner.ID},
		},
		Verb: verb,
		Object: Activity{
			ObjectType: "Activity",
			ID:         ActivityID(env.ActivityBase, rs.DeckID),
			Definition: ActivityDefinition{
				Type:            activityTypeInteraction,
				InteractionType: interactionFillIn,
				CorrectResponsesPattern: []string{
					fmt.Sprintf("{case_matters=%t}%s", caseSensitive, strings.Join(canonical, ResponseSeparator)),
				},
				Description: map[string]string{"en-US": strings.Join(questions, "\n")},
			},
		},
		Result: Result{
			Score:      Score{Min: 0, Max: rs.MaxScore, Raw: rs.Score, Scaled: scaled},
			Success:    rs.Complete && rs.Score == rs.MaxScore,
			Completion: rs.Complete,
			Response:   strings.Join(responses, ResponseSeparator),
			Extensions: map[string]any{ExtensionCardResults: outcomes},
		},
		Timestamp: env.Timestamp.UTC(),
	}
	if rs.Title != "" {
		st.Object.Definition.Name = map[string]string{"en-US": rs.Title}
	}
	if env.SessionID != "" {
		st.Context.Extensions = map[string]any{ExtensionSessionID: env.SessionID}
	}
	return st
}

// ActivityID returns the activity IRI for a deck.
func ActivityID(base, deckID string) string {
	if base == "" {
		base = defaultHomePage + "/decks"
	}
	return strings.TrimRight(base, "/") + "/" + deckID
}
