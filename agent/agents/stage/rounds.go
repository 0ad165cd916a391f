package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
	"github.com/tidwall/gjson"
)

const (
	defaultRoundKey      = "Round 1"
	defaultRoundName     = "Technical"
	defaultRoundQuestion = "Describe project X."
)

// DefaultCategories are the fan-out round categories, in key order.
var DefaultCategories = []string{"behavioral", "technical", "system-design"}

var errNoRounds = errors.New("decoded zero rounds")

// DefaultRounds is the single round used when generation fails.
func DefaultRounds() contractx.Rounds {
	return contractx.Rounds{
		{Key: defaultRoundKey, Round: contractx.Round{Name: defaultRoundName, Questions: []string{defaultRoundQuestion}}},
	}
}

type categoryRound struct {
	round  contractx.Round
	filled []string
}

type RoundsInput struct {
	Role    string
	Profile contractx.Profile
}

// FanOut configures per-category round generation.
type FanOut struct {
	Enabled    bool
	Categories []string
	Limit      int
	Timeout    time.Duration
}

// RoundsAgent generates the interview rounds.
type RoundsAgent struct {
	caller
	category promptx.Template
	fanOut   FanOut
}

type RoundsOption func(*RoundsAgent)

func WithFanOut(cfg FanOut) RoundsOption {
	return func(a *RoundsAgent) {
		if len(cfg.Categories) == 0 {
			cfg.Categories = DefaultCategories
		}
		if cfg.Limit <= 0 {
			cfg.Limit = len(cfg.Categories)
		}
		if cfg.Timeout <= 0 {
			cfg.Timeout = 30 * time.Second
		}
		a.fanOut = cfg
	}
}

func NewRoundsAgent(capability contractx.TextCapability, prompts promptx.PromptSet, logger zerolog.Logger, opts ...RoundsOption) *RoundsAgent {
	a := &RoundsAgent{
		caller:   newCaller(contractx.StageRounds, capability, prompts.Rounds, logger),
		category: prompts.RoundCategory,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *RoundsAgent) Execute(ctx context.Context, in RoundsInput) contractx.Result[contractx.Rounds] {
	if a.fanOut.Enabled {
		return a.executeFanOut(ctx, in)
	}

	text, reason, ok := a.call(ctx, map[string]any{
		"role":    in.Role,
		"profile": compactJSON(in.Profile),
	})
	if !ok {
		return fallback(a.caller, DefaultRounds(), reason, nil)
	}

	rounds, filled, err := decodeRounds(text)
	if err != nil {
		return fallback(a.caller, DefaultRounds(), contractx.ReasonMalformedResponse, err)
	}
	return decoded(a.caller, rounds, filled...)
}

// executeFanOut asks for one round per category on a bounded task group.
// Rounds are keyed in category order. A failed or stalled branch keeps its
// slot with a fallback round.
func (a *RoundsAgent) executeFanOut(ctx context.Context, in RoundsInput) contractx.Result[contractx.Rounds] {
	profile := compactJSON(in.Profile)
	categories := a.fanOut.Categories

	tasks := make([]func(context.Context) (categoryRound, error), len(categories))
	for i, category := range categories {
		tasks[i] = func(ctx context.Context) (categoryRound, error) {
			text, reason, ok := a.callWith(ctx, a.category, map[string]any{
				"role":     in.Role,
				"profile":  profile,
				"category": category,
			})
			if !ok {
				return categoryRound{}, fmt.Errorf("%w: %s", contractx.ErrCapabilityAbsent, reason)
			}
			round, filled, err := decodeSingleRound(text, category)
			return categoryRound{round: round, filled: filled}, err
		}
	}

	branches := runBounded(ctx, a.fanOut.Limit, a.fanOut.Timeout, tasks)

	rounds := make(contractx.Rounds, 0, len(branches))
	var (
		filled    []string
		succeeded int
	)
	for i, b := range branches {
		key := fmt.Sprintf("Round %d", i+1)
		if b.err != nil {
			a.log.Warn().Err(b.err).Str("category", categories[i]).Msg("round branch failed, using fallback round")
			rounds = append(rounds, contractx.KeyedRound{Key: key, Round: fallbackRound(categories[i])})
			filled = append(filled, key)
			continue
		}
		rounds = append(rounds, contractx.KeyedRound{Key: key, Round: b.value.round})
		filled = append(filled, b.value.filled...)
		succeeded++
	}

	if succeeded == 0 {
		return fallback(a.caller, DefaultRounds(), contractx.ReasonNoBranchSucceeded, nil)
	}
	return decoded(a.caller, rounds, filled...)
}

// fallbackRound stands in for a failed fan-out branch.
func fallbackRound(category string) contractx.Round {
	return contractx.Round{Name: category, Questions: []string{defaultRoundQuestion}}
}

// decodeRounds accepts an ordered object of rounds, the same object wrapped
// in {"rounds": ...}, or an array of rounds.
func decodeRounds(text string) (contractx.Rounds, []string, error) {
	body := stripFence(text)
	if !gjson.Valid(body) {
		return nil, nil, fmt.Errorf("%w: rounds response is not valid json", contractx.ErrMalformedResponse)
	}
	parsed := gjson.Parse(body)
	if parsed.IsObject() {
		if inner := parsed.Get("rounds"); inner.Exists() && len(parsed.Map()) == 1 {
			parsed = inner
		}
	}

	var (
		rounds contractx.Rounds
		filled []string
		err    error
	)
	switch {
	case parsed.IsObject():
		rounds, filled, err = decodeRoundObject(parsed)
	case parsed.IsArray():
		rounds, filled, err = decodeRoundArray(parsed)
	default:
		err = fmt.Errorf("%w: rounds must be an object or array", contractx.ErrMalformedResponse)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rounds) == 0 {
		return nil, nil, fmt.Errorf("%w: %v", contractx.ErrMalformedResponse, errNoRounds)
	}
	return rounds, filled, nil
}

func decodeRoundObject(parsed gjson.Result) (contractx.Rounds, []string, error) {
	var (
		rounds contractx.Rounds
		filled []string
		err    error
	)
	parsed.ForEach(func(key, value gjson.Result) bool {
		var kr contractx.KeyedRound
		var f []string
		kr, f, err = toKeyedRound(key.String(), value)
		if err != nil {
			return false
		}
		rounds = append(rounds, kr)
		filled = append(filled, f...)
		return true
	})
	return rounds, filled, err
}

func decodeRoundArray(parsed gjson.Result) (contractx.Rounds, []string, error) {
	var (
		rounds contractx.Rounds
		filled []string
	)
	for i, value := range parsed.Array() {
		kr, f, err := toKeyedRound(fmt.Sprintf("Round %d", i+1), value)
		if err != nil {
			return nil, nil, err
		}
		rounds = append(rounds, kr)
		filled = append(filled, f...)
	}
	return rounds, filled, nil
}

func toKeyedRound(key string, value gjson.Result) (contractx.KeyedRound, []string, error) {
	if !value.IsObject() {
		return contractx.KeyedRound{}, nil, fmt.Errorf("%w: round %q is not an object", contractx.ErrMalformedResponse, key)
	}

	var filled []string
	round := contractx.Round{}
	name, alias := value.Get("name"), value.Get("round")
	switch {
	case name.Type == gjson.String && strings.TrimSpace(name.Str) != "":
		round.Name = strings.TrimSpace(name.Str)
	case alias.Type == gjson.String && strings.TrimSpace(alias.Str) != "":
		round.Name = strings.TrimSpace(alias.Str)
	default:
		round.Name = key
		filled = append(filled, key+".name")
	}

	if focus := value.Get("focus"); focus.Type == gjson.String {
		round.Focus = strings.TrimSpace(focus.Str)
	}

	questions := value.Get("questions")
	switch {
	case !questions.Exists() || questions.Type == gjson.Null:
		round.Questions = []string{}
		filled = append(filled, key+".questions")
	case questions.IsArray():
		items := questions.Array()
		round.Questions = make([]string, 0, len(items))
		for _, q := range items {
			if q.Type != gjson.String {
				return contractx.KeyedRound{}, nil, fmt.Errorf("%w: round %q has a non-string question", contractx.ErrMalformedResponse, key)
			}
			round.Questions = append(round.Questions, q.Str)
		}
	default:
		return contractx.KeyedRound{}, nil, fmt.Errorf("%w: round %q questions is not a list", contractx.ErrMalformedResponse, key)
	}
	return contractx.KeyedRound{Key: key, Round: round}, filled, nil
}

// decodeSingleRound decodes one fan-out branch. A missing name takes the
// category.
func decodeSingleRound(text, category string) (contractx.Round, []string, error) {
	body := stripFence(text)
	if !gjson.Valid(body) {
		return contractx.Round{}, nil, fmt.Errorf("%w: round response is not valid json", contractx.ErrMalformedResponse)
	}
	kr, filled, err := toKeyedRound(category, gjson.Parse(body))
	if err != nil {
		return contractx.Round{}, nil, err
	}
	return kr.Round, filled, nil
}
