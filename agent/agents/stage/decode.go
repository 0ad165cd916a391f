package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
	"github.com/tidwall/gjson"
)

// caller is the shared capability path of every generating stage.
type caller struct {
	stage      contractx.Stage
	capability contractx.TextCapability
	prompt     promptx.Template
	log        zerolog.Logger
}

func newCaller(stage contractx.Stage, capability contractx.TextCapability, prompt promptx.Template, logger zerolog.Logger) caller {
	if capability == nil {
		capability = absentCapability{}
	}
	return caller{
		stage:      stage,
		capability: capability,
		prompt:     prompt,
		log:        logger.With().Str("stage", string(stage)).Logger(),
	}
}

// call renders the prompt and invokes the capability. On absence it returns
// the fallback reason and ok=false.
func (c caller) call(ctx context.Context, vars map[string]any) (text string, reason string, ok bool) {
	return c.callWith(ctx, c.prompt, vars)
}

func (c caller) callWith(ctx context.Context, tpl promptx.Template, vars map[string]any) (string, string, bool) {
	rendered, err := tpl.Render(ctx, vars)
	if err != nil {
		c.log.Error().Err(err).Msg("prompt render failed")
		return "", contractx.ReasonCapabilityError, false
	}

	text, err := c.capability.Invoke(ctx, rendered, tpl.Tag)
	switch {
	case errors.Is(err, contractx.ErrCapabilityAbsent):
		return "", contractx.ReasonCapabilityAbsent, false
	case err != nil:
		c.log.Warn().Err(err).Msg("capability call failed")
		return "", contractx.ReasonCapabilityError, false
	case strings.TrimSpace(text) == "":
		return "", contractx.ReasonCapabilityAbsent, false
	}
	return text, "", true
}

// fallback logs the fallback and wraps v accordingly.
func fallback[T any](c caller, v T, reason string, err error) contractx.Result[T] {
	ev := c.log.Warn().Str("outcome", string(contractx.OutcomeUsedFallback)).Str("reason", reason)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("stage used documented default")
	return contractx.UsedFallback(v, reason)
}

func decoded[T any](c caller, v T, filled ...string) contractx.Result[T] {
	res := contractx.Decoded(v, filled...)
	if gap := res.Outcome.Gap(); gap != nil {
		c.log.Info().Str("outcome", string(contractx.OutcomeDecoded)).Err(gap).Msg("partial decode, defaults filled")
	} else {
		c.log.Debug().Str("outcome", string(contractx.OutcomeDecoded)).Msg("stage decoded response")
	}
	return res
}

// stripFence removes one surrounding Markdown code fence, if any.
func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// objectBody strips a fence and requires the response to be a JSON object.
func objectBody(text string) (gjson.Result, error) {
	body := stripFence(text)
	if !gjson.Valid(body) {
		return gjson.Result{}, fmt.Errorf("%w: response is not valid json", contractx.ErrMalformedResponse)
	}
	parsed := gjson.Parse(body)
	if !parsed.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: response is not a json object", contractx.ErrMalformedResponse)
	}
	return parsed, nil
}

// decodeField strictly decodes one JSON value into T with eino's message
// parser.
func decodeField[T any](ctx context.Context, value gjson.Result) (T, error) {
	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})
	out, err := parser.Parse(ctx, schema.AssistantMessage(value.Raw, nil))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", contractx.ErrMalformedResponse, err)
	}
	return out, nil
}

// optionalField decodes obj[key] into dst when it is present and not null.
// A mistyped value leaves dst untouched and adds key to filled.
func optionalField[T any](ctx context.Context, c caller, obj gjson.Result, key string, dst *T, filled *[]string) {
	value := obj.Get(key)
	if !value.Exists() || value.Type == gjson.Null {
		return
	}
	out, err := decodeField[T](ctx, value)
	if err != nil {
		c.log.Debug().Err(err).Str("field", key).Msg("field dropped")
		*filled = append(*filled, key)
		return
	}
	*dst = out
}

// compactJSON renders v for embedding into a prompt.
func compactJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

type absentCapability struct{}

func (absentCapability) Invoke(context.Context, string, string) (string, error) {
	return "", contractx.ErrCapabilityAbsent
}
