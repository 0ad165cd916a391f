package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// KeyedRound is one entry of Rounds.
type KeyedRound struct {
	Key   string
	Round Round
}

// Rounds keeps rounds in the order they were produced. It encodes as a JSON
// object whose key order matches the slice order.
type Rounds []KeyedRound

func (r Rounds) Get(key string) (Round, bool) {
	for _, kr := range r {
		if kr.Key == key {
			return kr.Round, true
		}
	}
	return Round{}, false
}

// QuestionCount returns the total number of questions across all rounds.
func (r Rounds) QuestionCount() int {
	n := 0
	for _, kr := range r {
		n += len(kr.Round.Questions)
	}
	return n
}

func (r Rounds) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kr := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kr.Key)
		if err != nil {
			return nil, err
		}
		round := kr.Round
		if round.Questions == nil {
			round.Questions = []string{}
		}
		val, err := json.Marshal(round)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Rounds) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: rounds is not valid json", ErrMalformedResponse)
	}
	parsed := gjson.ParseBytes(data)
	if parsed.Type == gjson.Null {
		*r = nil
		return nil
	}
	if !parsed.IsObject() {
		return fmt.Errorf("%w: rounds must be an object", ErrMalformedResponse)
	}

	out := make(Rounds, 0, 4)
	var decodeErr error
	parsed.ForEach(func(key, value gjson.Result) bool {
		var round Round
		if err := json.Unmarshal([]byte(value.Raw), &round); err != nil {
			decodeErr = fmt.Errorf("decode round %q: %w", key.String(), err)
			return false
		}
		out = append(out, KeyedRound{Key: key.String(), Round: round})
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}
	*r = out
	return nil
}
