package artifact

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

// MultiSink writes the bundle to every sink in order. It keeps going after a
// failure and returns the joined errors along with the locations that worked.
type MultiSink []contractx.OutputSink

func (m MultiSink) Write(ctx context.Context, bundle contractx.ArtifactBundle) (string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, sink := range m {
		if sink == nil {
			continue
		}
		loc, err := sink.Write(ctx, bundle)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if loc != "" {
			locations = append(locations, loc)
		}
	}
	return strings.Join(locations, ","), errors.Join(errs...)
}
