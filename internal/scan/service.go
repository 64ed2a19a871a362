// Package scan drives the round-based search that resolves voter birth
// months against the registration service and collects the voters whose
// absentee-ballot application has been received.
package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"avcheck/internal/platform/metrics"
	"avcheck/internal/roster/models"
)

// Response markers the service embeds in its status page. Only these two
// substrings are interpreted; the rest of the body is opaque.
const (
	registeredMarker = "Yes, you are registered!"
	avPendingMarker  = "Your clerk has not recorded receiving your AV Application."
)

// monthMax bounds the candidate search: birth months are 1..12.
const monthMax = 12

// Lookup is the bounded fan-out primitive the engine dispatches through.
// Results align index-for-index with the batch; nil marks a request that
// exhausted its retries.
type Lookup interface {
	CallAll(ctx context.Context, batch []url.Values) []*string
}

// Service owns the candidate-narrowing search loop.
type Service struct {
	lookup  Lookup
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(lookup Lookup, opts ...Option) (*Service, error) {
	if lookup == nil {
		return nil, fmt.Errorf("lookup client is required")
	}
	s := &Service{
		lookup: lookup,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Result of a full scan. Target holds voters confirmed registered whose AV
// application has been recorded received, sorted ascending by birth year.
// Unresolved holds voters that never matched any candidate month.
type Result struct {
	Target     []*models.Voter
	Unresolved []*models.Voter
}

// candidate pairs a voter with the month queried for it in one round.
type candidate struct {
	voter *models.Voter
	month int
}

// Run probes candidate months 1..12, one fan-out per round, narrowing the
// active set as voters are confirmed registered. Rounds are strictly
// sequential; all accumulators are touched only between fan-outs.
//
// A voter whose birth month is already known is queried in the round
// matching its month. If that single eligible request fails outright it is
// re-dispatched in later rounds, still carrying its own month, so a
// transient outage cannot permanently strand it.
func (s *Service) Run(ctx context.Context, voters []*models.Voter) (*Result, error) {
	log := s.logger.With("run_id", uuid.NewString())

	active := make([]*models.Voter, len(voters))
	copy(active, voters)

	registered := make(map[models.Key]bool)
	needRetry := make(map[models.Key]bool)
	var target []*models.Voter

	for month := 1; month <= monthMax && len(active) > 0; month++ {
		batch := buildBatch(active, month, needRetry)
		if len(batch) == 0 {
			continue
		}

		params := make([]url.Values, len(batch))
		for i, c := range batch {
			params[i] = c.voter.RequestParams(c.month)
		}
		responses := s.lookup.CallAll(ctx, params)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, c := range batch {
			body := responses[i]
			if body == nil {
				if c.voter.MonthKnown() {
					needRetry[c.voter.Key()] = true
				}
				continue
			}
			delete(needRetry, c.voter.Key())

			if !strings.Contains(*body, registeredMarker) {
				continue
			}
			// First matching month wins and is never re-challenged.
			c.voter.BirthMonth = c.month
			registered[c.voter.Key()] = true
			if s.metrics != nil {
				s.metrics.IncrementVotersRegistered()
			}
			if !strings.Contains(*body, avPendingMarker) {
				target = append(target, c.voter)
				if s.metrics != nil {
					s.metrics.IncrementVotersTarget()
				}
			}
		}

		remaining := active[:0]
		for _, v := range active {
			if !registered[v.Key()] {
				remaining = append(remaining, v)
			}
		}
		active = remaining

		log.InfoContext(ctx, "round complete",
			"month", month,
			"dispatched", len(batch),
			"active", len(active),
			"target", len(target),
		)
	}

	sort.Slice(target, func(i, j int) bool {
		return target[i].BirthYear < target[j].BirthYear
	})

	log.InfoContext(ctx, "scan complete",
		"voters", len(voters),
		"registered", len(registered),
		"target", len(target),
		"unresolved", len(active),
	)
	return &Result{Target: target, Unresolved: active}, nil
}

// buildBatch selects the (voter, month) pairs for one round: every active
// voter with an unknown month, the voters whose known month equals the
// round month, and known-month voters still waiting on a failed request.
func buildBatch(active []*models.Voter, month int, needRetry map[models.Key]bool) []candidate {
	batch := make([]candidate, 0, len(active))
	for _, v := range active {
		switch {
		case !v.MonthKnown():
			batch = append(batch, candidate{voter: v, month: month})
		case v.BirthMonth == month:
			batch = append(batch, candidate{voter: v, month: month})
		case needRetry[v.Key()]:
			batch = append(batch, candidate{voter: v, month: v.BirthMonth})
		}
	}
	return batch
}
