package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zioncity/backend/internal/metrics"
	"github.com/zioncity/backend/internal/models"
)

const (
	DefaultBroadcastTimeout = 4 * time.Second
	DefaultMaxInflight      = 16
	DefaultMaxLimit         = 50
)

var tracer = otel.Tracer("github.com/zioncity/backend/internal/service")

type CandidateSelector interface {
	SelectCandidates(ctx context.Context, category string) ([]models.OrganizationAgentProfile, error)
}

// Dispatcher sends one query to one organization agent.
type Dispatcher interface {
	Dispatch(ctx context.Context, query string, p models.OrganizationAgentProfile) (models.Document, error)
}

type Broadcaster struct {
	Candidates  CandidateSelector
	Agents      Dispatcher
	Timeout     time.Duration
	MaxInflight int
	MaxLimit    int
	Logger      zerolog.Logger
}

type dispatchStatus string

const (
	dispatchOK       dispatchStatus = "ok"
	dispatchFailed   dispatchStatus = "failed"
	dispatchTimedOut dispatchStatus = "timeout"
)

type dispatchOutcome struct {
	index   int
	status  dispatchStatus
	reply   models.Document
	err     error
	latency time.Duration
}

// Broadcast queries every eligible organization agent concurrently under one
// shared deadline and returns the successful replies ranked by relevance.
// Failed or late agents are left out; only an invalid request or an
// unavailable profile store fail the call.
func (b *Broadcaster) Broadcast(ctx context.Context, req models.BroadcastRequest) (models.BroadcastResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		metrics.BroadcastsTotal.WithLabelValues("invalid").Inc()
		return models.BroadcastResult{}, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if req.Limit <= 0 {
		metrics.BroadcastsTotal.WithLabelValues("invalid").Inc()
		return models.BroadcastResult{}, fmt.Errorf("%w: limit must be positive", ErrInvalidRequest)
	}
	limit := req.Limit
	if m := b.maxLimit(); limit > m {
		limit = m
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "eric.broadcast", trace.WithAttributes(
		attribute.String("eric.category", req.Category),
		attribute.Int("eric.limit", limit),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	candidates, err := b.Candidates.SelectCandidates(ctx, req.Category)
	if err != nil {
		metrics.BroadcastsTotal.WithLabelValues("store_error").Inc()
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, ErrProfileStore) {
			err = fmt.Errorf("%w: %v", ErrProfileStore, err)
		}
		return models.BroadcastResult{}, err
	}
	metrics.BroadcastCandidates.Observe(float64(len(candidates)))

	result := models.BroadcastResult{
		Query:                  query,
		Results:                []models.BusinessResult{},
		TotalBusinessesQueried: len(candidates),
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		result.Category = &c
	}
	if len(candidates) == 0 {
		metrics.BroadcastsTotal.WithLabelValues("ok").Inc()
		return result, nil
	}

	replies, responding := b.scatter(ctx, query, candidates)

	for i, reply := range replies {
		if reply == nil {
			continue
		}
		p := candidates[i]
		data := ScopeReply(p, reply)
		result.Results = append(result.Results, models.BusinessResult{
			OrganizationID:   p.OrganizationID,
			OrganizationName: p.OrganizationName,
			Data:             data,
			RelevanceScore:   Score(query, p, data),
		})
	}
	result.BusinessesResponding = responding
	SortResults(result.Results)
	if len(result.Results) > limit {
		result.Results = result.Results[:limit]
	}

	elapsed := time.Since(start)
	metrics.BroadcastsTotal.WithLabelValues("ok").Inc()
	metrics.BroadcastDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("eric.queried", result.TotalBusinessesQueried),
		attribute.Int("eric.responding", result.BusinessesResponding),
	)
	b.Logger.Info().
		Str("category", req.Category).
		Int("queried", result.TotalBusinessesQueried).
		Int("responding", result.BusinessesResponding).
		Int("returned", len(result.Results)).
		Dur("elapsed", elapsed).
		Msg("broadcast finished")
	return result, nil
}

// scatter launches one dispatch per candidate and gathers outcomes until all
// have reported or the shared deadline passes. Each dispatch reports exactly
// once into a channel buffered for all of them, so abandoned dispatches never
// block. The returned slice holds a reply per candidate index, nil where the
// candidate failed or did not answer in time.
func (b *Broadcaster) scatter(ctx context.Context, query string, candidates []models.OrganizationAgentProfile) ([]models.Document, int) {
	outcomes := make(chan dispatchOutcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(b.maxInflight())
	go func() {
		for i, p := range candidates {
			i, p := i, p
			g.Go(func() error {
				outcomes <- b.dispatch(ctx, i, query, p)
				return nil
			})
		}
		_ = g.Wait()
	}()

	replies := make([]models.Document, len(candidates))
	responding := 0
	received := 0
gather:
	for received < len(candidates) {
		select {
		case o := <-outcomes:
			received++
			metrics.DispatchesTotal.WithLabelValues(string(o.status)).Inc()
			p := candidates[o.index]
			if o.status != dispatchOK {
				b.Logger.Debug().
					Err(o.err).
					Str("organization_id", p.OrganizationID).
					Str("status", string(o.status)).
					Dur("latency", o.latency).
					Msg("agent dispatch dropped")
				continue
			}
			replies[o.index] = o.reply
			responding++
		case <-ctx.Done():
			pending := len(candidates) - received
			metrics.DispatchesTotal.WithLabelValues(string(dispatchTimedOut)).Add(float64(pending))
			b.Logger.Debug().Int("pending", pending).Msg("broadcast deadline reached")
			break gather
		}
	}
	return replies, responding
}

func (b *Broadcaster) dispatch(ctx context.Context, index int, query string, p models.OrganizationAgentProfile) dispatchOutcome {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return dispatchOutcome{index: index, status: dispatchTimedOut, err: err}
	}

	ctx, span := tracer.Start(ctx, "eric.dispatch", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("eric.organization_id", p.OrganizationID)))
	defer span.End()

	reply, err := b.Agents.Dispatch(ctx, query, p)
	out := dispatchOutcome{index: index, reply: reply, err: err, latency: time.Since(start)}
	switch {
	case err != nil && ctx.Err() != nil:
		out.status = dispatchTimedOut
	case err != nil:
		out.status = dispatchFailed
	default:
		out.status = dispatchOK
		if out.reply == nil {
			out.reply = models.Document{}
		}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return out
}

// ScopeReply applies the organization's sharing setting to its reply. Without
// share_public_data only the name, the specialties and what the agent put
// under "public" are kept.
func ScopeReply(p models.OrganizationAgentProfile, reply models.Document) models.Document {
	if p.SharePublicData {
		return reply
	}
	scoped := models.Document{
		"organization_name": p.OrganizationName,
		"specialties":       p.Specialties,
	}
	if public := nestedDocument(reply["public"]); len(public) > 0 {
		for k, v := range public {
			if _, taken := scoped[k]; !taken {
				scoped[k] = v
			}
		}
	}
	return scoped
}

// SortResults orders by relevance descending, then organization name and id
// ascending, so arrival order never shows in the output.
func SortResults(results []models.BusinessResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		if results[i].OrganizationName != results[j].OrganizationName {
			return results[i].OrganizationName < results[j].OrganizationName
		}
		return results[i].OrganizationID < results[j].OrganizationID
	})
}

func (b *Broadcaster) timeout() time.Duration {
	if b.Timeout <= 0 {
		return DefaultBroadcastTimeout
	}
	return b.Timeout
}

func (b *Broadcaster) maxInflight() int {
	if b.MaxInflight <= 0 {
		return DefaultMaxInflight
	}
	return b.MaxInflight
}

func (b *Broadcaster) maxLimit() int {
	if b.MaxLimit <= 0 {
		return DefaultMaxLimit
	}
	return b.MaxLimit
}
