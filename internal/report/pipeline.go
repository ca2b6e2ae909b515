package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"example.com/timereport/internal/domain"
	"example.com/timereport/internal/logging"
	"example.com/timereport/internal/observability"
)

// PersonSource iterates every person known to the data store exactly once.
// Iteration stops at the first error returned by fn.
type PersonSource interface {
	ForEachPerson(ctx context.Context, fn func(domain.Person) error) error
}

// Aggregator computes the time totals of one person.
type Aggregator interface {
	Aggregate(ctx context.Context, ref domain.PersonRef) (domain.Result, error)
}

// RunSummary describes a completed pipeline run.
type RunSummary struct {
	RunID      string
	Persons    int
	Rows       int
	Absent     int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Option configures optional behaviour for the Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the logger used to report progress and skipped persons.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithWorkers sets how many aggregation queries may run at once. Values below 2 keep
// the run sequential.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// WithSkipFailures makes a failed aggregation query omit the person instead of
// aborting the run. Decode and connection failures still abort.
func WithSkipFailures(skip bool) Option {
	return func(p *Pipeline) {
		p.skipFailures = skip
	}
}

// WithIncludeAbsent emits a zero-totals row for persons without memberships.
func WithIncludeAbsent(include bool) Option {
	return func(p *Pipeline) {
		p.includeAbsent = include
	}
}

// Pipeline drives persons through the aggregation and into a report table.
type Pipeline struct {
	persons       PersonSource
	aggregator    Aggregator
	logger        *logging.Logger
	workers       int
	skipFailures  bool
	includeAbsent bool
	now           func() time.Time
}

// NewPipeline constructs a Pipeline over the supplied person source and aggregator.
func NewPipeline(persons PersonSource, aggregator Aggregator, opts ...Option) *Pipeline {
	p := &Pipeline{
		persons:    persons,
		aggregator: aggregator,
		logger:     logging.Nop(),
		workers:    1,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run builds the report table. Any fatal error discards the partial table.
func (p *Pipeline) Run(ctx context.Context) (Table, RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString(), StartedAt: p.now()}
	logger := p.logger.With("run_id", summary.RunID)
	builder := NewBuilder()

	var err error
	if p.workers > 1 {
		err = p.runConcurrent(ctx, builder, &summary, logger)
	} else {
		err = p.runSequential(ctx, builder, &summary, logger)
	}
	if err != nil {
		logger.Error("report run aborted", "persons", summary.Persons, "error", err)
		return Table{}, RunSummary{}, err
	}

	table := builder.Finalize()
	summary.FinishedAt = p.now()
	observability.RecordReportFinalized(summary.FinishedAt)
	logger.Info("report table finalized",
		"persons", summary.Persons,
		"rows", summary.Rows,
		"absent", summary.Absent,
		"skipped", summary.Skipped,
	)
	return table, summary, nil
}

func (p *Pipeline) runSequential(ctx context.Context, builder *Builder, summary *RunSummary, logger *logging.Logger) error {
	return p.persons.ForEachPerson(ctx, func(person domain.Person) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ref, err := personRef(person)
		if err != nil {
			return err
		}
		summary.Persons++

		result, err := p.aggregate(ctx, ref)
		if err != nil {
			if p.skippable(ctx, err) {
				p.recordSkip(summary, logger, ref, err)
				return nil
			}
			return err
		}
		return p.append(builder, summary, person, ref, result)
	})
}

type slot struct {
	person domain.Person
	ref    domain.PersonRef
	result domain.Result
	err    error
}

// runConcurrent fans the queries out to a bounded pool. Results land in slots kept in
// fetch order and are appended by this goroutine alone once every query finished.
func (p *Pipeline) runConcurrent(ctx context.Context, builder *Builder, summary *RunSummary, logger *logging.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var slots []*slot
	fetchErr := p.persons.ForEachPerson(gctx, func(person domain.Person) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		ref, err := personRef(person)
		if err != nil {
			return err
		}
		s := &slot{person: person, ref: ref}
		slots = append(slots, s)
		g.Go(func() error {
			result, err := p.aggregate(gctx, s.ref)
			if err != nil {
				if p.skippable(gctx, err) {
					s.err = err
					return nil
				}
				return err
			}
			s.result = result
			return nil
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if fetchErr != nil {
		return fetchErr
	}

	for _, s := range slots {
		summary.Persons++
		if s.err != nil {
			p.recordSkip(summary, logger, s.ref, s.err)
			continue
		}
		if err := p.append(builder, summary, s.person, s.ref, s.result); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) aggregate(ctx context.Context, ref domain.PersonRef) (domain.Result, error) {
	start := time.Now()
	defer func() { observability.ObserveQuery(time.Since(start)) }()
	return p.aggregator.Aggregate(ctx, ref)
}

func (p *Pipeline) append(builder *Builder, summary *RunSummary, person domain.Person, ref domain.PersonRef, result domain.Result) error {
	if !result.IsPresent() {
		summary.Absent++
		observability.RecordPerson(observability.OutcomeAbsent)
		if !p.includeAbsent {
			return nil
		}
		result = domain.Present(domain.TimeTotals{})
	} else {
		observability.RecordPerson(observability.OutcomePresent)
	}

	if err := builder.Append(ref.Key, person.Name, result); err != nil {
		return err
	}
	summary.Rows++
	observability.RecordRows(1)
	return nil
}

func (p *Pipeline) skippable(ctx context.Context, err error) bool {
	if !p.skipFailures || ctx.Err() != nil {
		return false
	}
	return errors.Is(err, domain.ErrQuery) &&
		!errors.Is(err, domain.ErrSchemaDecode) &&
		!errors.Is(err, domain.ErrConnection)
}

func (p *Pipeline) recordSkip(summary *RunSummary, logger *logging.Logger, ref domain.PersonRef, err error) {
	summary.Skipped++
	observability.RecordPerson(observability.OutcomeSkipped)
	logger.Warn("skipping person after failed aggregation", "person_id", ref.Key, "error", err)
}

func personRef(person domain.Person) (domain.PersonRef, error) {
	if person.ID == nil {
		return domain.PersonRef{}, fmt.Errorf("%w: person %q has no identity", domain.ErrSchemaDecode, person.Name)
	}
	return domain.NormalizeIdentity(person.ID), nil
}
