package migrate

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"llmfill/internal/logging"
	"llmfill/internal/schema"
)

// Chain applies registered migration steps in order until the target
// version, validating and repairing the document after each step.
type Chain struct {
	steps  []Step
	target int
	logger *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger the chain reports progress and repairs to.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Chain using the built-in step registry, targeting the
// current schema version.
func New(opts ...Option) *Chain {
	c := &Chain{
		steps:  Registry(),
		target: schema.CurrentVersion,
		logger: logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Migrate upgrades a raw document to the target version and returns the
// canonical configuration. The input is never mutated.
//
// It fails with *UnsupportedVersionError when the document is stamped newer
// than the target, and with *Error when a step fails or leaves unrepairable
// defects. Running Migrate on an already-current document is a no-op that
// yields a semantically identical configuration.
func (c *Chain) Migrate(raw schema.Raw) (*schema.Config, error) {
	if raw == nil {
		raw = schema.Raw{}
	}

	from := raw.Version()
	if from > c.target {
		return nil, &UnsupportedVersionError{Version: from, Supported: c.target}
	}

	work := raw.Clone()

	// Shape check before any step runs; repairs here keep a hand-damaged
	// document from derailing the whole chain.
	if err := c.check(work, from); err != nil {
		return nil, &Error{From: from, Reached: from, Raw: raw, Err: err}
	}

	if from < c.target {
		c.logger.Info("migrating config", "from", from, "to", c.target)
	}

	for v := from; v < c.target; v++ {
		if v >= len(c.steps) || c.steps[v].To != v+1 {
			return nil, &Error{From: from, Reached: v, Raw: raw,
				Err: errors.Newf("no registered step for version %d -> %d", v, v+1)}
		}
		step := c.steps[v]

		next, err := step.Apply(work)
		if err != nil {
			return nil, &Error{From: from, Reached: v, Raw: raw,
				Err: errors.Wrapf(err, "applying step %d -> %d (%s)", v, step.To, step.Note)}
		}
		next["schema_version"] = step.To

		if err := c.check(next, step.To); err != nil {
			return nil, &Error{From: from, Reached: v, Raw: raw, Err: err}
		}

		c.logger.Debug("applied migration step", "to", step.To, "note", step.Note)
		work = next
	}

	return c.finalize(work, from, raw)
}

// check validates the document at the given version, repairing what it can
// with the central defaults.
func (c *Chain) check(work schema.Raw, version int) error {
	report := schema.ValidateAt(work, version)
	if report.Ok() {
		return nil
	}
	for _, field := range schema.Repair(work, report) {
		c.logger.Warn("repaired defective field with default", "field", field, "version", version)
	}
	if report := schema.ValidateAt(work, version); !report.Ok() {
		return errors.Wrapf(report.Err(), "document invalid at version %d after repair", version)
	}
	return nil
}

// finalize runs the default-fill pass, decodes the canonical form, and
// validates it once more to catch migration bugs.
func (c *Chain) finalize(work schema.Raw, from int, raw schema.Raw) (*schema.Config, error) {
	for _, field := range schema.FillDefaults(work) {
		c.logger.Debug("filled missing field with default", "field", field)
	}

	if err := c.check(work, c.target); err != nil {
		return nil, &Error{From: from, Reached: c.target, Raw: raw, Err: err}
	}

	cfg, err := schema.FromRaw(work)
	if err != nil {
		return nil, &Error{From: from, Reached: c.target, Raw: raw,
			Err: errors.Wrap(err, "decoding canonical config")}
	}

	if report := schema.ValidateCanonical(cfg); !report.Ok() {
		return nil, &Error{From: from, Reached: c.target, Raw: raw,
			Err: errors.Wrap(report.Err(), "canonical config invalid")}
	}

	return cfg, nil
}
