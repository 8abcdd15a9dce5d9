package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/inhies/go-bytesize"

	"github.com/dmmcquay/othello-dataset/internal/logging"
	"github.com/dmmcquay/othello-dataset/internal/metrics"
	"github.com/dmmcquay/othello-dataset/internal/transcript"
)

// Options configures a Converter.
type Options struct {
	Charset string
	Format  string
	// MetricsTextfile, when set, is rewritten with the collector's metrics
	// after every run.
	MetricsTextfile string
}

// Result describes a finished conversion.
type Result struct {
	Stats
	Input    string
	Output   string
	Duration time.Duration
}

// Message is the confirmation shown to the operator.
func (r Result) Message() string {
	return fmt.Sprintf("Training data saved to %s", r.Output)
}

// Converter turns a transcript file into a dataset file.
type Converter struct {
	logger  logging.ContextLogger
	metrics *metrics.Collector
	builder *Builder
	opts    Options
}

// NewConverter creates a converter. m may be nil.
func NewConverter(logger logging.ContextLogger, m *metrics.Collector, opts Options) *Converter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Converter{
		logger:  logger,
		metrics: m,
		builder: NewBuilder(logger, m),
		opts:    opts,
	}
}

// Convert reads input, replays every game and writes the dataset to output,
// replacing any existing file. Any I/O error aborts the run; a failure while
// writing leaves a truncated output file behind.
func (c *Converter) Convert(ctx context.Context, input, output string) (Result, error) {
	if _, ok := logging.RunIDFromContext(ctx); !ok {
		ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())
	}
	logger := c.logger.WithContext(ctx)
	start := time.Now()

	res, err := c.convert(ctx, logger, input, output)
	res.Duration = time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordConversion(err == nil, res.Duration.Seconds())
		if c.opts.MetricsTextfile != "" {
			if werr := c.metrics.WriteTextfile(c.opts.MetricsTextfile); werr != nil {
				logger.Warn("Failed to write metrics", "path", c.opts.MetricsTextfile, "error", werr)
			}
		}
	}

	if err != nil {
		logger.Error("Conversion failed", "input", input, "output", output, "error", err)
		return res, err
	}

	logger.Info("Conversion complete",
		"games", res.Games,
		"rows", res.Rows,
		"skipped_results", res.SkippedResults,
		"skipped_malformed", res.SkippedMalformed,
		"duration", res.Duration,
	)
	return res, nil
}

func (c *Converter) convert(ctx context.Context, logger logging.ContextLogger, input, output string) (Result, error) {
	res := Result{Input: input, Output: output}

	src, err := transcript.ReadFile(input, transcript.ReadOptions{Charset: c.opts.Charset})
	if err != nil {
		return res, err
	}
	logger.Info("Read transcript", "path", input, "size", bytesize.New(float64(src.DiskSize)).String())

	games := transcript.Parse(src.Text)
	logger.Debug("Parsed %d games", len(games))

	sink, err := NewSink(output, c.opts.Format)
	if err != nil {
		return res, err
	}

	stats, err := c.builder.Build(ctx, games, sink)
	res.Stats = stats
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return res, fmt.Errorf("failed to build dataset: %w", err)
	}

	return res, nil
}
