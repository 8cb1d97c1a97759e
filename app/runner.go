package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"postgen/config"
	"postgen/generator"
	"postgen/logger"
	"postgen/sheet"
)

// ImageAcquirer produces a local image file for a topic.
type ImageAcquirer interface {
	Acquire(ctx context.Context, topic, prompt string) (string, error)
}

// Runner processes workbook rows: text, then image, then status.
type Runner struct {
	cfg    config.Config
	agent  *generator.Agent
	images ImageAcquirer
	log    *logger.Logger
	now    func() time.Time
}

// Option customizes the runner.
type Option func(*Runner)

// WithClock overrides the clock used for generated_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New wires a Runner. images may be nil for batch-only use.
func New(cfg config.Config, agent *generator.Agent, images ImageAcquirer, log *logger.Logger, opts ...Option) (*Runner, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	r := &Runner{
		cfg:    cfg,
		agent:  agent,
		images: images,
		log:    logger.OrNop(log),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Outcome describes what RunOne did. Err carries a row-level failure that
// was recorded into the status cell; it does not abort the process.
type Outcome struct {
	Row       int
	Topic     string
	Status    string
	SavedTo   string
	Alternate bool
	Err       error
}

// RunOne processes the first eligible row. Rows whose status is an error are
// picked up again on the next run; only "generated" rows are skipped.
func (r *Runner) RunOne(ctx context.Context) (Outcome, error) {
	wb, err := r.open()
	if err != nil {
		return Outcome{}, err
	}
	defer wb.Close()

	hm, err := wb.EnsureColumns(sheet.OutputColumns...)
	if err != nil {
		return Outcome{}, err
	}
	idx, err := wb.FindNextRow(hm)
	if err != nil {
		return Outcome{}, err
	}
	if idx == 0 {
		r.log.Info("No rows pending generation.")
		return Outcome{}, nil
	}

	row, err := wb.ReadRow(hm, idx)
	if err != nil {
		return Outcome{}, err
	}
	log := r.log.With("row", idx)
	log.Info("processing row", "topic", row.Topic)

	out := Outcome{Row: idx, Topic: row.Topic}
	if err := r.processRow(ctx, wb, hm, &row, log); err != nil {
		log.Error("failed to process row", "error", err)
		out.Status = sheet.ErrorStatus(err)
		out.Err = err
		if serr := wb.SetStatus(hm, idx, out.Status); serr != nil {
			log.Error("failed to write error status", "error", serr)
			return out, nil
		}
		if res, serr := r.save(wb, log); serr == nil {
			out.SavedTo, out.Alternate = res.Path, res.Alternate
		}
		return out, nil
	}

	out.Status = row.Status
	res, err := r.save(wb, log)
	if err != nil {
		out.Err = err
		return out, nil
	}
	out.SavedTo, out.Alternate = res.Path, res.Alternate
	log.Info("done", "saved_to", res.Path)
	return out, nil
}

func (r *Runner) processRow(ctx context.Context, wb *sheet.Workbook, hm sheet.HeaderMap, row *sheet.Row, log *logger.Logger) error {
	spec := generator.PostSpec{Topic: row.Topic, Angle: row.Angle, Format: row.Format}

	if strings.TrimSpace(row.Blog) == "" {
		post, err := r.agent.Generate(ctx, generator.BuildPostPrompt(spec))
		if err != nil {
			return err
		}
		row.Blog = post
		if err := wb.SetCell(row.Index, hm.Col(sheet.ColBlog, 0), post); err != nil {
			return err
		}
		log.Info("blog generated", "chars", len(post))
	}

	if strings.TrimSpace(row.Image) == "" {
		if r.images == nil {
			return errors.New("image acquirer not configured")
		}
		path, err := r.images.Acquire(ctx, row.Topic, generator.BuildImagePrompt(spec))
		if err != nil {
			return err
		}
		row.Image = path
		if err := wb.SetCell(row.Index, hm.Col(sheet.ColImage, 0), path); err != nil {
			return err
		}
	}

	row.Status = sheet.StatusGenerated
	row.GeneratedAt = sheet.Timestamp(r.now())
	return wb.WriteRow(hm, *row)
}

// BatchSummary counts what RunBatch did.
type BatchSummary struct {
	Generated int
	Failed    int
	SavedTo   string
	Alternate bool
}

// RunBatch writes a blog for every row that has a topic and an empty blog
// cell. Failures are logged per row and the loop moves on; the workbook is
// saved once at the end.
func (r *Runner) RunBatch(ctx context.Context) (BatchSummary, error) {
	var sum BatchSummary
	wb, err := r.open()
	if err != nil {
		return sum, err
	}
	defer wb.Close()

	topicCol, blogCol, err := batchColumns(wb)
	if err != nil {
		return sum, err
	}
	maxRow, err := wb.MaxRow()
	if err != nil {
		return sum, err
	}

	for idx := 2; idx <= maxRow; idx++ {
		if ctx.Err() != nil {
			r.log.Warn("batch interrupted", "row", idx, "error", ctx.Err())
			break
		}
		topic, err := wb.Cell(idx, topicCol)
		if err != nil {
			return sum, err
		}
		blog, err := wb.Cell(idx, blogCol)
		if err != nil {
			return sum, err
		}
		if strings.TrimSpace(topic) == "" || strings.TrimSpace(blog) != "" {
			continue
		}

		r.log.Info("generating blog", "row", idx, "topic", topic)
		post, err := r.agent.Generate(ctx, generator.BuildBlogPrompt(topic))
		if err != nil {
			sum.Failed++
			r.log.Error("blog generation failed", "row", idx, "topic", topic, "error", err)
			continue
		}
		if err := wb.SetCell(idx, blogCol, post); err != nil {
			return sum, err
		}
		sum.Generated++
		r.log.Info("blog saved to workbook", "row", idx, "topic", topic)
	}

	res, err := r.save(wb, r.log)
	if err != nil {
		return sum, err
	}
	sum.SavedTo, sum.Alternate = res.Path, res.Alternate
	r.log.Info("batch finished", "generated", sum.Generated, "failed", sum.Failed, "saved_to", res.Path)
	return sum, nil
}

// batchColumns uses the topic/blog headers when the sheet has them and the
// legacy fixed layout (topic in A, blog in B) otherwise.
func batchColumns(wb *sheet.Workbook) (int, int, error) {
	hm, err := wb.Headers()
	if err != nil {
		return 0, 0, err
	}
	if _, ok := hm[sheet.ColTopic]; !ok {
		return 1, 2, nil
	}
	hm, err = wb.EnsureColumns(sheet.ColBlog)
	if err != nil {
		return 0, 0, err
	}
	return hm[sheet.ColTopic], hm[sheet.ColBlog], nil
}

func (r *Runner) open() (*sheet.Workbook, error) {
	wb, err := sheet.Open(r.cfg.Workbook.Path, r.cfg.Workbook.Sheet)
	if err != nil {
		return nil, err
	}
	if wb.Locked() {
		r.log.Warn("workbook is locked by another process; results go to an alternate file", "path", wb.Path())
	}
	return wb, nil
}

func (r *Runner) save(wb *sheet.Workbook, log *logger.Logger) (sheet.SaveResult, error) {
	res, err := wb.Save()
	if err != nil {
		log.Error("failed to save workbook", "error", err)
		return res, fmt.Errorf("save workbook: %w", err)
	}
	if res.Alternate {
		log.Warn("original file locked, saved to alternate file", "path", res.Path, "reason", res.Reason)
	} else {
		log.Info("saved updates to workbook", "path", res.Path)
	}
	return res, nil
}
