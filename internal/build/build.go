// Package build runs the whole site generation: load the event records,
// plan the calendars, render the page, stage everything and swap it in.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"onevents/internal/capture"
	"onevents/internal/config"
	"onevents/internal/events"
	"onevents/internal/ics"
	appLog "onevents/internal/log"
	"onevents/internal/metrics"
	"onevents/internal/model"
	"onevents/internal/publish"
	"onevents/internal/site"
)

// Report summarizes a finished run.
type Report struct {
	Events     int
	Upcoming   int
	Documents  int
	Records    []model.PublicationRecord
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Pipeline is configured once and run any number of times.
type Pipeline struct {
	cfg     *config.Config
	loc     *time.Location
	metrics *metrics.Recorder

	// Now is the clock of the run. time.Now when nil.
	Now func() time.Time
}

// New validates cfg. rec may be nil.
func New(cfg *config.Config, rec *metrics.Recorder) (*Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, loc: loc, metrics: rec}, nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) builder() *ics.Builder {
	c := p.cfg
	return &ics.Builder{
		ProductID: c.Calendar.ProductID,
		UIDDomain: c.Calendar.UIDDomain,
		UTM:       c.UTM,
		Now:       p.now,
	}
}

func (p *Pipeline) publisher() *publish.Publisher {
	c := p.cfg
	return &publish.Publisher{
		Builder: p.builder(),
		BaseURL: c.BaseURL,
		Meta: ics.PublicMeta{
			Name:            c.Calendar.Name,
			Description:     c.Calendar.Description,
			Timezone:        c.Timezone,
			RefreshInterval: c.Calendar.RefreshInterval,
		},
	}
}

// Run performs one build. Nothing under OutputDir changes unless the whole
// run succeeds.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	rep, err := p.run(ctx)
	rep.FinishedAt = p.now()

	if p.metrics != nil {
		p.metrics.Observe(metrics.Build{
			Events:    rep.Events,
			Upcoming:  rep.Upcoming,
			Documents: rep.Documents,
			Duration:  rep.Duration(),
			Err:       err,
			At:        rep.FinishedAt,
		})
		if werr := p.metrics.WriteTextfile(p.cfg.MetricsFile); werr != nil {
			appLog.Error("write metrics failed", werr, "path", p.cfg.MetricsFile)
		}
	}
	if err != nil {
		return rep, err
	}

	appLog.Info("build completed",
		"events", rep.Events,
		"upcoming", rep.Upcoming,
		"documents", rep.Documents,
		"duration", rep.Duration().String(),
	)
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context) (Report, error) {
	c := p.cfg
	started := p.now()
	rep := Report{StartedAt: started}
	today := model.DateOf(started.In(p.loc))

	all, err := events.LoadDir(c.EventsDir)
	if err != nil {
		return rep, err
	}
	rep.Events = len(all)

	plan, err := p.publisher().Plan(all, today)
	if err != nil {
		return rep, err
	}
	rep.Upcoming = len(plan.Upcoming)
	rep.Records = plan.Records

	tmpl, err := os.ReadFile(c.Template)
	if err != nil {
		return rep, fmt.Errorf("read template: %w", err)
	}
	page, err := site.Render(site.Page{
		Template:  string(tmpl),
		Events:    plan.Upcoming,
		Records:   plan.Records,
		BuildDate: started.In(p.loc),
		UTM:       c.UTM,
	})
	if err != nil {
		return rep, err
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	stage, err := publish.NewStaging(c.OutputDir)
	if err != nil {
		return rep, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if derr := stage.Discard(); derr != nil {
			appLog.Error("remove staging dir failed", derr, "path", stage.Dir)
		}
	}()

	if err := stage.WriteFile("index.html", []byte(page)); err != nil {
		return rep, err
	}
	if err := stage.WritePlan(plan); err != nil {
		return rep, err
	}
	rep.Documents = len(plan.Files())

	if err := site.CopyAssets(stage.Dir, c.Assets...); err != nil {
		return rep, err
	}

	if c.Preview.Enabled {
		p.preview(ctx, stage.Dir)
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if err := stage.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

// preview screenshots the staged page. A failed preview is logged and
// does not fail the build.
func (p *Pipeline) preview(ctx context.Context, dir string) {
	pageURL, err := capture.FileURL(filepath.Join(dir, "index.html"))
	if err != nil {
		appLog.Error("preview url failed", err)
		return
	}
	opts := capture.Options{
		URL:        pageURL,
		OutputPath: filepath.Join(dir, filepath.FromSlash(p.cfg.Preview.Output)),
		Width:      p.cfg.Preview.Width,
		Height:     p.cfg.Preview.Height,
		Timeout:    p.cfg.Preview.Timeout,
	}
	if err := capture.CapturePagePNG(ctx, opts); err != nil {
		appLog.Error("preview capture failed", err)
		return
	}
	appLog.Info("preview captured", "path", opts.OutputPath)
}
