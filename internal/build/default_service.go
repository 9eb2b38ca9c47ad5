package build

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mirage/internal/config"
	"git.home.luguber.info/inful/mirage/internal/content"
	"git.home.luguber.info/inful/mirage/internal/eventstore"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
	"git.home.luguber.info/inful/mirage/internal/metrics"
	"git.home.luguber.info/inful/mirage/internal/observability"
	"git.home.luguber.info/inful/mirage/internal/paginate"
	"git.home.luguber.info/inful/mirage/internal/render"
	"git.home.luguber.info/inful/mirage/internal/resources"
	"git.home.luguber.info/inful/mirage/internal/templates"
)

// Stage names, in execution order.
const (
	StageClean     = "clean"
	StageSkeleton  = "skeleton"
	StageTemplates = "templates"
	StageResources = "resources"
	StageBase      = "base"
	StageContent   = "content"
	StageNav       = "nav"
	StageItems     = "items"
	StageIndex     = "index"
	StagePublish   = "publish"
)

// DefaultService is the standard implementation of Service.
type DefaultService struct {
	converter content.Converter
	minifier  resources.Minifier
	recorder  metrics.Recorder
	journal   eventstore.Store
	newID     func() string
}

// NewService creates a DefaultService with the goldmark converter, the
// tdewolff minifier and no metrics or journal.
func NewService() *DefaultService {
	return &DefaultService{
		converter: content.NewGoldmarkConverter(),
		minifier:  resources.NewTdewolffMinifier(),
		recorder:  metrics.NoopRecorder{},
		newID:     uuid.NewString,
	}
}

// WithConverter replaces the Markdown converter.
func (s *DefaultService) WithConverter(c content.Converter) *DefaultService {
	s.converter = c
	return s
}

// WithMinifier replaces the CSS/JS minifier.
func (s *DefaultService) WithMinifier(m resources.Minifier) *DefaultService {
	s.minifier = m
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// WithJournal sets the build journal. Journal failures are logged, never fatal.
func (s *DefaultService) WithJournal(j eventstore.Store) *DefaultService {
	s.journal = j
	return s
}

// state carries one compile through its stages.
type state struct {
	req     Request
	paths   config.Paths
	output  string
	staging string
	buildID string
	result  *Result

	tpl   templates.Store
	css   []string
	js    []string
	base  string
	pages []content.Item
	posts []content.Item
}

type stageFunc func(ctx context.Context, st *state) error

// Run executes a full compile and publishes it atomically.
func (s *DefaultService) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	buildID := s.newID()
	result := &Result{BuildID: buildID, StartTime: start}

	ctx = observability.WithBuildID(ctx, buildID)
	if req.Trigger != "" {
		ctx = observability.WithTrigger(ctx, req.Trigger)
	}

	if req.Config == nil {
		return s.fail(ctx, nil, result, "", StatusFailed, ferrors.ConfigError("config required").Build())
	}

	paths := req.Config.Paths()
	output := req.OutputDir
	if output == "" {
		output = paths.Output
	}
	st := &state{
		req:     req,
		paths:   paths,
		output:  output,
		staging: StagingDir(output, buildID),
		buildID: buildID,
		result:  result,
	}
	result.OutputPath = output

	observability.InfoContext(ctx, "Compiling blog", logfields.Path(paths.Root))
	s.record(ctx, buildID, eventstore.TypeBuildStarted, eventstore.BuildStartedPayload{Trigger: req.Trigger, Root: paths.Root})

	stages := []struct {
		name string
		fn   stageFunc
	}{
		{StageClean, s.stageClean},
		{StageSkeleton, s.stageSkeleton},
		{StageTemplates, s.stageTemplates},
		{StageResources, s.stageResources},
		{StageBase, s.stageBase},
		{StageContent, s.stageContent},
		{StageNav, s.stageNav},
		{StageItems, s.stageItems},
		{StageIndex, s.stageIndex},
		{StagePublish, s.stagePublish},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, st, result, stage.name, StatusCancelled, err)
		}
		stageStart := time.Now()
		stageCtx := observability.WithStage(ctx, stage.name)
		if err := stage.fn(stageCtx, st); err != nil {
			status := StatusFailed
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = StatusCancelled
			}
			return s.fail(stageCtx, st, result, stage.name, status, err)
		}
		d := time.Since(stageStart)
		s.recorder.ObserveStageDuration(stage.name, d)
		s.recorder.IncStageResult(stage.name, metrics.ResultSuccess)
		s.record(ctx, buildID, eventstore.TypeStageCompleted, eventstore.StageCompletedPayload{Stage: stage.name, DurationMS: d.Milliseconds()})
	}

	result.Status = StatusSuccess
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	c := result.Counts
	s.recorder.AddFilesWritten(string(content.KindPage), c.Pages)
	s.recorder.AddFilesWritten(string(content.KindPost), c.Posts)
	s.recorder.AddFilesWritten("index", c.ListingPages)
	s.recorder.AddFilesWritten(string(resources.KindCSS), c.CSS)
	s.recorder.AddFilesWritten(string(resources.KindJS), c.JS)
	s.recorder.AddFilesWritten(string(resources.KindImage), c.Images)
	s.recorder.AddFilesWritten(string(resources.KindFavicon), c.Favicons)
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	s.recorder.ObserveBuildDuration(result.Duration)
	s.record(ctx, buildID, eventstore.TypeBuildCompleted, eventstore.BuildCompletedPayload{
		Pages:        c.Pages,
		Posts:        c.Posts,
		ListingPages: c.ListingPages,
		CSS:          c.CSS,
		JS:           c.JS,
		Images:       c.Images,
		Favicons:     c.Favicons,
		Skipped:      c.Skipped,
		DurationMS:   result.Duration.Milliseconds(),
	})
	observability.InfoContext(ctx, "Compile complete",
		slog.Int("pages", c.Pages),
		slog.Int("posts", c.Posts),
		slog.Int("listing_pages", c.ListingPages),
		slog.Int("skipped", c.Skipped),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

func (s *DefaultService) fail(ctx context.Context, st *state, result *Result, stage string, status Status, err error) (*Result, error) {
	if st != nil {
		abort(st.staging)
	}
	result.Status = status
	result.FailedStage = stage
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	outcome := metrics.BuildOutcomeFailed
	stageResult := metrics.ResultFatal
	if status == StatusCancelled {
		outcome = metrics.BuildOutcomeCanceled
		stageResult = metrics.ResultCanceled
	}
	if stage != "" {
		s.recorder.IncStageResult(stage, stageResult)
	}
	s.recorder.IncBuildOutcome(outcome)
	s.recorder.ObserveBuildDuration(result.Duration)
	s.record(ctx, result.BuildID, eventstore.TypeBuildFailed, eventstore.BuildFailedPayload{
		Stage:      stage,
		Status:     string(status),
		Error:      err.Error(),
		DurationMS: result.Duration.Milliseconds(),
	})
	if status == StatusCancelled {
		observability.WarnContext(ctx, "Compile cancelled")
	} else {
		observability.ErrorContext(ctx, "Compile failed", logfields.Error(err),
			logfields.ErrorCategory(string(ferrors.GetCategory(err))))
	}
	return result, err
}

// record appends an event to the journal when one is configured.
func (s *DefaultService) record(ctx context.Context, buildID, eventType string, payload any) {
	if s.journal == nil {
		return
	}
	e, err := eventstore.NewEvent(buildID, eventType, payload)
	if err == nil {
		err = eventstore.AppendEvent(ctx, s.journal, e)
	}
	if err != nil {
		observability.WarnContext(ctx, "Failed to journal build event", logfields.Event(eventType), logfields.Error(err))
	}
}

// skip returns a callback that counts and journals skipped inputs of kind.
func (s *DefaultService) skip(ctx context.Context, st *state, kind string) func(path, reason string) {
	return func(path, reason string) {
		st.result.Counts.Skipped++
		s.recorder.IncSkipped(kind)
		s.record(ctx, st.buildID, eventstore.TypeItemSkipped, eventstore.ItemSkippedPayload{Kind: kind, Path: path, Reason: reason})
	}
}

func (s *DefaultService) stageClean(_ context.Context, st *state) error {
	removeStaleStaging(st.output, staleStagingAge)
	if err := os.RemoveAll(st.staging); err != nil {
		return fsError(err, "failed to clean staging directory", st.staging)
	}
	if err := os.MkdirAll(st.staging, 0o755); err != nil {
		return fsError(err, "failed to create staging directory", st.staging)
	}
	return nil
}

func (s *DefaultService) stageSkeleton(_ context.Context, st *state) error {
	dirs := []string{
		filepath.Join(st.staging, "posts"),
		filepath.Join(st.staging, resources.OutputDir(resources.KindCSS)),
		filepath.Join(st.staging, resources.OutputDir(resources.KindJS)),
		filepath.Join(st.staging, resources.OutputDir(resources.KindImage)),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fsError(err, "failed to create output directory", d)
		}
	}
	return nil
}

func (s *DefaultService) stageTemplates(ctx context.Context, st *state) error {
	tpl, err := templates.Load(ctx, st.paths.Templates)
	if err != nil {
		return err
	}
	if err := tpl.Require(); err != nil {
		return err
	}
	observability.InfoContext(ctx, "All required templates found", logfields.Count(len(tpl)))
	st.tpl = tpl
	return nil
}

func (s *DefaultService) stageResources(ctx context.Context, st *state) error {
	res, err := resources.NewPipeline(s.minifier).
		OnSkip(s.skip(ctx, st, "resource")).
		Process(ctx, st.paths.Resources, st.staging)
	if err != nil {
		return err
	}
	c := &st.result.Counts
	c.CSS, c.JS, c.Images, c.Favicons = len(res.CSS), len(res.JS), res.Images, res.Favicons
	st.css, st.js = res.CSS, res.JS
	return nil
}

func (s *DefaultService) stageBase(_ context.Context, st *state) error {
	cfg := st.req.Config
	st.base = render.Base(st.tpl.Raw(templates.Base),
		render.Styles(st.css), render.Scripts(st.js), cfg.BlogTitle, cfg.BlogSubtitle)
	return nil
}

func (s *DefaultService) stageContent(ctx context.Context, st *state) error {
	var err error
	pageLoader := content.NewLoader(s.converter).OnSkip(s.skip(ctx, st, string(content.KindPage)))
	if st.pages, err = pageLoader.LoadAll(ctx, st.paths.Pages, content.KindPage); err != nil {
		return err
	}
	postLoader := content.NewLoader(s.converter).OnSkip(s.skip(ctx, st, string(content.KindPost)))
	if st.posts, err = postLoader.LoadAll(ctx, st.paths.Posts, content.KindPost); err != nil {
		return err
	}
	all := make([]content.Item, 0, len(st.pages)+len(st.posts))
	all = append(all, st.pages...)
	all = append(all, st.posts...)
	return content.CheckUnique(all)
}

func (s *DefaultService) stageNav(_ context.Context, st *state) error {
	st.base = render.Nav(st.base, st.pages)
	return nil
}

func (s *DefaultService) stageItems(ctx context.Context, st *state) error {
	postTpl := st.tpl.Raw(templates.Post)
	for _, page := range st.pages {
		if err := writeOutput(ctx, filepath.Join(st.staging, filepath.FromSlash(page.OutputPath())), render.Item(st.base, postTpl, page)); err != nil {
			return err
		}
		st.result.Counts.Pages++
	}
	for _, post := range st.posts {
		if err := writeOutput(ctx, filepath.Join(st.staging, "posts", filepath.FromSlash(post.OutputPath())), render.Item(st.base, postTpl, post)); err != nil {
			return err
		}
		st.result.Counts.Posts++
	}
	return nil
}

func (s *DefaultService) stageIndex(ctx context.Context, st *state) error {
	posts := make([]content.Item, len(st.posts))
	copy(posts, st.posts)
	paginate.SortPosts(posts)

	pages := paginate.Chunk(posts, paginate.PageSize)
	if len(pages) == 0 {
		pages = []paginate.Page{{Number: 1}}
	}
	postTpl := st.tpl.Raw(templates.Post)
	for _, p := range pages {
		html := render.Listing(st.base, postTpl, p.Items, paginate.Nav(len(pages), p.Number))
		if err := writeOutput(ctx, filepath.Join(st.staging, filepath.FromSlash(paginate.OutputPath(p.Number))), html); err != nil {
			return err
		}
		st.result.Counts.ListingPages++
	}
	observability.InfoContext(ctx, "Wrote index files", logfields.Count(len(pages)))
	return nil
}

func (s *DefaultService) stagePublish(ctx context.Context, st *state) error {
	if err := promote(st.staging, st.output); err != nil {
		return fsError(err, "failed to publish output", st.output)
	}
	st.staging = ""
	observability.InfoContext(ctx, "Published site", logfields.Path(st.output))
	return nil
}

// writeOutput creates path exclusively; an existing file means two outputs
// map to the same path.
func writeOutput(ctx context.Context, path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fsError(err, "failed to create output directory", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ferrors.ContentError("output path collision").WithContext("path", path).Build()
		}
		return fsError(err, "failed to create output file", path)
	}
	if _, err := f.WriteString(data); err != nil {
		_ = f.Close()
		return fsError(err, "failed to write output file", path)
	}
	if err := f.Close(); err != nil {
		return fsError(err, "failed to close output file", path)
	}
	observability.DebugContext(ctx, "Wrote file", logfields.Path(path))
	return nil
}

func fsError(err error, msg, path string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, msg).
		WithContext("path", path).
		Fatal().
		Build()
}
