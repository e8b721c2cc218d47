package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/neko-downloader/internal/config"
	"github.com/handiism/neko-downloader/internal/http"
	"github.com/handiism/neko-downloader/internal/identity"
	ioutils "github.com/handiism/neko-downloader/internal/io"
	"github.com/handiism/neko-downloader/internal/model"
	"github.com/handiism/neko-downloader/internal/progress"
	"github.com/handiism/neko-downloader/internal/retry"
	"github.com/handiism/neko-downloader/internal/source"
)

// Fetcher is the part of the fetch client the Manager uses.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (*http.Response, error)
	FetchAPI(ctx context.Context, url string) (*http.Response, error)
	FetchAsset(ctx context.Context, url, referer string) (*http.Response, error)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Client Fetcher
	Source source.ContentSource
	Store  progress.Store
	Logger *log.Logger

	// RunID tags log lines. Empty generates one.
	RunID string
}

// Option configures a Manager.
type Option func(*Manager)

// WithSleep replaces the pacing delay function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = sleep }
}

// WithJitter replaces the pacing jitter source.
func WithJitter(jitter func(min, max time.Duration) time.Duration) Option {
	return func(m *Manager) { m.jitter = jitter }
}

// WithAfterRun sets a hook called once at the end of every Run, whatever
// its outcome. It is used to persist cookies.
func WithAfterRun(fn func() error) Option {
	return func(m *Manager) { m.afterRun = fn }
}

// Summary reports the outcome of a Run.
type Summary struct {
	RunID  string
	Series string
	Units  int

	// Skipped units were already completed before the run.
	Skipped    int
	Completed  int
	Incomplete int
	Failed     int

	// NotProcessed units never got a status, because the run was cancelled
	// or aborted first.
	NotProcessed int

	Retried   retry.DrainResult
	Cancelled bool
}

type pass int

const (
	mainPass pass = iota
	retryPass
)

// outstanding tracks the asset retries queued for one unit.
type outstanding struct {
	unit      *model.Unit
	queued    int
	succeeded int
}

// Manager downloads every unit of a series.
type Manager struct {
	settings *config.Settings
	client   Fetcher
	source   source.ContentSource
	store    progress.Store
	retries  *retry.Queue
	logger   *log.Logger
	runID    string

	sleep    func(ctx context.Context, d time.Duration) error
	jitter   func(min, max time.Duration) time.Duration
	afterRun func() error
	closers  []func() error

	onProgress func(ProgressEvent)

	unitsTotal       atomic.Int32
	unitsDone        atomic.Int32
	assetsDownloaded atomic.Int32

	mu       sync.Mutex
	statuses map[string]model.Status
	skipped  map[string]bool
	pending  map[string]*outstanding
}

// NewManagerWith creates a Manager over explicit collaborators.
func NewManagerWith(settings *config.Settings, deps Deps, onProgress func(ProgressEvent), opts ...Option) *Manager {
	if deps.RunID == "" {
		deps.RunID = uuid.NewString()
	}
	if deps.Logger == nil {
		deps.Logger = &log.Logger{Level: log.ErrorLevel, Writer: log.IOWriter{Writer: io.Discard}}
	}

	if settings.MaxConcurrentUnits < 1 {
		clamped := *settings
		clamped.MaxConcurrentUnits = 1
		settings = &clamped
	}

	m := &Manager{
		settings:   settings,
		client:     deps.Client,
		source:     deps.Source,
		store:      deps.Store,
		retries:    retry.NewQueue(),
		logger:     deps.Logger,
		runID:      deps.RunID,
		sleep:      http.Sleep,
		jitter:     http.Jitter,
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunID returns the correlation id of the Manager's log lines.
func (m *Manager) RunID() string {
	return m.runID
}

// Source returns the content source in use.
func (m *Manager) Source() source.ContentSource {
	return m.source
}

// GetProgress returns the number of units with a final status, the number
// of units in the series and the number of assets written this run.
func (m *Manager) GetProgress() (unitsDone, unitsTotal, assets int32) {
	return m.unitsDone.Load(), m.unitsTotal.Load(), m.assetsDownloaded.Load()
}

// ListUnits resolves root without downloading anything.
func (m *Manager) ListUnits(ctx context.Context, root string) (*model.Series, error) {
	return m.source.ListUnits(ctx, root, m.documentFetcher())
}

// Run downloads the series at root.
//
// Units run on a bounded worker pool. Failures are queued and retried once
// after every worker is done. Run returns identity.ErrProxiesExhausted when
// the proxy pool runs dry, and ctx.Err() when cancelled; the Summary is
// valid in both cases.
func (m *Manager) Run(ctx context.Context, root string) (*Summary, error) {
	m.reset()
	summary := &Summary{RunID: m.runID}
	defer m.finish()

	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching unit list: %s", root), Level: LevelInfo})
	m.logger.Info().Str("root", root).Str("source", m.source.Name()).Msg("Run started")

	series, err := m.ListUnits(ctx, root)
	if errors.Is(err, source.ErrNoUnits) && series != nil {
		summary.Series = series.Title
		m.progress(ProgressEvent{Message: fmt.Sprintf("No units found for %s", root), Level: LevelWarning})
		m.logger.Warn().Str("root", root).Str("series", series.Title).Msg("No units found")
		return summary, nil
	}
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error listing units of %s: %v", root, err), Level: LevelError})
		m.logger.Error().Str("root", root).Err(err).Msg("Listing units failed")
		if ctx.Err() != nil {
			summary.Cancelled = true
			return summary, ctx.Err()
		}
		return summary, err
	}

	summary.Series = series.Title
	summary.Units = len(series.Units)
	m.unitsTotal.Store(int32(len(series.Units)))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Found series: %s (%d units)", series.Title, len(series.Units)), Level: LevelInfo})

	baseDir := m.seriesDir(series)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.MaxConcurrentUnits)

	for _, unit := range series.Units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return m.processUnit(gctx, unit, baseDir, mainPass)
		})
	}

	fatal := g.Wait()
	switch {
	case fatal != nil:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Aborting run: %v", fatal), Level: LevelError})
		m.logger.Error().Err(fatal).Msg("Run aborted")
		m.dropRetries()
	case ctx.Err() != nil:
		m.progress(ProgressEvent{Message: "Download cancelled", Level: LevelWarning})
		m.dropRetries()
	default:
		summary.Retried, fatal = m.drainRetries(ctx, baseDir)
		if fatal != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Aborting retry pass: %v", fatal), Level: LevelError})
		}
	}

	m.tally(series, summary)

	if fatal == nil && ctx.Err() != nil {
		summary.Cancelled = true
		return summary, ctx.Err()
	}
	if fatal != nil {
		return summary, fatal
	}

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Finished %s: %d completed, %d skipped, %d incomplete, %d failed",
			series.Title, summary.Completed, summary.Skipped, summary.Incomplete, summary.Failed),
		Level: LevelSuccess,
	})
	return summary, nil
}

// Close releases the progress store and log file opened by NewManager.
func (m *Manager) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unitsTotal.Store(0)
	m.unitsDone.Store(0)
	m.assetsDownloaded.Store(0)
	m.statuses = make(map[string]model.Status)
	m.skipped = make(map[string]bool)
	m.pending = make(map[string]*outstanding)
}

func (m *Manager) finish() {
	if m.afterRun == nil {
		return
	}
	if err := m.afterRun(); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving cookies: %v", err), Level: LevelWarning})
		m.logger.Warn().Err(err).Msg("After-run hook failed")
	}
}

func (m *Manager) documentFetcher() source.PageFetcher {
	if source.IsAPI(m.source) {
		return m.client.FetchAPI
	}
	return m.client.FetchPage
}

func (m *Manager) seriesDir(series *model.Series) string {
	if !m.settings.SeriesFolder {
		return m.settings.OutputDir
	}
	name := model.SanitizeFileName(series.Title)
	if name == "" {
		name = source.DefaultSeriesTitle
	}
	return filepath.Join(m.settings.OutputDir, name)
}

func (m *Manager) processUnit(ctx context.Context, unit *model.Unit, baseDir string, p pass) error {
	if ctx.Err() != nil {
		return nil
	}

	key := unit.Key()
	recorded, ok, err := m.store.Get(key)
	if err != nil {
		// Unknown progress: leave the unit alone rather than fetch it again.
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error reading progress of %s: %v", displayName(unit), err), Level: LevelError})
		m.logger.Error().Str("unit", key).Err(err).Msg("Progress read failed")
		return nil
	}
	if ok && recorded == model.StatusCompleted {
		unit.Status = model.StatusCompleted
		m.markSkipped(key)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping completed: %s", displayName(unit)), Level: LevelVerbose})
		return nil
	}

	unit.Status = model.StatusFetching
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading: %s", displayName(unit)), Level: LevelInfo})

	page, err := m.documentFetcher()(ctx, unit.URL)
	if err != nil {
		switch {
		case isFatal(err):
			return err
		case isCancelled(ctx, err):
			return nil
		case p == mainPass:
			m.retries.Enqueue(model.UnitRetry(unit, err))
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error fetching %s, queued for retry: %v", displayName(unit), err), Level: LevelWarning})
			m.logger.Warn().Str("unit", key).Err(err).Msg("Unit page failed, queued")
			return nil
		default:
			m.setStatus(unit, model.StatusFailed)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error fetching %s: %v", displayName(unit), err), Level: LevelError})
			return err
		}
	}

	content, err := m.source.ListAssets(unit, page)
	if err != nil || content == nil || len(content.Assets) == 0 {
		if err == nil {
			err = source.ErrNoAssets
		}
		m.setStatus(unit, model.StatusIncomplete)
		m.progress(ProgressEvent{Message: fmt.Sprintf("No assets for %s: %v", displayName(unit), err), Level: LevelWarning})
		m.logger.Warn().Str("unit", key).Err(err).Msg("Extraction failed")
		return nil
	}

	unitDir := filepath.Join(baseDir, unitDirName(unit, content.Title))
	total := len(content.Assets)
	downloaded, failed := 0, 0
	var queued []*model.Asset

	for i, ref := range content.Assets {
		if ctx.Err() != nil {
			return nil
		}

		asset := model.NewAsset(unit, unitDir, i+1, ref, m.settings.DefaultExtension)
		fetched, err := m.downloadAsset(ctx, asset)
		switch {
		case err == nil:
			downloaded++
		case isFatal(err):
			return err
		case isCancelled(ctx, err):
			return nil
		default:
			failed++
			if p == mainPass {
				queued = append(queued, asset)
				m.retries.Enqueue(model.AssetRetry(asset, err))
			}
			action := "downloading"
			if ioutils.IsFSError(err) {
				action = "writing"
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error %s %s: %v", action, filepath.Base(asset.Path), err), Level: LevelWarning})
			m.logger.Warn().Str("unit", key).Str("asset", asset.URL).Bool("filesystem", ioutils.IsFSError(err)).Err(err).Msg("Asset failed")
		}

		if fetched {
			m.pace(ctx)
		}
	}

	if len(queued) > 0 {
		m.trackOutstanding(unit, len(queued))
	}

	status := model.UnitStatus(downloaded, failed, total)
	m.setStatus(unit, status)

	switch status {
	case model.StatusCompleted:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Completed: %s (%d assets)", displayName(unit), total), Level: LevelSuccess})
	case model.StatusFailed:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Failed: %s (0/%d assets)", displayName(unit), total), Level: LevelError})
	default:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Incomplete: %s (%d/%d assets)", displayName(unit), downloaded, total), Level: LevelWarning})
	}
	return nil
}

// downloadAsset makes sure asset is on disk. fetched reports whether a
// network request was made.
func (m *Manager) downloadAsset(ctx context.Context, asset *model.Asset) (fetched bool, err error) {
	if ioutils.Exists(asset.Path) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", filepath.Base(asset.Path)), Level: LevelVerbose})
		return false, nil
	}

	if asset.Data != nil {
		return false, ioutils.WriteFileAtomic(asset.Path, asset.Data)
	}

	resp, err := m.client.FetchAsset(ctx, asset.URL, asset.Referer)
	if err != nil {
		return true, err
	}

	if m.settings.VerifyImages && ioutils.IsImagePath(asset.Path) {
		if err := ioutils.VerifyImage(resp.Body); err != nil {
			return true, fmt.Errorf("%s: %w", asset.URL, err)
		}
	}

	if err := ioutils.WriteFileAtomic(asset.Path, resp.Body); err != nil {
		return true, err
	}

	m.assetsDownloaded.Add(1)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(asset.Path)), Level: LevelVerbose})
	return true, nil
}

func (m *Manager) pace(ctx context.Context) {
	_ = m.sleep(ctx, m.jitter(config.Seconds(m.settings.AssetPacingMin), config.Seconds(m.settings.AssetPacingMax)))
}

func (m *Manager) drainRetries(ctx context.Context, baseDir string) (retry.DrainResult, error) {
	if m.retries.Len() == 0 {
		return retry.DrainResult{}, nil
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Retrying %d failed items", m.retries.Len()), Level: LevelInfo})

	drainCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatal error
	res, _ := m.retries.Drain(drainCtx, func(ctx context.Context, item model.RetryItem) error {
		var err error
		switch item.Kind {
		case model.RetryUnit:
			err = m.processUnit(ctx, item.Unit, baseDir, retryPass)
		case model.RetryAsset:
			err = m.retryAsset(ctx, item.Asset)
		}
		if isFatal(err) {
			fatal = err
			cancel()
		}
		if err != nil {
			m.logger.Warn().Str("kind", item.Kind.String()).Str("reason", item.Reason).Err(err).Msg("Retry failed, dropped")
		}
		return err
	})

	if res.Dropped > 0 {
		m.logger.Warn().Int("dropped", res.Dropped).Msg("Retry pass interrupted")
	}
	return res, fatal
}

func (m *Manager) retryAsset(ctx context.Context, asset *model.Asset) error {
	fetched, err := m.downloadAsset(ctx, asset)
	if fetched {
		m.pace(ctx)
	}
	if err != nil {
		if !isFatal(err) && !isCancelled(ctx, err) {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Retry failed for %s: %v", filepath.Base(asset.Path), err), Level: LevelError})
		}
		return err
	}

	if unit := m.assetRecovered(asset.UnitKey); unit != nil {
		m.setStatus(unit, model.StatusCompleted)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Completed after retry: %s", displayName(unit)), Level: LevelSuccess})
	}
	return nil
}

func (m *Manager) trackOutstanding(unit *model.Unit, queued int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[unit.Key()] = &outstanding{unit: unit, queued: queued}
}

// assetRecovered records a successful asset retry and returns the unit once
// its last queued asset has succeeded.
func (m *Manager) assetRecovered(unitKey string) *model.Unit {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.pending[unitKey]
	if !ok {
		return nil
	}
	o.succeeded++
	if o.succeeded < o.queued {
		return nil
	}
	delete(m.pending, unitKey)
	return o.unit
}

func (m *Manager) dropRetries() {
	if n := m.retries.Discard(); n > 0 {
		m.logger.Warn().Int("dropped", n).Msg("Retry queue discarded")
	}
}

func (m *Manager) setStatus(unit *model.Unit, status model.Status) {
	unit.Status = status

	m.mu.Lock()
	if _, seen := m.statuses[unit.Key()]; !seen {
		m.unitsDone.Add(1)
	}
	m.statuses[unit.Key()] = status
	m.mu.Unlock()

	if err := m.store.Set(unit.Key(), status); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving progress for %s: %v", displayName(unit), err), Level: LevelError})
		m.logger.Error().Str("unit", unit.Key()).Err(err).Msg("Progress write failed")
		return
	}
	m.logger.Info().Str("unit", unit.Key()).Str("status", string(status)).Msg("Unit status")
}

func (m *Manager) markSkipped(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.skipped[key] {
		m.unitsDone.Add(1)
	}
	m.skipped[key] = true
}

func (m *Manager) tally(series *model.Series, s *Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, unit := range series.Units {
		key := unit.Key()
		if m.skipped[key] {
			s.Skipped++
			continue
		}
		switch m.statuses[key] {
		case model.StatusCompleted:
			s.Completed++
		case model.StatusIncomplete:
			s.Incomplete++
		case model.StatusFailed:
			s.Failed++
		default:
			s.NotProcessed++
		}
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

func unitDirName(unit *model.Unit, title string) string {
	for _, candidate := range []string{title, unit.Name, unit.FallbackName()} {
		if name := model.SanitizeFileName(candidate); name != "" {
			return name
		}
	}
	return "unit"
}

func displayName(unit *model.Unit) string {
	if unit.Name != "" {
		return unit.Name
	}
	return unit.URL
}

func isFatal(err error) bool {
	return errors.Is(err, identity.ErrProxiesExhausted)
}

func isCancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
