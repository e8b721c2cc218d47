package download

import (
	"fmt"

	"github.com/handiism/neko-downloader/internal/config"
	"github.com/handiism/neko-downloader/internal/http"
	"github.com/handiism/neko-downloader/internal/identity"
	"github.com/handiism/neko-downloader/internal/logging"
	"github.com/handiism/neko-downloader/internal/progress"
	"github.com/handiism/neko-downloader/internal/source"
)

// NewManager creates a Manager wired from settings: identity pool, cookie
// jar, fetch client (with the browser challenge solver when enabled),
// progress store, content source and run log. Close releases the store and
// log file; cookies are saved at the end of every Run.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	srcCfg, err := settings.ToSourceConfig()
	if err != nil {
		return nil, err
	}
	src, err := source.New(settings.Profile, srcCfg)
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{Level: settings.LogLevel}
	if settings.LogToFile {
		logOpts.Dir = settings.LogPath()
	}
	logger := logging.New(logOpts)

	cookiesPath := settings.CookiesPath()
	jar, err := http.LoadCookieJar(cookiesPath)
	if err != nil {
		logger.Close()
		return nil, err
	}

	clientCfg := settings.ToClientConfig()
	clientOpts := []http.Option{http.WithLogger(logger.Logger)}
	if settings.ChallengeSolver == "browser" {
		wait := config.Seconds(settings.BrowserWait)
		clientOpts = append(clientOpts, http.WithChallengeSolver(http.NewBrowserSolver(wait, clientCfg.Timeout+wait)))
	}
	client := http.NewClient(clientCfg, identity.NewPool(settings.Proxies), jar, clientOpts...)

	store, err := progress.Open(settings.ProgressBackend, settings.ProgressPath())
	if err != nil {
		logger.Close()
		return nil, err
	}

	m := NewManagerWith(settings, Deps{
		Client: client,
		Source: src,
		Store:  store,
		Logger: logger.Logger,
		RunID:  logger.RunID,
	}, onProgress, WithAfterRun(func() error {
		return jar.Save(cookiesPath)
	}))
	m.closers = []func() error{store.Close, logger.Close}

	if logger.Path != "" {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Logging to %s", logger.Path), Level: LevelVerbose})
	}
	return m, nil
}
