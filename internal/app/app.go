// Package app wires the sign recognition demo together: models, translator,
// store, session supervisor and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mdobak/go-xerrors"

	"github.com/silenttalk/signlens/internal/capture"
	"github.com/silenttalk/signlens/internal/classifier"
	"github.com/silenttalk/signlens/internal/config"
	"github.com/silenttalk/signlens/internal/landmark"
	"github.com/silenttalk/signlens/internal/lgr"
	"github.com/silenttalk/signlens/internal/metrics"
	"github.com/silenttalk/signlens/internal/pipeline"
	"github.com/silenttalk/signlens/internal/server"
	"github.com/silenttalk/signlens/internal/session"
	"github.com/silenttalk/signlens/internal/store"
	"github.com/silenttalk/signlens/internal/stream"
	"github.com/silenttalk/signlens/internal/translate"
)

// shutdownTimeout bounds how long Run waits for open requests on exit.
const shutdownTimeout = 5 * time.Second

// Option overrides a component New would otherwise build from config.
type Option func(*App)

// WithExtractor replaces the MediaPipe extractor. The live stream and
// the recognizer share e.
func WithExtractor(e landmark.Extractor) Option {
	return func(a *App) { a.extractor = e }
}

// WithClassifier replaces the ONNX classifier.
func WithClassifier(c classifier.Classifier) Option {
	return func(a *App) { a.classifier = c }
}

// WithTranslator replaces the configured translator backend. The cache
// and phrasebook fallback still wrap it.
func WithTranslator(t translate.Translator) Option {
	return func(a *App) { a.primary = t }
}

// WithSources replaces the webcam and file source constructors.
func WithSources(webcam func(int) capture.Source, file func(string) capture.Source) Option {
	return func(a *App) {
		a.webcam = webcam
		a.file = file
	}
}

// WithLogger replaces lgr.Logger for every component.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// App owns every long-lived component of the server.
type App struct {
	cfg *config.Config
	log *slog.Logger

	store        *store.Store
	newExtractor func() (landmark.Extractor, error)
	extractor    landmark.Extractor
	recExtractor landmark.Extractor
	classifier   classifier.Classifier
	primary      translate.Translator
	service      *translate.Service
	translator   translate.Translator
	webcam       func(int) capture.Source
	file         func(string) capture.Source

	metrics    *metrics.Metrics
	frames     *stream.Broadcaster
	hub        *server.Hub
	listeners  *Listeners
	session    *session.Supervisor
	recognizer *Recognizer
	server     *server.Server

	closeOnce sync.Once
}

// New builds the application from cfg. Components missing from opts are
// created from the configuration; a missing MediaPipe service degrades to
// the mock extractor, a missing model is an error.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg: cfg,
		log: lgr.Logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	st, err := store.New(cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.metrics = metrics.New()

	if err := a.loadModels(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildTranslator(); err != nil {
		a.Close()
		return nil, err
	}
	if a.webcam == nil {
		fps := cfg.StreamFPS
		a.webcam = func(id int) capture.Source { return capture.NewWebcamFPS(id, fps) }
	}
	if a.file == nil {
		a.file = capture.NewFile
	}

	a.frames = stream.NewBroadcaster()
	a.hub = server.NewHub(a.log)
	a.listeners = &Listeners{}
	a.listeners.Add(a.hub)
	a.listeners.Add(clearOnIdle{frames: a.frames})

	loop := a.loopConfig()
	a.session = session.New(session.Options{
		Extractor:  a.extractor,
		Classifier: a.classifier,
		Translator: a.translator,
		Loop:       loop,
		CameraID:   cfg.CameraID,
		Webcam:     a.webcam,
		File:       a.file,
		Publish:    a.frames.Publish,
		Listener:   a.listeners,
		Metrics:    a.metrics,
		Logger:     a.log,
	})

	a.recognizer = &Recognizer{
		Extractor:  a.recExtractor,
		Classifier: a.classifier,
		Loop:       loop,
		Source:     a.file,
		Repo:       st.Recognitions(),
		Metrics:    a.metrics,
		Logger:     a.log,
	}

	a.server = server.New(server.Config{
		Session:        a.session,
		Frames:         a.frames,
		Translator:     a.translator,
		Recognizer:     a.recognizer,
		Hub:            a.hub,
		Metrics:        a.metrics,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		ModelVersion:   modelVersion(a.classifier),
		Logger:         a.log,
	})

	return a, nil
}

func (a *App) holistic() (landmark.Extractor, error) {
	return landmark.NewHolisticExtractor(landmark.Config{
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
		Python:           a.cfg.PythonPath,
		Script:           a.cfg.HolisticScript,
	})
}

// loadModels starts two extractors when none is given. Holistic tracks
// across frames, so recognizing an upload must not share the tracker of
// the live stream.
func (a *App) loadModels() error {
	if a.newExtractor == nil {
		a.newExtractor = a.holistic
	}
	if a.extractor == nil {
		ex, err := a.newExtractor()
		if err != nil {
			a.log.Warn("MediaPipe holistic not available, using mock extractor", slog.Any("error", err))
			a.extractor = landmark.NewMockExtractor()
			a.recExtractor = landmark.NewMockExtractor()
		} else {
			a.extractor = ex
			rec, err := a.newExtractor()
			if err != nil {
				return fmt.Errorf("start recognition extractor: %w", err)
			}
			a.recExtractor = rec
			a.log.Info("using MediaPipe holistic landmarks", slog.String("script", a.cfg.HolisticScript))
		}
	}
	if a.recExtractor == nil {
		a.recExtractor = a.extractor
	}

	if a.classifier == nil {
		vocab, err := classifier.LoadVocabulary(a.cfg.LabelsPath)
		if err != nil {
			return fmt.Errorf("load labels: %w", err)
		}
		c, err := classifier.NewONNX(a.cfg.ModelPath, vocab)
		if err != nil {
			return fmt.Errorf("load classifier: %w", err)
		}
		a.classifier = c
		a.log.Info("sign classifier loaded",
			slog.String("model", a.cfg.ModelPath),
			slog.Int("labels", vocab.Len()),
		)
	}
	return nil
}

// buildTranslator picks the configured backend and wraps it with the
// translation cache and the phrasebook fallback.
func (a *App) buildTranslator() error {
	isMiss := func(err error) bool { return errors.Is(err, store.ErrNotFound) }
	pb := translate.NewPhrasebook(a.store.Phrasebook(), isMiss)

	primary := a.primary
	if primary == nil {
		switch a.cfg.TranslatorBackend {
		case config.BackendGRPC:
			if a.cfg.TranslatorSpawn {
				a.startService()
			}
			g, err := translate.NewGRPC(a.cfg.TranslatorAddr, translate.GRPCOptions{
				Timeout:  a.cfg.TranslatorTimeout,
				NumBeams: a.cfg.NumBeams,
			})
			if err != nil {
				return fmt.Errorf("translator: %w", err)
			}
			primary = g
		case config.BackendExec:
			primary = translate.NewExec(a.cfg.TranslatorTimeout, a.cfg.NumBeams, a.cfg.PythonPath, a.cfg.TranslatorScript)
		default:
			primary = pb
		}
		a.primary = primary
	}
	a.log.Info("translator ready", slog.String("backend", a.cfg.TranslatorBackend))

	fb := &translate.Fallback{
		Primary:    translate.NewCached(primary, a.store.Translations()),
		Phrasebook: pb,
		OnError: func(err error) {
			a.metrics.TranslationFailed()
			a.log.Error("translation failed, using fallback", slog.Any("error", xerrors.New(err.Error())))
		},
	}
	a.translator = translate.Observed(fb, func(d time.Duration, err error) {
		a.metrics.ObserveTranslation(d, err)
	})
	return nil
}

// startService launches the translation script in gRPC mode. A failed
// start only logs: the fallback answers until a service is reachable.
func (a *App) startService() {
	svc := translate.NewService(a.cfg.PythonPath, translate.ServeArgs(a.cfg.TranslatorScript, a.cfg.TranslatorAddr, a.cfg.NumBeams)...)
	if err := svc.Start(); err != nil {
		a.log.Warn("translator service not started", slog.Any("error", err))
		return
	}
	a.service = svc
	a.log.Info("translator service started",
		slog.String("script", a.cfg.TranslatorScript),
		slog.String("addr", a.cfg.TranslatorAddr),
	)
}

func (a *App) loopConfig() pipeline.Config {
	return pipeline.Config{
		SkipFactor:           a.cfg.SkipFactor,
		WindowFrames:         a.cfg.WindowFrames,
		MaxConsecutiveErrors: a.cfg.MaxConsecutiveErrors,
		JPEGQuality:          a.cfg.JPEGQuality,
		Annotate:             true,
		Pace:                 a.cfg.PaceFiles,
	}
}

func modelVersion(c classifier.Classifier) string {
	if v, ok := c.(interface{ Version() string }); ok {
		return v.Version()
	}
	return "mock"
}

// Handler returns the HTTP handler with middleware applied.
func (a *App) Handler() http.Handler { return a.server }

// Session returns the session supervisor.
func (a *App) Session() *session.Supervisor { return a.session }

// Store returns the backing store.
func (a *App) Store() *store.Store { return a.store }

// Metrics returns the metrics registry.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// AddListener subscribes l to session events in addition to the
// websocket hub.
func (a *App) AddListener(l session.Listener) { a.listeners.Add(l) }

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts the server down and releases every component.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", slog.String("addr", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	a.log.Info("shutting down")
	// Stopping the session and the broadcaster ends every MJPEG response,
	// so Shutdown does not wait on viewers.
	a.session.Close()
	a.frames.Close()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", slog.Any("error", err))
		srv.Close()
	}
	if err := a.Close(); err != nil {
		a.log.Warn("release resources", slog.Any("error", err))
	}
	return runErr
}

// Close stops the session and releases models, translator and store.
// It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.session != nil {
			errs = append(errs, a.session.Close())
		}
		if a.frames != nil {
			a.frames.Close()
		}
		if a.extractor != nil {
			errs = append(errs, a.extractor.Close())
		}
		if a.recExtractor != nil && a.recExtractor != a.extractor {
			errs = append(errs, a.recExtractor.Close())
		}
		if a.classifier != nil {
			errs = append(errs, a.classifier.Close())
		}
		if c, ok := a.primary.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		if a.service != nil {
			errs = append(errs, a.service.Close())
		}
		if a.store != nil {
			errs = append(errs, a.store.Close())
		}
	})
	return errors.Join(errs...)
}
