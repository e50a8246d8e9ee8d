package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"

	"github.com/silenttalk/signlens/internal/capture"
	"github.com/silenttalk/signlens/internal/classifier"
	"github.com/silenttalk/signlens/internal/landmark"
	"github.com/silenttalk/signlens/internal/lgr"
	"github.com/silenttalk/signlens/internal/metrics"
	"github.com/silenttalk/signlens/internal/pipeline"
	"github.com/silenttalk/signlens/internal/translate"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("session closed")

// Options configures a Supervisor.
type Options struct {
	Extractor  landmark.Extractor
	Classifier classifier.Classifier
	Translator translate.Translator
	Loop       pipeline.Config
	CameraID   int

	// Webcam and File build sources; they default to capture.NewWebcam
	// and capture.NewFile.
	Webcam func(id int) capture.Source
	File   func(path string) capture.Source

	// Publish receives every annotated JPEG frame.
	Publish  func(jpeg []byte)
	Listener Listener
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Supervisor serializes every change to the session on one goroutine.
// HTTP handlers send it commands; the stream worker sends it events.
type Supervisor struct {
	opts   Options
	log    *slog.Logger
	cmds   chan func(*state)
	events chan event
	done   chan struct{}
	closed chan struct{}
	once   sync.Once
}

type state struct {
	phase     Phase
	detect    bool
	epoch     uint64
	gen       uint64
	kind      capture.Kind
	videoPath string
	streamID  string
	startedAt time.Time

	signs      []string
	english    string
	vietnamese string
	recent     *Ring
	classified int
	lastErr    error

	worker *worker
}

type worker struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	ctrl   chan pipeline.Control
	frames atomic.Int64
}

type eventKind int

const (
	evOpened eventKind = iota
	evPrediction
	evSkipped
	evEnded
)

type event struct {
	kind eventKind
	gen  uint64
	pred pipeline.Prediction
	err  error
}

// New starts the supervisor goroutine.
func New(opts Options) *Supervisor {
	if opts.Webcam == nil {
		opts.Webcam = capture.NewWebcam
	}
	if opts.File == nil {
		opts.File = capture.NewFile
	}
	if opts.Publish == nil {
		opts.Publish = func([]byte) {}
	}
	log := opts.Logger
	if log == nil {
		log = lgr.Logger
	}

	s := &Supervisor{
		opts:   opts,
		log:    log,
		cmds:   make(chan func(*state)),
		events: make(chan event, 16),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.run(&state{recent: NewRing(PredictionHistory)})
	return s
}

func (s *Supervisor) run(st *state) {
	defer close(s.done)
	for {
		select {
		case fn := <-s.cmds:
			fn(st)
		case ev := <-s.events:
			s.handleEvent(st, ev)
		case <-s.closed:
			s.stopWorker(st)
			s.removeUpload(st)
			s.setPhase(st, PhaseClosed)
			return
		}
	}
}

// exec runs fn on the supervisor goroutine and waits for it.
func (s *Supervisor) exec(ctx context.Context, fn func(*state)) error {
	reply := make(chan struct{})
	select {
	case s.cmds <- func(st *state) { fn(st); close(reply) }:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-reply
	return nil
}

// Close stops any stream, removes an uploaded file and ends the supervisor.
func (s *Supervisor) Close() error {
	s.once.Do(func() { close(s.closed) })
	<-s.done
	return nil
}

// StartWebcam streams the configured camera with detection off. It does
// nothing when the webcam is already streaming.
func (s *Supervisor) StartWebcam(ctx context.Context) error {
	return s.exec(ctx, func(st *state) {
		if st.phase.Streaming() && st.kind == capture.KindWebcam {
			return
		}
		s.stopWorker(st)
		s.removeUpload(st)
		s.resetDetection(st, false)
		s.startWorker(st, capture.KindWebcam, s.opts.Webcam(s.opts.CameraID))
	})
}

// StartFile replaces any active stream with the video at path. The file
// is deleted when the session stops.
func (s *Supervisor) StartFile(ctx context.Context, path string) error {
	return s.exec(ctx, func(st *state) {
		s.stopWorker(st)
		if st.videoPath != path {
			s.removeUpload(st)
		}
		s.resetDetection(st, false)
		st.videoPath = path
		s.startWorker(st, capture.KindFile, s.opts.File(path))
	})
}

// StartDetection clears the detected signs and turns detection on. It may
// be called before a stream is started.
func (s *Supervisor) StartDetection(ctx context.Context) error {
	return s.exec(ctx, func(st *state) {
		s.resetDetection(st, true)
		s.log.Info("detection started", slog.Uint64("epoch", st.epoch))
	})
}

// StopDetection turns detection off, keeps the stream running and
// translates the sentence built from the detected signs.
func (s *Supervisor) StopDetection(ctx context.Context) (Result, error) {
	var res Result
	var epoch uint64
	err := s.exec(ctx, func(st *state) {
		st.detect = false
		st.epoch++
		epoch = st.epoch
		s.syncPhase(st)
		s.sendControl(st)
		res.Signs = append([]string(nil), st.signs...)
		res.English = strings.Join(st.signs, " ")
		st.english = res.English
	})
	if err != nil {
		return Result{}, err
	}
	s.log.Info("detection stopped", slog.Int("signs", len(res.Signs)))

	res.Vietnamese = s.translate(ctx, res.English)
	return res, s.setTranslation(context.WithoutCancel(ctx), epoch, res.English, res.Vietnamese)
}

// Stop ends the stream, deletes an uploaded file and translates the
// sentence built from the detected signs.
func (s *Supervisor) Stop(ctx context.Context) (Result, error) {
	var res Result
	var epoch uint64
	err := s.exec(ctx, func(st *state) {
		s.stopWorker(st)
		res.RemovedFile = s.removeUpload(st)
		st.detect = false
		st.epoch++
		epoch = st.epoch
		s.setPhase(st, PhaseIdle)
		s.opts.Metrics.SetDetecting(false)
		res.Signs = append([]string(nil), st.signs...)
		res.English = strings.Join(st.signs, " ")
		st.english = res.English
	})
	if err != nil {
		return Result{}, err
	}

	res.Vietnamese = s.translate(ctx, res.English)
	return res, s.setTranslation(context.WithoutCancel(ctx), epoch, res.English, res.Vietnamese)
}

// Snapshot returns a copy of the current state.
func (s *Supervisor) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.exec(ctx, func(st *state) { snap = st.snapshot() })
	return snap, err
}

// translate runs outside the supervisor goroutine. The translator is
// expected to degrade on its own; a raw error still yields the degraded text.
func (s *Supervisor) translate(ctx context.Context, sentence string) string {
	if s.opts.Translator == nil || sentence == "" {
		return ""
	}
	vi, err := translate.Sentence(ctx, s.opts.Translator, sentence)
	if err != nil {
		s.log.Error("translation failed", slog.Any("error", xerrors.New(err.Error())))
		return translate.Degraded
	}
	return vi
}

// setTranslation stores a translation unless detection restarted since.
// Callers detach ctx so a finished translation is kept after the request
// goes away.
func (s *Supervisor) setTranslation(ctx context.Context, epoch uint64, english, vietnamese string) error {
	return s.exec(ctx, func(st *state) {
		if st.epoch != epoch {
			return
		}
		st.english = english
		st.vietnamese = vietnamese
	})
}

func (s *Supervisor) resetDetection(st *state, detect bool) {
	st.detect = detect
	st.epoch++
	st.signs = nil
	st.english = ""
	st.vietnamese = ""
	st.recent.Reset()
	st.classified = 0
	st.lastErr = nil
	if st.worker != nil {
		st.worker.frames.Store(0)
	}
	s.opts.Metrics.SetDetecting(detect)
	s.syncPhase(st)
	s.sendControl(st)
}

func (s *Supervisor) startWorker(st *state, kind capture.Kind, src capture.Source) {
	ctx, cancel := context.WithCancel(context.Background())
	st.gen++
	w := &worker{
		gen:    st.gen,
		cancel: cancel,
		done:   make(chan struct{}),
		ctrl:   make(chan pipeline.Control, 1),
	}
	st.worker = w
	st.kind = kind
	st.streamID = uuid.NewString()
	st.startedAt = time.Now()
	s.setPhase(st, PhaseOpening)
	s.opts.Metrics.StreamStarted()

	loop := &pipeline.Loop{
		Source:     src,
		Extractor:  s.opts.Extractor,
		Classifier: s.opts.Classifier,
		Config:     s.opts.Loop,
		Metrics:    s.opts.Metrics,
		Logger:     s.log.With(slog.String("stream", st.streamID)),
	}
	initial := st.control()
	obs := &observer{s: s, w: w, ctx: ctx}

	go func() {
		defer close(w.done)
		err := loop.Run(ctx, initial, w.ctrl, obs)
		if ctx.Err() != nil {
			return
		}
		obs.send(event{kind: evEnded, err: err})
	}()

	s.log.Info("stream starting",
		slog.String("stream", st.streamID),
		slog.String("source", src.Name()),
	)
}

// stopWorker cancels the worker and waits for it to release the source.
func (s *Supervisor) stopWorker(st *state) {
	w := st.worker
	if w == nil {
		return
	}
	s.setPhase(st, PhaseStopping)
	w.cancel()
	<-w.done
	st.worker = nil
	s.setPhase(st, PhaseIdle)
	s.log.Info("stream stopped", slog.String("stream", st.streamID))
}

// removeUpload deletes the uploaded video, if any, and returns its path.
func (s *Supervisor) removeUpload(st *state) string {
	path := st.videoPath
	if path == "" {
		return ""
	}
	st.videoPath = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("remove upload", slog.String("path", path), slog.Any("error", err))
		return ""
	}
	s.log.Info("removed upload", slog.String("path", path))
	return path
}

func (s *Supervisor) handleEvent(st *state, ev event) {
	if st.worker == nil || ev.gen != st.worker.gen {
		return
	}
	switch ev.kind {
	case evOpened:
		if st.phase == PhaseOpening {
			s.setPhase(st, PhaseStreaming)
			s.syncPhase(st)
		}

	case evPrediction:
		if ev.pred.Epoch != st.epoch || !st.detect {
			return
		}
		st.classified++
		st.recent.Push(ev.pred.Label)
		var added bool
		st.signs, added = AppendDistinct(st.signs, ev.pred.Label)
		if !added {
			return
		}
		s.opts.Metrics.SignDetected()
		s.log.Info("sign detected",
			slog.String("sign", ev.pred.Label),
			slog.Float64("score", float64(ev.pred.Score)),
			slog.Int("frame", ev.pred.Frame),
		)
		s.sendControl(st)
		if l := s.opts.Listener; l != nil {
			l.SignDetected(ev.pred.Label, append([]string(nil), st.signs...))
		}

	case evSkipped:
		st.lastErr = ev.err

	case evEnded:
		<-st.worker.done
		st.worker = nil
		if ev.err != nil {
			st.lastErr = ev.err
			s.opts.Metrics.StreamFailed()
			s.log.Error("stream failed",
				slog.String("stream", st.streamID),
				slog.Any("error", xerrors.New(ev.err.Error())),
			)
		} else {
			s.log.Info("stream ended", slog.String("stream", st.streamID))
		}
		s.setPhase(st, PhaseIdle)
	}
}

// syncPhase moves between Streaming and Detecting to follow the flag.
func (s *Supervisor) syncPhase(st *state) {
	switch {
	case st.phase == PhaseStreaming && st.detect:
		s.setPhase(st, PhaseDetecting)
	case st.phase == PhaseDetecting && !st.detect:
		s.setPhase(st, PhaseStreaming)
	}
}

func (s *Supervisor) setPhase(st *state, p Phase) {
	if st.phase == p {
		return
	}
	st.phase = p
	s.notifyState(st)
}

func (s *Supervisor) notifyState(st *state) {
	if l := s.opts.Listener; l != nil {
		l.StateChanged(st.snapshot())
	}
}

// sendControl replaces any control value the worker has not read yet.
func (s *Supervisor) sendControl(st *state) {
	w := st.worker
	if w == nil {
		return
	}
	select {
	case <-w.ctrl:
	default:
	}
	w.ctrl <- st.control()
}

func (st *state) control() pipeline.Control {
	return pipeline.Control{
		Detecting: st.detect,
		Epoch:     st.epoch,
		Signs:     append([]string(nil), st.signs...),
	}
}

func (st *state) snapshot() Snapshot {
	snap := Snapshot{
		Phase:           st.phase,
		PhaseName:       st.phase.String(),
		Streaming:       st.phase.Streaming(),
		Detecting:       st.detect,
		VideoPath:       st.videoPath,
		DetectedSigns:   append([]string{}, st.signs...),
		Sentence:        strings.Join(st.signs, " "),
		English:         st.english,
		Vietnamese:      st.vietnamese,
		LastPredictions: st.recent.Items(),
		Classifications: st.classified,
	}
	if st.phase.Streaming() {
		snap.StreamID = st.streamID
		snap.Source = string(st.kind)
		snap.StartedAt = st.startedAt
	}
	if st.worker != nil {
		snap.Frames = st.worker.frames.Load()
	}
	if st.lastErr != nil {
		snap.LastError = st.lastErr.Error()
	}
	return snap
}

// observer forwards loop output from the worker goroutine.
type observer struct {
	s   *Supervisor
	w   *worker
	ctx context.Context
}

func (o *observer) send(ev event) {
	ev.gen = o.w.gen
	select {
	case o.s.events <- ev:
	case <-o.ctx.Done():
	}
}

func (o *observer) Opened(capture.Source)           { o.send(event{kind: evOpened}) }
func (o *observer) Predicted(p pipeline.Prediction) { o.send(event{kind: evPrediction, pred: p}) }
func (o *observer) Skipped(err *pipeline.StageError) {
	o.send(event{kind: evSkipped, err: err})
}

func (o *observer) Frame(jpeg []byte) {
	o.w.frames.Add(1)
	o.s.opts.Publish(jpeg)
}
