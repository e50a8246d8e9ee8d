package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/silenttalk/signlens/internal/capture"
	"github.com/silenttalk/signlens/internal/classifier"
	"github.com/silenttalk/signlens/internal/config"
	"github.com/silenttalk/signlens/internal/landmark"
	"github.com/silenttalk/signlens/internal/pipeline"
	"github.com/silenttalk/signlens/internal/session"
	"github.com/silenttalk/signlens/internal/store"
	"github.com/silenttalk/signlens/internal/stream"
	"github.com/silenttalk/signlens/internal/translate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.StoreDSN = store.MemoryDSN
	cfg.UploadDir = t.TempDir()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.TranslatorBackend = config.BackendPhrasebook
	return cfg
}

func handsExtractor() *landmark.MockExtractor {
	ext := landmark.NewMockExtractor()
	ext.SetFrame(landmark.ThumbsUpFrame())
	return ext
}

func writeVideo(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_MissingModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.LabelsPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := New(cfg, WithExtractor(landmark.NewMockExtractor()), WithLogger(quietLogger()))
	if err == nil {
		t.Fatal("New() succeeded without a label map")
	}
	if !strings.Contains(err.Error(), "load labels") {
		t.Errorf("error = %v, want a label loading error", err)
	}
}

func TestNew_WithMocks(t *testing.T) {
	a, err := New(testConfig(t),
		WithExtractor(landmark.NewMockExtractor()),
		WithClassifier(classifier.NewMockClassifier()),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	snap, err := a.Session().Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Phase != session.PhaseIdle {
		t.Errorf("phase = %v, want idle", snap.Phase)
	}
	if got := modelVersion(classifier.NewMockClassifier()); got != "mock" {
		t.Errorf("modelVersion = %q", got)
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestNew_RecognizerHasOwnExtractor(t *testing.T) {
	var started []*landmark.MockExtractor
	startExtractor := func(a *App) {
		a.newExtractor = func() (landmark.Extractor, error) {
			ex := landmark.NewMockExtractor()
			started = append(started, ex)
			return ex, nil
		}
	}
	a, err := New(testConfig(t),
		startExtractor,
		WithClassifier(classifier.NewMockClassifier()),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if len(started) != 2 {
		t.Fatalf("started %d extractors, want 2", len(started))
	}
	if a.extractor != landmark.Extractor(started[0]) {
		t.Error("stream does not use the first extractor")
	}
	if a.recognizer.Extractor != landmark.Extractor(started[1]) {
		t.Error("recognizer shares the stream extractor")
	}
}

func TestNew_InjectedExtractorIsShared(t *testing.T) {
	ext := landmark.NewMockExtractor()
	a, err := New(testConfig(t),
		WithExtractor(ext),
		WithClassifier(classifier.NewMockClassifier()),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.recognizer.Extractor != landmark.Extractor(ext) {
		t.Error("recognizer does not use the injected extractor")
	}
}

func TestTranslator_PhrasebookBackend(t *testing.T) {
	a, err := New(testConfig(t),
		WithExtractor(landmark.NewMockExtractor()),
		WithClassifier(classifier.NewMockClassifier()),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.Store().Phrasebook().Put(ctx, store.Phrase{English: "see you tomorrow", Vietnamese: "hẹn gặp lại ngày mai"}); err != nil {
		t.Fatal(err)
	}
	got, err := translate.Sentence(ctx, a.translator, "see you tomorrow")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hẹn gặp lại ngày mai" {
		t.Errorf("translation = %q", got)
	}
}

func TestTranslator_GRPCBackendStartsService(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "args")
	python := filepath.Join(dir, "python")
	script := "#!/bin/sh\necho \"$@\" > " + marker + "\nexec sleep 30\n"
	if err := os.WriteFile(python, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.TranslatorBackend = config.BackendGRPC
	cfg.TranslatorSpawn = true
	cfg.PythonPath = python
	cfg.TranslatorAddr = "127.0.0.1:1"
	a, err := New(cfg,
		WithExtractor(landmark.NewMockExtractor()),
		WithClassifier(classifier.NewMockClassifier()),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	if a.service == nil {
		a.Close()
		t.Fatal("grpc backend did not start the translator service")
	}

	var args []byte
	deadline := time.Now().Add(5 * time.Second)
	for len(args) == 0 && time.Now().Before(deadline) {
		args, _ = os.ReadFile(marker)
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(string(args), "--serve --addr 127.0.0.1:1 --num-beams 5") {
		t.Errorf("service args = %q", args)
	}

	// Nothing listens on the address, so the fallback answers.
	got, err := translate.Sentence(context.Background(), a.translator, "hello TV after")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("empty translation from the fallback")
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	select {
	case <-a.service.Exited():
	case <-time.After(10 * time.Second):
		t.Error("translator service still running after Close")
	}
}

func TestTranslator_FailureFallsBack(t *testing.T) {
	failing := translate.Func(func(context.Context, []string) ([]string, error) {
		return nil, io.ErrUnexpectedEOF
	})
	a, err := New(testConfig(t),
		WithExtractor(landmark.NewMockExtractor()),
		WithClassifier(classifier.NewMockClassifier()),
		WithTranslator(failing),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	got, err := translate.Sentence(context.Background(), a.translator, "grandmother")
	if err != nil {
		t.Fatalf("fallback returned error %v", err)
	}
	if got != translate.Degraded {
		t.Errorf("translation = %q, want %q", got, translate.Degraded)
	}
	if n := a.Metrics().TranslationFailures.Load(); n != 1 {
		t.Errorf("translation failures = %d, want 1", n)
	}
}

func TestRecognizer(t *testing.T) {
	st, err := store.New(store.MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	cls := classifier.NewMockClassifier("drink", "drink", "water")
	r := &Recognizer{
		Extractor:  handsExtractor(),
		Classifier: cls,
		Loop:       pipeline.Config{SkipFactor: 6},
		Source:     func(string) capture.Source { return capture.NewBlankSource(18) },
		Repo:       st.Recognitions(),
		Logger:     quietLogger(),
	}
	ctx := context.Background()
	path := writeVideo(t, "same bytes")

	rec, cached, err := r.Recognize(ctx, path, "clip.mp4")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if cached {
		t.Error("first run reported cached")
	}
	if want := []string{"drink", "water"}; !reflect.DeepEqual(rec.Signs, want) {
		t.Errorf("signs = %v, want %v", rec.Signs, want)
	}
	if rec.Sentence != "drink water" {
		t.Errorf("sentence = %q", rec.Sentence)
	}
	if len(rec.SHA256) != 64 || rec.ID == "" {
		t.Errorf("record not filled in: %+v", rec)
	}
	if cls.Calls() != 3 {
		t.Errorf("classifier calls = %d, want 3", cls.Calls())
	}

	again, cached, err := r.Recognize(ctx, writeVideo(t, "same bytes"), "copy.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !cached {
		t.Error("identical content was not served from the cache")
	}
	if again.ID != rec.ID {
		t.Errorf("cached id = %s, want %s", again.ID, rec.ID)
	}
	if cls.Calls() != 3 {
		t.Errorf("cache hit ran the classifier: calls = %d", cls.Calls())
	}
}

func TestRecognizer_NoSigns(t *testing.T) {
	r := &Recognizer{
		Extractor:  landmark.NewMockExtractor(),
		Classifier: classifier.NewMockClassifier(),
		Source:     func(string) capture.Source { return capture.NewBlankSource(12) },
		Logger:     quietLogger(),
	}
	rec, _, err := r.Recognize(context.Background(), writeVideo(t, "x"), "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Signs) != 0 || rec.Sentence != "" {
		t.Errorf("got signs %v sentence %q, want none", rec.Signs, rec.Sentence)
	}
}

func TestRecognizer_MissingFile(t *testing.T) {
	r := &Recognizer{Logger: quietLogger()}
	if _, _, err := r.Recognize(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"), "gone.mp4"); err == nil {
		t.Error("Recognize() of a missing file succeeded")
	}
}

type recordingListener struct {
	signs  []string
	phases []string
}

func (r *recordingListener) SignDetected(sign string, _ []string) { r.signs = append(r.signs, sign) }
func (r *recordingListener) StateChanged(s session.Snapshot)      { r.phases = append(r.phases, s.PhaseName) }

func TestListeners(t *testing.T) {
	a, b := &recordingListener{}, &recordingListener{}
	ls := &Listeners{}
	ls.Add(a)
	ls.Add(b)

	ls.SignDetected("hello", []string{"hello"})
	ls.StateChanged(session.Snapshot{PhaseName: "idle"})

	for _, r := range []*recordingListener{a, b} {
		if !reflect.DeepEqual(r.signs, []string{"hello"}) || !reflect.DeepEqual(r.phases, []string{"idle"}) {
			t.Errorf("listener saw signs %v phases %v", r.signs, r.phases)
		}
	}
}

func TestClearOnIdle(t *testing.T) {
	frames := stream.NewBroadcaster()
	defer frames.Close()
	l := clearOnIdle{frames: frames}

	frames.Publish([]byte{0xFF, 0xD8})
	l.StateChanged(session.Snapshot{Streaming: true})
	if frames.Latest() == nil {
		t.Fatal("frame cleared while streaming")
	}
	l.StateChanged(session.Snapshot{Streaming: false})
	if frames.Latest() != nil {
		t.Error("frame kept after the stream ended")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := New(testConfig(t),
		WithExtractor(landmark.NewMockExtractor()),
		WithClassifier(classifier.NewMockClassifier()),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := a.Session().Snapshot(context.Background()); !errors.Is(err, session.ErrClosed) {
		t.Errorf("session after Run = %v, want ErrClosed", err)
	}
}
