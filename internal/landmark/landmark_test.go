package landmark

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

func TestLayout(t *testing.T) {
	if RowsPerFrame != 543 {
		t.Fatalf("RowsPerFrame = %d, want 543", RowsPerFrame)
	}
	if LeftHandOffset != 468 || PoseOffset != 489 || RightHandOffset != 522 {
		t.Errorf("offsets = %d/%d/%d", LeftHandOffset, PoseOffset, RightHandOffset)
	}
}

func TestNewFrame_AllMissing(t *testing.T) {
	f := NewFrame()
	if f.HasAny() {
		t.Error("new frame should have no landmarks")
	}
	for i, p := range f {
		if p.Valid() {
			t.Fatalf("row %d is valid in an empty frame", i)
		}
	}
}

func TestFrame_HasAny(t *testing.T) {
	tests := []struct {
		name string
		make func() Frame
		want bool
	}{
		{"empty", NewFrame, false},
		{"right hand", ThumbsUpFrame, true},
		{"single coordinate", func() Frame {
			f := NewFrame()
			f[PoseOffset].X = 0.1
			return f
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.make()
			if got := f.HasAny(); got != tt.want {
				t.Errorf("HasAny() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrame_SetHands(t *testing.T) {
	f := NewFrame()
	f.SetLeftHand(OpenPalmHand())
	f.SetRightHand(ThumbsUpHand())

	if got := f[LeftHandOffset+MiddleTip]; got != OpenPalmHand()[MiddleTip] {
		t.Errorf("left middle tip = %+v", got)
	}
	if got := f[RightHandOffset+ThumbTip]; got != ThumbsUpHand()[ThumbTip] {
		t.Errorf("right thumb tip = %+v", got)
	}
	if f[PoseOffset].Valid() {
		t.Error("pose should stay missing")
	}
}

func TestFrame_Flatten(t *testing.T) {
	f := ThumbsUpFrame()
	flat := f.Flatten(nil)
	if len(flat) != RowsPerFrame*3 {
		t.Fatalf("len = %d, want %d", len(flat), RowsPerFrame*3)
	}
	i := (RightHandOffset + ThumbTip) * 3
	if flat[i] != 0.58 || flat[i+1] != 0.35 {
		t.Errorf("thumb tip = %v,%v", flat[i], flat[i+1])
	}
	if !math.IsNaN(float64(flat[0])) {
		t.Error("face should flatten to NaN")
	}
}

func TestHolisticResponse_Frame(t *testing.T) {
	line := `{"face":null,"left_hand":null,"pose":[[0.5,0.25,-0.1],[null,null,null]],"right_hand":[[0.1,0.2,0.3]]}`

	var resp holisticResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	f := resp.frame()

	if got := f[PoseOffset]; got != (Point{X: 0.5, Y: 0.25, Z: -0.1}) {
		t.Errorf("pose[0] = %+v", got)
	}
	if f[PoseOffset+1].Valid() {
		t.Error("null pose point should be missing")
	}
	if got := f[RightHandOffset]; got != (Point{X: 0.1, Y: 0.2, Z: 0.3}) {
		t.Errorf("right wrist = %+v", got)
	}
	if f[FaceOffset].Valid() || f[LeftHandOffset].Valid() {
		t.Error("absent parts should be missing")
	}
}

func TestMockExtractor(t *testing.T) {
	m := NewMockExtractor()
	mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()

	f, err := m.Extract(&mat)
	if err != nil || f.HasAny() {
		t.Fatalf("default Extract() = %v, %v", f.HasAny(), err)
	}

	m.SetFrame(OpenPalmFrame())
	f, _ = m.Extract(&mat)
	if !f.HasAny() {
		t.Error("expected landmarks after SetFrame")
	}

	boom := errors.New("boom")
	m.SetError(boom)
	if _, err := m.Extract(&mat); !errors.Is(err, boom) {
		t.Errorf("Extract() error = %v", err)
	}
	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
}

func TestDraw(t *testing.T) {
	mat := blank(480, 640)
	defer mat.Close()

	f := OpenPalmFrame()
	Draw(&mat, &f)

	if countLit(&mat) == 0 {
		t.Error("Draw left the frame blank")
	}
}

func TestDraw_EmptyFrameLeavesImage(t *testing.T) {
	mat := blank(480, 640)
	defer mat.Close()

	f := NewFrame()
	Draw(&mat, &f)

	if n := countLit(&mat); n != 0 {
		t.Errorf("Draw of empty frame touched %d pixels", n)
	}
}

func TestNewHolisticExtractor_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = t.TempDir() + "/nope.py"
	if _, err := NewHolisticExtractor(cfg); err == nil {
		t.Error("expected error for missing script")
	}
}

func blank(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func countLit(m *gocv.Mat) int {
	g := gocv.NewMat()
	defer g.Close()
	gocv.CvtColor(*m, &g, gocv.ColorBGRToGray)
	return gocv.CountNonZero(g)
}
