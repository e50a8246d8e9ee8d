package stream

import (
	"bytes"
	"image/jpeg"
	"strings"
	"testing"
)

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster()
	_, a := b.Subscribe()
	_, c := b.Subscribe()

	b.Publish([]byte("one"))

	for i, ch := range []<-chan []byte{a, c} {
		if got := string(<-ch); got != "one" {
			t.Errorf("client %d got %q", i, got)
		}
	}
	if string(b.Latest()) != "one" {
		t.Errorf("Latest() = %q", b.Latest())
	}
}

func TestBroadcaster_SlowClientDropsFrames(t *testing.T) {
	b := NewBroadcaster()
	_, ch := b.Subscribe()

	for i := range 5 {
		b.Publish([]byte{byte(i)})
	}

	if got := len(ch); got != clientBuffer {
		t.Errorf("buffered %d frames, want %d", got, clientBuffer)
	}
	if b.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", b.Dropped())
	}
	if first := <-ch; first[0] != 0 {
		t.Errorf("first frame = %d, want 0", first[0])
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe()
	if b.Clients() != 1 {
		t.Fatalf("Clients() = %d", b.Clients())
	}

	b.Unsubscribe(id)
	b.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	if b.Clients() != 0 {
		t.Errorf("Clients() = %d after unsubscribe", b.Clients())
	}
	b.Publish([]byte("x"))
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	_, ch := b.Subscribe()
	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	_, late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscription after close should be closed")
	}
	b.Publish([]byte("ignored"))
	if b.Latest() != nil {
		t.Error("publish after close stored a frame")
	}
}

func TestBroadcaster_Clear(t *testing.T) {
	b := NewBroadcaster()
	b.Publish([]byte("frame"))
	b.Clear()
	if b.Latest() != nil {
		t.Error("Latest() after Clear should be nil")
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("JPEG")); err != nil {
		t.Fatal(err)
	}

	want := "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 4\r\n\r\nJPEG\r\n"
	if buf.String() != want {
		t.Errorf("WriteFrame() wrote %q, want %q", buf.String(), want)
	}
	if !strings.Contains(ContentType, "boundary="+Boundary) {
		t.Errorf("ContentType = %q", ContentType)
	}
}

func TestPlaceholder(t *testing.T) {
	data, err := Placeholder(320, 240, "No camera")
	if err != nil {
		t.Fatal(err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("placeholder is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("size = %v", b)
	}

	// Text wider than the image still renders.
	if _, err := Placeholder(20, 20, strings.Repeat("x", 100)); err != nil {
		t.Errorf("long text: %v", err)
	}
}
