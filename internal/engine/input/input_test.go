package input

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func key(typ uint32, sc sdl.Scancode, repeat uint8) *sdl.KeyboardEvent {
	return &sdl.KeyboardEvent{Type: typ, Repeat: repeat, Keysym: sdl.Keysym{Scancode: sc}}
}

func TestKeyState(t *testing.T) {
	in := New()

	in.handle(key(sdl.KEYDOWN, sdl.SCANCODE_W, 0))
	in.handle(key(sdl.KEYDOWN, sdl.SCANCODE_W, 1))
	if !in.IsKeyDown(sdl.SCANCODE_W) || !in.IsKeyPressed(sdl.SCANCODE_W) {
		t.Fatal("W should be held and pressed")
	}
	if n := len(in.Events()); n != 1 {
		t.Errorf("key repeat should not add events, got %d", n)
	}
	if got := in.Axis(sdl.SCANCODE_S, sdl.SCANCODE_W); got != 1 {
		t.Errorf("Axis = %v, want 1", got)
	}

	in.handle(key(sdl.KEYDOWN, sdl.SCANCODE_S, 0))
	if got := in.Axis(sdl.SCANCODE_S, sdl.SCANCODE_W); got != 0 {
		t.Errorf("opposing keys should cancel, got %v", got)
	}

	in.handle(key(sdl.KEYUP, sdl.SCANCODE_W, 0))
	if in.IsKeyDown(sdl.SCANCODE_W) {
		t.Error("W should be released")
	}
	if got := in.Axis(sdl.SCANCODE_S, sdl.SCANCODE_W); got != -1 {
		t.Errorf("Axis = %v, want -1", got)
	}
}

func TestQuitEvents(t *testing.T) {
	in := New()
	if !in.handle(&sdl.QuitEvent{Type: sdl.QUIT}) {
		t.Error("quit event should request exit")
	}
	if !in.handle(key(sdl.KEYDOWN, sdl.SCANCODE_ESCAPE, 0)) {
		t.Error("escape should request exit")
	}
	if in.handle(key(sdl.KEYDOWN, sdl.SCANCODE_F12, 0)) {
		t.Error("F12 should not request exit")
	}
}

func TestDragDelta(t *testing.T) {
	in := New()

	in.handle(&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 5, YRel: 5})
	if dx, dy := in.DragDelta(); dx != 0 || dy != 0 {
		t.Errorf("motion without a button should not drag, got %d,%d", dx, dy)
	}

	in.handle(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_LEFT})
	in.handle(&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 3, YRel: -2})
	in.handle(&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 4, YRel: 1})
	if dx, dy := in.DragDelta(); dx != 7 || dy != -1 {
		t.Errorf("DragDelta = %d,%d, want 7,-1", dx, dy)
	}

	in.handle(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_LEFT})
	in.handle(&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 10, YRel: 10})
	if dx, _ := in.DragDelta(); dx != 7 {
		t.Errorf("motion after release should not drag, got %d", dx)
	}
}

func TestResizeEvent(t *testing.T) {
	in := New()
	in.handle(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_RESIZED, Data1: 1024, Data2: 768})

	events := in.Events()
	if len(events) != 1 || events[0].Type != EventWindowResize || events[0].Width != 1024 || events[0].Height != 768 {
		t.Errorf("unexpected events %+v", events)
	}
}
