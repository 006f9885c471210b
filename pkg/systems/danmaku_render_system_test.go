package systems

import (
	"testing"
	"time"

	"github.com/gonewx/danmaku/pkg/danmaku"
)

func TestDanmakuRenderSystemPositions(t *testing.T) {
	w := newTestWorld(t, nil)
	renderer := &recordingRenderer{}
	render := NewDanmakuRenderSystem(w.em)

	w.allocator.Dispatch(newFloating("float", 100), danmaku.NotPlaced)
	w.allocator.Dispatch(newFixed("top", 200, danmaku.LocationTop), danmaku.NotPlaced)
	w.allocator.Dispatch(newFixed("bottom", 200, danmaku.LocationBottom), danmaku.NotPlaced)
	w.step(time.Second)

	if drawn := render.Draw(renderer); drawn != 3 {
		t.Fatalf("Expected 3 drawn danmaku, got %d", drawn)
	}

	want := []renderCall{
		{text: "float", x: 1080, y: 0},
		{text: "top", x: 540, y: 0},
		{text: "bottom", x: 540, y: 684},
	}
	for i, call := range renderer.calls {
		if call != want[i] {
			t.Errorf("Draw %d: got %+v, want %+v", i, call, want[i])
		}
	}
}

func TestDanmakuRenderSystemVisibility(t *testing.T) {
	w := newTestWorld(t, nil)
	render := NewDanmakuRenderSystem(w.em)

	w.allocator.Dispatch(newFloating("float", 100), danmaku.NotPlaced)
	w.allocator.Dispatch(newFixed("top", 200, danmaku.LocationTop), danmaku.NotPlaced)
	w.allocator.Dispatch(newFixed("bottom", 200, danmaku.LocationBottom), danmaku.NotPlaced)

	tests := []struct {
		name                           string
		showFloating, showTop, showBot bool
		want                           []string
	}{
		{name: "all", showFloating: true, showTop: true, showBot: true, want: []string{"float", "top", "bottom"}},
		{name: "fixed only", showTop: true, showBot: true, want: []string{"top", "bottom"}},
		{name: "no top", showFloating: true, showBot: true, want: []string{"float", "bottom"}},
		{name: "none", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &recordingRenderer{}
			render.SetVisibility(tt.showFloating, tt.showTop, tt.showBot)
			render.Draw(renderer)

			if len(renderer.calls) != len(tt.want) {
				t.Fatalf("Expected %d draws, got %d", len(tt.want), len(renderer.calls))
			}
			for i, call := range renderer.calls {
				if call.text != tt.want[i] {
					t.Errorf("Draw %d: got %s, want %s", i, call.text, tt.want[i])
				}
			}
		})
	}
}
