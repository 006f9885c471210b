package danmaku

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

const frameInterval = time.Second / 60

func newTestFloatingTrack(trackWidth int, config FloatingTrackConfig) (*FloatingTrack[*Danmaku], *testClock, *testGeometry) {
	clock := &testClock{}
	geometry := &testGeometry{trackHeight: 36, trackWidth: trackWidth, hostHeight: 720}
	return NewFloatingTrack[*Danmaku](0, clock, geometry, config), clock, geometry
}

// steadyConfig 不带随机波动、宽度不影响速度的参数
func steadyConfig(baseSpeed float64) FloatingTrackConfig {
	return FloatingTrackConfig{
		BaseSpeedPxPerSecond: baseSpeed,
		SafeSeparation:       10,
		BaseSpeedTextWidth:   1000,
		SpeedMultiplier:      1.14,
	}
}

// TestFloatingTrackDistanceAfterOneSecond 100px/s 的弹幕滚动 1 秒后距离约为 100px
func TestFloatingTrackDistanceAfterOneSecond(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))

	d, ok := track.TryPlace(newTestDanmaku("A", 100), NotPlaced)
	if !ok {
		t.Fatal("TryPlace on an empty track should succeed")
	}

	for range 60 {
		clock.advance(frameInterval)
		track.Tick()
	}

	if got := d.DistanceX(); math.Abs(got-100) > 0.01 {
		t.Errorf("Expected distanceX≈100, got %f", got)
	}
	if got := d.Left(); math.Abs(got-900) > 0.01 {
		t.Errorf("Expected left≈900, got %f", got)
	}
	if got := d.Right(); math.Abs(got-1010) > 0.01 {
		t.Errorf("Expected right≈1010, got %f", got)
	}
}

// TestFloatingTrackDistanceWithFluctuation 有随机波动时距离在波动范围内
func TestFloatingTrackDistanceWithFluctuation(t *testing.T) {
	config := steadyConfig(100)
	config.RandomizeSpeedFluctuation = DefaultSpeedFluctuation
	config.Rand = rand.New(rand.NewPCG(7, 11))
	track, clock, _ := newTestFloatingTrack(1000, config)

	d := track.Place(newTestDanmaku("A", 100), NotPlaced)
	clock.advance(time.Second)

	got := d.DistanceX()
	if got < 100*(1-DefaultSpeedFluctuation) || got > 100*(1+DefaultSpeedFluctuation) {
		t.Errorf("distanceX %f out of fluctuation bound", got)
	}
}

// TestFloatingTrackSameSpeedBehind 同一时刻、同速度的弹幕放在正后方一定会撞车
func TestFloatingTrackSameSpeedBehind(t *testing.T) {
	track, _, _ := newTestFloatingTrack(1000, steadyConfig(100))

	if _, ok := track.TryPlace(newTestDanmaku("A", 200), NotPlaced); !ok {
		t.Fatal("First danmaku should be placed")
	}
	if track.CanPlace(newTestDanmaku("B", 200), NotPlaced) {
		t.Error("CanPlace should be false for a danmaku directly behind at the same speed")
	}
}

// TestFloatingTrackZeroWidth 轨道宽度为 0 时任何弹幕都不能放置
func TestFloatingTrackZeroWidth(t *testing.T) {
	track, _, _ := newTestFloatingTrack(0, steadyConfig(100))

	for _, width := range []int{1, 50, 500, 5000} {
		if track.CanPlace(newTestDanmaku("A", width), NotPlaced) {
			t.Errorf("CanPlace(width=%d) should be false on a zero-width track", width)
		}
	}
	if _, ok := track.TryPlace(newTestDanmaku("A", 50), NotPlaced); ok {
		t.Error("TryPlace should fail on a zero-width track")
	}
}

// TestFloatingTrackPlaceAfterGap 前一条弹幕完全进入屏幕后，同速度的弹幕可以放置
func TestFloatingTrackPlaceAfterGap(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))
	track.Place(newTestDanmaku("A", 200), NotPlaced)

	// A 的右侧（含间隔）需要 2.1 秒才能离开轨道右侧
	clock.set(2 * time.Second)
	if track.CanPlace(newTestDanmaku("B", 200), NotPlaced) {
		t.Error("B should not fit while A is still entering")
	}

	clock.set(2200 * time.Millisecond)
	b, ok := track.TryPlace(newTestDanmaku("B", 200), NotPlaced)
	if !ok {
		t.Fatal("B should fit once A has fully entered")
	}
	if track.Last() != b {
		t.Error("Last() should return the newest danmaku")
	}
}

// TestFloatingTrackFasterBehindClashes 后方更快的弹幕会在前一条离开屏幕前追上，不能放置
func TestFloatingTrackFasterBehindClashes(t *testing.T) {
	config := FloatingTrackConfig{
		BaseSpeedPxPerSecond: 100,
		SafeSeparation:       10,
		BaseSpeedTextWidth:   100,
		SpeedMultiplier:      2,
	}
	track, clock, _ := newTestFloatingTrack(1000, config)

	// 宽 100 的弹幕倍率 1；宽 800 的弹幕倍率 2^log2(8) = 8
	track.Place(newTestDanmaku("slow", 100), NotPlaced)
	clock.set(2 * time.Second)

	if track.CanPlace(newTestDanmaku("fast", 800), NotPlaced) {
		t.Error("A much faster danmaku behind should be predicted to clash")
	}
	if !track.CanPlace(newTestDanmaku("same", 100), NotPlaced) {
		t.Error("A danmaku with the same speed and enough gap should fit")
	}
}

// TestFloatingTrackSpeedMultiplier 速度倍率按宽度计算，最小为 1 倍
func TestFloatingTrackSpeedMultiplier(t *testing.T) {
	config := FloatingTrackConfig{
		BaseSpeedPxPerSecond: 100,
		BaseSpeedTextWidth:   270,
		SpeedMultiplier:      1.14,
	}
	track, _, _ := newTestFloatingTrack(100000, config)

	tests := []struct {
		width int
		want  float64
	}{
		{width: 100, want: 1},
		{width: 270, want: 1},
		{width: 540, want: 1.14},
		{width: 1080, want: 1.14 * 1.14},
	}
	for _, tt := range tests {
		d := track.Place(newTestDanmaku("w", tt.width), NotPlaced)
		if math.Abs(d.SpeedMultiplier-tt.want) > 1e-9 {
			t.Errorf("width=%d: SpeedMultiplier=%f, want %f", tt.width, d.SpeedMultiplier, tt.want)
		}
	}
}

// TestFloatingTrackTickRemovesGone Tick 后不再有右侧越过轨道左侧的弹幕
func TestFloatingTrackTickRemovesGone(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))
	track.Place(newTestDanmaku("A", 100), NotPlaced)

	// right = 1000 + 100 + 10 - 100t，11.1 秒时越过轨道左侧
	clock.set(11 * time.Second)
	track.Tick()
	if track.Len() != 1 {
		t.Fatalf("Danmaku should still be visible at 11s, got Len()=%d", track.Len())
	}

	clock.set(11200 * time.Millisecond)
	track.Tick()
	if track.Len() != 0 {
		t.Errorf("Gone danmaku should be removed, got Len()=%d", track.Len())
	}
	if track.Last() != nil {
		t.Error("Last() should be nil on an empty track")
	}
}

// TestFloatingTrackPlaceTime 指定放置时间时按经过的时间计算已滚动距离
func TestFloatingTrackPlaceTime(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))
	clock.set(5 * time.Second)

	// 未来的放置时间不能放置
	if track.CanPlace(newTestDanmaku("future", 100), int64(6*time.Second)) {
		t.Error("Danmaku with a future place time should be rejected")
	}

	// 已经滚出屏幕的弹幕不能放置
	late := &testClock{now: int64(30 * time.Second)}
	lateTrack := NewFloatingTrack[*Danmaku](0, late, track.geometry, steadyConfig(100))
	if lateTrack.CanPlace(newTestDanmaku("late", 100), 0) {
		t.Error("Danmaku that would already be gone should be rejected")
	}

	d, ok := track.TryPlace(newTestDanmaku("past", 100), int64(4*time.Second))
	if !ok {
		t.Fatal("Danmaku placed one second ago should fit on an empty track")
	}
	if got := d.DistanceX(); math.Abs(got-100) > 1e-6 {
		t.Errorf("Expected distanceX=100 for a danmaku placed 1s ago, got %f", got)
	}
}

// TestFloatingTrackTryPlaceRejectionDoesNotMutate 被拒绝的 TryPlace 不修改轨道
func TestFloatingTrackTryPlaceRejectionDoesNotMutate(t *testing.T) {
	track, _, _ := newTestFloatingTrack(1000, steadyConfig(100))
	a := track.Place(newTestDanmaku("A", 200), NotPlaced)

	b := newTestDanmaku("B", 200)
	if track.CanPlace(b, NotPlaced) {
		t.Fatal("CanPlace should be false")
	}
	if _, ok := track.TryPlace(b, NotPlaced); ok {
		t.Fatal("TryPlace should fail when CanPlace is false")
	}
	if track.Len() != 1 || track.Last() != a {
		t.Errorf("Rejected TryPlace mutated the track: %v", track)
	}
}

// TestFloatingTrackPlaceKeepsOrder Place 即使重叠也插入，并保持按 Left() 升序
func TestFloatingTrackPlaceKeepsOrder(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))
	track.Place(newTestDanmaku("A", 200), NotPlaced)
	clock.set(time.Second)
	track.Place(newTestDanmaku("B", 200), NotPlaced)
	track.Place(newTestDanmaku("C", 50), int64(500*time.Millisecond))

	if track.Len() != 3 {
		t.Fatalf("Expected 3 danmaku, got %d", track.Len())
	}
	assertSorted(t, track)
}

// TestFloatingTrackNeverOverlaps 随机放置大量弹幕，任意时刻同屏相邻弹幕都不重叠
func TestFloatingTrackNeverOverlaps(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 1024))
	config := FloatingTrackConfig{
		BaseSpeedPxPerSecond:      200,
		SafeSeparation:            20,
		BaseSpeedTextWidth:        100,
		SpeedMultiplier:           1.14,
		RandomizeSpeedFluctuation: DefaultSpeedFluctuation,
		Rand:                      rand.New(rand.NewPCG(3, 5)),
	}
	track, clock, _ := newTestFloatingTrack(1280, config)

	placed := 0
	for frame := range 3600 {
		clock.advance(frameInterval)
		track.Tick()

		if frame%3 == 0 {
			width := 30 + r.IntN(600)
			placeTime := NotPlaced
			if r.IntN(4) == 0 {
				placeTime = max(0, clock.now-int64(r.IntN(2000))*int64(time.Millisecond))
			}
			if _, ok := track.TryPlace(newTestDanmaku("x", width), placeTime); ok {
				placed++
			}
		}

		var previous *FloatingDanmaku[*Danmaku]
		for d := range track.All() {
			if d.IsGone() {
				t.Fatalf("frame %d: gone danmaku survived Tick: %v", frame, d)
			}
			if previous != nil && previous.Right() > d.Left()+1e-6 {
				t.Fatalf("frame %d: overlap prev.right=%f next.left=%f", frame, previous.Right(), d.Left())
			}
			previous = d
		}
	}

	if placed < 20 {
		t.Errorf("Expected a steady stream of placements, got %d", placed)
	}
}

// TestFloatingDanmakuMonotonicProgress 已滚动距离单调不减，时钟回退时也不减少
func TestFloatingDanmakuMonotonicProgress(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))
	d := track.Place(newTestDanmaku("A", 100), NotPlaced)

	last := d.DistanceX()
	for range 120 {
		clock.advance(frameInterval)
		track.Tick()
		got := d.DistanceX()
		if got < last {
			t.Fatalf("distanceX decreased from %f to %f", last, got)
		}
		last = got
	}

	clock.advance(-time.Second)
	if got := d.DistanceX(); got < last {
		t.Errorf("distanceX decreased after clock regression: %f -> %f", last, got)
	}
}

// TestFloatingTrackResize 轨道宽度变化立即影响位置，已滚动距离不变
func TestFloatingTrackResize(t *testing.T) {
	track, clock, geometry := newTestFloatingTrack(1000, steadyConfig(100))
	d := track.Place(newTestDanmaku("A", 100), NotPlaced)
	clock.set(time.Second)

	geometry.trackWidth = 2000
	geometry.trackHeight = 40
	if got := d.Left(); math.Abs(got-1900) > 1e-6 {
		t.Errorf("Left after resize: got %f, want 1900", got)
	}
	if got := d.Y(); got != 0 {
		t.Errorf("Y of track 0: got %f, want 0", got)
	}
}

// TestFloatingTrackSetSpeedMidFlight 滚动途中降速，已滚动距离保持不变，相邻弹幕不会重叠
func TestFloatingTrackSetSpeedMidFlight(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))
	a := track.Place(newTestDanmaku("A", 100), NotPlaced)

	clock.set(1100 * time.Millisecond)
	track.Tick()
	b, ok := track.TryPlace(newTestDanmaku("B", 100), NotPlaced)
	if !ok {
		t.Fatal("B should fit right behind A")
	}

	track.SetSpeed(80)
	if got := a.DistanceX(); math.Abs(got-110) > 1e-6 {
		t.Fatalf("distanceX changed by SetSpeed: got %f, want 110", got)
	}
	if got := b.DistanceX(); got != 0 {
		t.Fatalf("B distanceX after SetSpeed: got %f, want 0", got)
	}

	for frame := range 900 {
		clock.advance(frameInterval)
		track.Tick()
		var previous *FloatingDanmaku[*Danmaku]
		for d := range track.All() {
			if previous != nil && previous.Right() > d.Left()+1e-6 {
				t.Fatalf("frame %d: overlap, previous.Right=%.2f next.Left=%.2f",
					frame, previous.Right(), d.Left())
			}
			previous = d
		}
	}

	// 修改速度之后从当前位置继续滚动
	track2, clock2, _ := newTestFloatingTrack(1000, steadyConfig(100))
	c := track2.Place(newTestDanmaku("C", 100), NotPlaced)
	clock2.set(time.Second)
	track2.SetSpeed(50)
	clock2.set(2 * time.Second)
	if got := c.DistanceX(); math.Abs(got-150) > 1e-6 {
		t.Errorf("distanceX after slowing down: got %f, want 150", got)
	}
	track2.SetSpeed(200)
	clock2.set(3 * time.Second)
	if got := c.DistanceX(); math.Abs(got-350) > 1e-6 {
		t.Errorf("distanceX after speeding up: got %f, want 350", got)
	}
}

func TestFloatingTrackIterator(t *testing.T) {
	track, clock, _ := newTestFloatingTrack(1000, steadyConfig(100))
	a := track.Place(newTestDanmaku("A", 100), NotPlaced)
	clock.set(3 * time.Second)
	b := track.Place(newTestDanmaku("B", 100), NotPlaced)

	it := track.Iterator()
	var got []*FloatingDanmaku[*Danmaku]
	for it.HasNext() {
		got = append(got, it.Next())
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("Iterator order: got %v, want [A B]", got)
	}
	expectPanic(t, ErrIteratorExhausted, func() { it.Next() })

	track.ClearAll()
	if track.Len() != 0 || track.Iterator().HasNext() {
		t.Error("ClearAll should empty the track")
	}
}

func TestFloatingTrackContractViolations(t *testing.T) {
	track, _, _ := newTestFloatingTrack(1000, steadyConfig(100))

	expectPanic(t, ErrInvalidPlaceTime, func() {
		track.CanPlace(newTestDanmaku("A", 100), -1)
	})
	expectPanic(t, ErrInvalidPlaceTime, func() {
		track.Place(newTestDanmaku("A", 100), -100)
	})
	expectPanic(t, ErrInvalidWidth, func() {
		track.CanPlace(newTestDanmaku("A", 0), NotPlaced)
	})
	expectPanic(t, ErrInvalidWidth, func() {
		track.TryPlace(newTestDanmaku("A", -3), NotPlaced)
	})
}

func assertSorted(t *testing.T, track *FloatingTrack[*Danmaku]) {
	t.Helper()
	var previous *FloatingDanmaku[*Danmaku]
	for d := range track.All() {
		if previous != nil && previous.Left() > d.Left() {
			t.Fatalf("Track not sorted by Left(): %f > %f", previous.Left(), d.Left())
		}
		previous = d
	}
}
