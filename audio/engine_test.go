package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/menusound/logging"
	"github.com/milk9111/menusound/sound"
)

type fakeBuffer struct {
	name string
}

func (b fakeBuffer) Size() int64 { return int64(len(b.name)) }

type fakeVoice struct {
	name    string
	params  Params
	playing bool
	stopped bool
}

func (v *fakeVoice) Playing() bool { return v.playing }
func (v *fakeVoice) SetVolume(vol float64) { v.params.Volume = vol }
func (v *fakeVoice) Stop() {
	v.playing = false
	v.stopped = true
}

type fakeHost struct {
	mu        sync.Mutex
	voices    []*fakeVoice
	decodes   atomic.Int32
	decodeErr error
	startErr  error
}

func (h *fakeHost) Decode(name string, data []byte) (Buffer, error) {
	h.decodes.Add(1)
	if h.decodeErr != nil {
		return nil, h.decodeErr
	}
	return fakeBuffer{name: name}, nil
}

func (h *fakeHost) Start(buf Buffer, p Params) (Voice, error) {
	if h.startErr != nil {
		return nil, h.startErr
	}
	v := &fakeVoice{name: buf.(fakeBuffer).name, params: p, playing: true}
	h.mu.Lock()
	h.voices = append(h.voices, v)
	h.mu.Unlock()
	return v, nil
}

func (h *fakeHost) last() *fakeVoice {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.voices) == 0 {
		return nil
	}
	return h.voices[len(h.voices)-1]
}

type mapFetcher struct {
	mu     sync.Mutex
	files  map[string][]byte
	called []string
}

func (f *mapFetcher) FetchBytes(ctx context.Context, logical string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, logical)
	data, ok := f.files[logical]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", logical, fs.ErrNotExist)
	}
	return data, nil
}

func newFetcher(names ...string) *mapFetcher {
	f := &mapFetcher{files: make(map[string][]byte)}
	for _, n := range names {
		f.files[sound.Clip{Name: n}.LogicalPath(sound.DefaultNamespace)] = []byte(n)
	}
	return f
}

func inline(f func()) { f() }

func newTestEngine(t *testing.T, fetcher Fetcher, host Host, reg *sound.Registry) *Engine {
	t.Helper()
	if reg == nil {
		reg = sound.NewRegistry(sound.WithSeed(1), sound.WithLogger(logging.Discard()))
	}
	return NewEngine(fetcher, reg, host, WithAsync(inline), WithLogger(logging.Discard()))
}

func f64(v float64) *float64 { return &v }

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, 1.0, EffectiveVolume(1.5))
	assert.Equal(t, 0.0, EffectiveVolume(-0.2))
	assert.Equal(t, 0.5, EffectivePitch(0.1))
	assert.Equal(t, 2.0, EffectivePitch(3.0))
	assert.Equal(t, 1.25, EffectivePitch(1.25))
	assert.Equal(t, 0.0, EffectiveVolume(math.NaN()))
	assert.Equal(t, 0.5, EffectivePitch(math.NaN()))
}

func TestPlayOnceAppliesClampedParameters(t *testing.T) {
	cases := []struct {
		name       string
		clip       sound.Clip
		opts       PlayOptions
		wantVolume float64
		wantPitch  float64
	}{
		{"defaults", sound.Clip{Name: "random/click"}, PlayOptions{}, 1, 1},
		{"descriptor", sound.Clip{Name: "random/click", Volume: f64(0.4), Pitch: f64(1.5)}, PlayOptions{}, 0.4, 1.5},
		{"override_wins", sound.Clip{Name: "random/click", Volume: f64(0.4), Pitch: f64(1.5)}, PlayOptions{Volume: f64(0.9), Pitch: f64(0.75)}, 0.9, 0.75},
		{"clamped", sound.Clip{Name: "random/click"}, PlayOptions{Volume: f64(1.5), Pitch: f64(0.1)}, 1, 0.5},
		{"clamped_high_pitch", sound.Clip{Name: "random/click", Pitch: f64(3)}, PlayOptions{}, 1, 2},
		{"nan_override", sound.Clip{Name: "random/click"}, PlayOptions{Volume: f64(math.NaN()), Pitch: f64(math.NaN())}, 0, 0.5},
		{"infinite_override", sound.Clip{Name: "random/click"}, PlayOptions{Volume: f64(math.Inf(1)), Pitch: f64(math.Inf(-1))}, 1, 0.5},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			host := &fakeHost{}
			e := newTestEngine(t, newFetcher("random/click"), host, nil)

			var started *Handle
			c.opts.OnStart = func(h *Handle, err error) {
				require.NoError(t, err)
				started = h
			}
			e.PlayOnce(t.Context(), c.clip, c.opts)
			assert.Equal(t, 0, e.ActiveCount(), "start waits for Update")

			e.Update()
			require.NotNil(t, started)
			assert.Equal(t, c.wantVolume, started.Volume())
			assert.Equal(t, c.wantPitch, started.Pitch())
			assert.Equal(t, c.wantVolume, host.last().params.Volume)
			assert.Equal(t, c.wantPitch, host.last().params.Pitch)
			assert.Equal(t, 1, e.ActiveCount())
		})
	}
}

func TestNaturalEndFiresOnEndAfterLeavingActiveSet(t *testing.T) {
	host := &fakeHost{}
	e := newTestEngine(t, newFetcher("note/harp"), host, nil)

	ends := 0
	e.PlayOnce(t.Context(), sound.Clip{Name: "note/harp"}, PlayOptions{
		OnEnd: func(h *Handle) {
			ends++
			assert.Equal(t, 0, e.ActiveCount())
			assert.True(t, h.Stopped())
		},
	})
	e.Update()
	require.Equal(t, 1, e.ActiveCount())

	e.Update()
	assert.Equal(t, 0, ends, "still playing")

	host.last().playing = false
	e.Update()
	e.Update()
	assert.Equal(t, 1, ends)
}

func TestStopDetachesCallback(t *testing.T) {
	host := &fakeHost{}
	e := newTestEngine(t, newFetcher("a"), host, nil)

	var h *Handle
	e.PlayOnce(t.Context(), sound.Clip{Name: "a"}, PlayOptions{
		OnStart: func(started *Handle, err error) { h = started },
		OnEnd:   func(*Handle) { t.Fatal("stopped handle must not report an end") },
	})
	e.Update()
	require.NotNil(t, h)

	e.Stop(h)
	e.Update()
	assert.True(t, host.last().stopped)
	assert.Equal(t, 0, e.ActiveCount())
	e.Stop(h)
}

func TestStopAllDetachesBeforeStopping(t *testing.T) {
	host := &fakeHost{}
	e := newTestEngine(t, newFetcher("a", "b", "c"), host, nil)

	ends := 0
	for _, name := range []string{"a", "b", "c"} {
		e.PlayOnce(t.Context(), sound.Clip{Name: name}, PlayOptions{OnEnd: func(*Handle) { ends++ }})
	}
	e.Update()
	require.Equal(t, 3, e.ActiveCount())
	assert.Equal(t, []string{"a", "b", "c"}, activeNames(e))

	e.StopAll()
	e.Update()
	assert.Equal(t, 0, e.ActiveCount())
	assert.Zero(t, ends)
	for _, v := range host.voices {
		assert.True(t, v.stopped, v.name)
	}
}

func activeNames(e *Engine) []string {
	var names []string
	for _, h := range e.Active() {
		names = append(names, h.Clip().Name)
	}
	return names
}

func TestLoadFailuresReportThroughOnStart(t *testing.T) {
	decodeFail := errors.New("not vorbis")
	cases := []struct {
		name  string
		host  *fakeHost
		clip  string
		check func(t *testing.T, err error)
	}{
		{"missing_clip", &fakeHost{}, "nope", func(t *testing.T, err error) {
			require.ErrorIs(t, err, fs.ErrNotExist)
		}},
		{"decode", &fakeHost{decodeErr: decodeFail}, "a", func(t *testing.T, err error) {
			var decodeErr *ClipDecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, "a", decodeErr.Clip)
			require.ErrorIs(t, err, decodeFail)
		}},
		{"suspended", &fakeHost{startErr: ErrHostSuspended}, "a", func(t *testing.T, err error) {
			var startErr *PlaybackStartError
			require.ErrorAs(t, err, &startErr)
			require.ErrorIs(t, err, ErrHostSuspended)
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := newTestEngine(t, newFetcher("a"), c.host, nil)
			var gotErr error
			calls := 0
			e.PlayOnce(t.Context(), sound.Clip{Name: c.clip}, PlayOptions{
				OnStart: func(h *Handle, err error) {
					calls++
					assert.Nil(t, h)
					gotErr = err
				},
			})
			e.Update()
			assert.Equal(t, 1, calls)
			c.check(t, gotErr)
			assert.Equal(t, 0, e.ActiveCount())
		})
	}
}

func TestPlayEventResolvesThroughRegistry(t *testing.T) {
	reg := sound.NewRegistry(sound.WithSeed(1), sound.WithLogger(logging.Discard()))
	_, err := reg.LoadDocument([]byte(`{
		"ui.button.click": {"sounds": ["random.click"]},
		"random.click": {"sounds": [{"name": "random/click", "volume": 0.25}]}
	}`))
	require.NoError(t, err)

	host := &fakeHost{}
	fetcher := newFetcher("random/click")
	e := newTestEngine(t, fetcher, host, reg)

	require.NoError(t, e.PlayEvent(t.Context(), "ui.button.click", PlayOptions{}))
	e.Update()
	require.Equal(t, 1, e.ActiveCount())
	assert.Equal(t, 0.25, e.Active()[0].Volume())
	assert.Equal(t, []string{"minecraft/sounds/random/click.ogg"}, fetcher.called)

	err = e.PlayEvent(t.Context(), "missing", PlayOptions{})
	require.ErrorIs(t, err, sound.ErrUnknownSound)
}

func TestPreloadCachesDecodedClips(t *testing.T) {
	host := &fakeHost{}
	fetcher := newFetcher("a", "b", "c")
	e := newTestEngine(t, fetcher, host, nil)

	clips := []sound.Clip{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	require.NoError(t, e.Preload(t.Context(), clips))
	assert.Equal(t, int32(3), host.decodes.Load())
	assert.Len(t, e.Cached(), 3)
	assert.Positive(t, e.CacheSize())

	e.PlayOnce(t.Context(), sound.Clip{Name: "b"}, PlayOptions{})
	e.Update()
	assert.Equal(t, int32(3), host.decodes.Load(), "cached clip is not decoded again")

	err := e.Preload(t.Context(), []sound.Clip{{Name: "missing"}})
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSetMasterVolumeScalesVoices(t *testing.T) {
	host := &fakeHost{}
	e := newTestEngine(t, newFetcher("a"), host, nil)
	e.PlayOnce(t.Context(), sound.Clip{Name: "a", Volume: f64(0.8)}, PlayOptions{})
	e.Update()

	e.SetMasterVolume(0.5)
	assert.InDelta(t, 0.4, host.last().params.Volume, 1e-9)
	assert.Equal(t, 0.8, e.Active()[0].Volume())

	muted := NewEngine(newFetcher("a"), nil, host, WithAsync(inline), WithMuted(true), WithLogger(logging.Discard()))
	muted.PlayOnce(t.Context(), sound.Clip{Name: "a"}, PlayOptions{})
	muted.Update()
	assert.Zero(t, host.last().params.Volume)
}

func TestBackgroundLoadsLandOnUpdate(t *testing.T) {
	host := &fakeHost{}
	e := NewEngine(newFetcher("a"), nil, host, WithLogger(logging.Discard()))

	var started atomic.Bool
	e.PlayOnce(context.Background(), sound.Clip{Name: "a"}, PlayOptions{
		OnStart: func(h *Handle, err error) { started.Store(err == nil) },
	})
	require.Eventually(t, func() bool {
		e.Update()
		return started.Load()
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, e.ActiveCount())
}

func TestCanceledContextFailsLoad(t *testing.T) {
	e := newTestEngine(t, newFetcher("a"), &fakeHost{}, nil)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var gotErr error
	e.PlayOnce(ctx, sound.Clip{Name: "a"}, PlayOptions{OnStart: func(h *Handle, err error) { gotErr = err }})
	e.Update()
	require.ErrorIs(t, gotErr, context.Canceled)
}

type suspendedHost struct {
	fakeHost
	ready atomic.Bool
}

func (h *suspendedHost) Ready() bool { return h.ready.Load() }

func TestUpdateHoldsLoadsUntilHostReady(t *testing.T) {
	host := &suspendedHost{}
	e := newTestEngine(t, newFetcher("music/menu/menu1"), host, nil)

	var started *Handle
	e.PlayOnce(t.Context(), sound.Clip{Name: "music/menu/menu1"}, PlayOptions{
		OnStart: func(h *Handle, err error) {
			require.NoError(t, err)
			started = h
		},
	})

	for i := 0; i < 3; i++ {
		e.Update()
	}
	assert.Nil(t, started)
	assert.Nil(t, host.last())
	assert.Equal(t, 1, e.Pending())

	host.ready.Store(true)
	e.Update()
	require.NotNil(t, started)
	assert.Equal(t, "minecraft/sounds/music/menu/menu1.ogg", host.last().name)
	assert.Equal(t, 1, e.ActiveCount())
	assert.Zero(t, e.Pending())
}

func TestUpdatePollsVoicesWhileHostSuspended(t *testing.T) {
	host := &suspendedHost{}
	host.ready.Store(true)
	e := newTestEngine(t, newFetcher("a"), host, nil)

	ended := 0
	e.PlayOnce(t.Context(), sound.Clip{Name: "a"}, PlayOptions{OnEnd: func(*Handle) { ended++ }})
	e.Update()
	require.Equal(t, 1, e.ActiveCount())

	host.ready.Store(false)
	host.last().playing = false
	e.Update()
	assert.Zero(t, e.ActiveCount())
	assert.Equal(t, 1, ended)
}
