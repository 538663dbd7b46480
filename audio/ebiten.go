package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// DefaultSampleRate is used when no audio context exists yet.
const DefaultSampleRate = 44100

// 16-bit little endian stereo.
const bytesPerFrame = 4

// EbitenHost plays decoded PCM through the shared ebiten audio context.
type EbitenHost struct {
	ctx *ebaudio.Context
}

// NewEbitenHost reuses the current audio context or creates one at
// sampleRate.
func NewEbitenHost(sampleRate int) *EbitenHost {
	ctx := ebaudio.CurrentContext()
	if ctx == nil {
		if sampleRate <= 0 {
			sampleRate = DefaultSampleRate
		}
		ctx = ebaudio.NewContext(sampleRate)
	}
	return &EbitenHost{ctx: ctx}
}

// SampleRate returns the context sample rate.
func (h *EbitenHost) SampleRate() int {
	return h.ctx.SampleRate()
}

type pcmBuffer struct {
	name string
	pcm  []byte
}

func (b *pcmBuffer) Size() int64 { return int64(len(b.pcm)) }

// Decode turns an ogg, wav or mp3 file into PCM at the context sample rate.
// Unknown extensions are treated as ogg.
func (h *EbitenHost) Decode(name string, data []byte) (Buffer, error) {
	pcm, err := decodePCM(h.ctx.SampleRate(), name, data)
	if err != nil {
		return nil, err
	}
	return &pcmBuffer{name: name, pcm: pcm}, nil
}

// Ready reports whether the audio device has started. Browsers keep it
// suspended until the first user gesture.
func (h *EbitenHost) Ready() bool {
	return h.ctx.IsReady()
}

func decodePCM(sampleRate int, name string, data []byte) ([]byte, error) {
	src := bytes.NewReader(data)

	var stream io.Reader
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		s, err := wav.DecodeWithSampleRate(sampleRate, src)
		if err != nil {
			return nil, fmt.Errorf("decode wav %q: %w", name, err)
		}
		stream = s
	case ".mp3":
		s, err := mp3.DecodeWithSampleRate(sampleRate, src)
		if err != nil {
			return nil, fmt.Errorf("decode mp3 %q: %w", name, err)
		}
		stream = s
	default:
		s, err := vorbis.DecodeWithSampleRate(sampleRate, src)
		if err != nil {
			return nil, fmt.Errorf("decode ogg %q: %w", name, err)
		}
		stream = s
	}

	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pcm %q: %w", name, err)
	}
	return pcm, nil
}

// Start plays buf. A pitch other than 1 resamples the clip so it plays faster
// or slower.
func (h *EbitenHost) Start(buf Buffer, p Params) (Voice, error) {
	if !h.ctx.IsReady() {
		return nil, ErrHostSuspended
	}
	b, ok := buf.(*pcmBuffer)
	if !ok {
		return nil, fmt.Errorf("unsupported buffer %T", buf)
	}

	var src io.ReadSeeker = bytes.NewReader(b.pcm)
	size := int64(len(b.pcm))
	if p.Pitch > 0 && p.Pitch != 1 {
		to := h.ctx.SampleRate()
		from := int(math.Round(float64(to) * p.Pitch))
		src = ebaudio.Resample(src, size, from, to)
		size = size / bytesPerFrame * int64(to) / int64(from) * bytesPerFrame
	}
	if p.Loop {
		src = ebaudio.NewInfiniteLoop(src, size)
	}

	player, err := h.ctx.NewPlayer(src)
	if err != nil {
		return nil, err
	}
	player.SetVolume(p.Volume)
	player.Play()
	return &ebitenVoice{player: player}, nil
}

type ebitenVoice struct {
	player *ebaudio.Player
}

func (v *ebitenVoice) Playing() bool {
	return v.player.IsPlaying()
}

func (v *ebitenVoice) SetVolume(vol float64) {
	v.player.SetVolume(vol)
}

func (v *ebitenVoice) Stop() {
	v.player.Pause()
	_ = v.player.Close()
}
