package audio

// Buffer is a decoded clip ready to be started any number of times.
type Buffer interface {
	// Size is the decoded size in bytes.
	Size() int64
}

// Params are the effective playback parameters of one voice.
type Params struct {
	Volume float64
	Pitch  float64
	Loop   bool
}

// Voice is one sounding instance of a Buffer.
type Voice interface {
	Playing() bool
	SetVolume(v float64)
	// Stop halts the voice immediately. It never reports completion.
	Stop()
}

// Host is the audio backend. Decode may be called from any goroutine; Start
// is only called from the goroutine driving Engine.Update.
type Host interface {
	Decode(name string, data []byte) (Buffer, error)
	Start(buf Buffer, p Params) (Voice, error)
}

// Readier is implemented by hosts that can be temporarily unable to start
// voices. While Ready reports false the engine holds finished loads back
// instead of starting them.
type Readier interface {
	Ready() bool
}
