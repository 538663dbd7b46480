package audio

import (
	"github.com/google/uuid"

	"github.com/milk9111/menusound/sound"
)

// Handle is a playing clip. It is only valid until it ends or is stopped.
type Handle struct {
	id     uuid.UUID
	clip   sound.Clip
	volume float64
	pitch  float64
	loop   bool
	size   int64

	voice   Voice
	onEnd   func(*Handle)
	stopped bool
}

func (h *Handle) ID() uuid.UUID { return h.id }
func (h *Handle) Clip() sound.Clip { return h.clip }
func (h *Handle) Volume() float64 { return h.volume }
func (h *Handle) Pitch() float64 { return h.pitch }
func (h *Handle) Loop() bool { return h.loop }

// Size is the decoded size of the clip in bytes.
func (h *Handle) Size() int64 { return h.size }

// Stopped reports whether the handle was hard-stopped or finished.
func (h *Handle) Stopped() bool { return h.stopped }

// Detach drops the completion callback so a later end is silent.
func (h *Handle) Detach() {
	h.onEnd = nil
}

func (h *Handle) String() string {
	return h.clip.Name + "#" + h.id.String()[:8]
}
