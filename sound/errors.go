package sound

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownSound = errors.New("sound: unknown sound id")
	ErrCyclicAlias  = errors.New("sound: cyclic alias")
	ErrNoVariants   = errors.New("sound: no variants to select from")
)

// UnknownSoundError names the id that has no registered definition.
type UnknownSoundError struct {
	ID string
}

func (e *UnknownSoundError) Error() string {
	return fmt.Sprintf("sound: unknown sound id %q", e.ID)
}

func (e *UnknownSoundError) Is(target error) bool { return target == ErrUnknownSound }

// CyclicAliasError carries the ids visited before the cycle closed. The last
// element repeats an earlier one.
type CyclicAliasError struct {
	Chain []string
}

func (e *CyclicAliasError) Error() string {
	return "sound: cyclic alias " + strings.Join(e.Chain, " -> ")
}

func (e *CyclicAliasError) Is(target error) bool { return target == ErrCyclicAlias }
