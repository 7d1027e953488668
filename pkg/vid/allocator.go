// Package vid implements the virtual-identifier allocator (spec.md §4.1):
// minting VIDs and tracking switch-index occupancy. The VID encoding itself
// (bit layout, pure encode/decode) lives in pkg/sai since the attribute
// model needs it independent of any allocator state.
package vid

import (
	"errors"
	"sync"

	"github.com/flowbridge/syncd/pkg/sai"
)

// ErrNoFreeSwitchIndex is returned by AllocateSwitchVID when all 256
// switch-index slots are occupied.
var ErrNoFreeSwitchIndex = errors.New("vid: no free switch index")

// ErrInvalidSwitchVID is returned by AllocateObjectVID when the supplied
// VID does not itself identify a switch.
var ErrInvalidSwitchVID = errors.New("vid: supplied VID is not a switch VID")

// ErrCounterExhausted is returned when a per-switch counter would overflow
// its 48-bit field. In practice this never happens (§4.1).
var ErrCounterExhausted = errors.New("vid: 48-bit counter exhausted")

// CounterStore persists the monotonic per-switch object counter across
// restarts. The default production backing is pkg/kvstore; tests may use
// an in-memory stub.
type CounterStore interface {
	// Next atomically increments and returns the counter for switchIndex.
	// The first call for a previously unseen switchIndex returns 1.
	Next(switchIndex uint8) (uint64, error)
}

// Allocator mints VIDs per §4.1. It is safe for concurrent use; callers
// running under the engine's single API mutex (§5) get that for free, but
// Allocator does not depend on it.
type Allocator struct {
	mu       sync.Mutex
	occupied [256]bool
	counters CounterStore
}

// NewAllocator constructs an Allocator backed by the given persistent
// counter store.
func NewAllocator(counters CounterStore) *Allocator {
	return &Allocator{counters: counters}
}

// MarkSwitchIndexOccupied records that switchIndex is already in use,
// called during startup recovery when a switch VID is loaded from the
// persisted RID/VID map rather than freshly allocated.
func (a *Allocator) MarkSwitchIndexOccupied(switchIndex uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.occupied[switchIndex] = true
}

// AllocateSwitchVID acquires the lowest free switch index from the
// fixed-capacity (256) bitmap and returns the switch's VID, whose counter
// field equals its switch index (§3: "deterministic").
func (a *Allocator) AllocateSwitchVID() (sai.VID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i <= sai.MaxSwitchIndex; i++ {
		if !a.occupied[i] {
			a.occupied[i] = true
			idx := uint8(i)
			return sai.EncodeVID(sai.ObjectTypeSwitch, idx, uint64(idx)), nil
		}
	}
	return sai.NullVID, ErrNoFreeSwitchIndex
}

// FreeSwitchVID clears the switch-index bit, making it available for reuse.
// Non-switch VIDs are never recycled: the per-switch counter is monotonic
// and 48 bits wide (§4.1).
func (a *Allocator) FreeSwitchVID(v sai.VID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.occupied[v.SwitchIndex()] = false
}

// AllocateObjectVID extracts the switch index from switchVID, fetches and
// atomically increments that switch's persistent counter, and constructs a
// VID of the given object type.
func (a *Allocator) AllocateObjectVID(objectType sai.ObjectType, switchVID sai.VID) (sai.VID, error) {
	if !switchVID.IsSwitch() {
		return sai.NullVID, ErrInvalidSwitchVID
	}

	switchIndex := switchVID.SwitchIndex()
	counter, err := a.counters.Next(switchIndex)
	if err != nil {
		return sai.NullVID, err
	}
	if counter > sai.MaxVIDCounter {
		return sai.NullVID, ErrCounterExhausted
	}

	return sai.EncodeVID(objectType, switchIndex, counter), nil
}

// ObjectTypeOf is a pure function of v's bit layout (§4.1).
func ObjectTypeOf(v sai.VID) sai.ObjectType {
	return v.ObjectType()
}

// SwitchVIDOf returns v itself if it is already a switch VID; otherwise it
// reconstructs the owning switch VID from v's switch-index field (§4.1).
func SwitchVIDOf(v sai.VID) sai.VID {
	if v.IsSwitch() {
		return v
	}
	idx := v.SwitchIndex()
	return sai.EncodeVID(sai.ObjectTypeSwitch, idx, uint64(idx))
}
