// ABOUTME: Per-channel volume scalar storage with change listeners
// ABOUTME: Used by backends whose devices have no hardware volume control
package hal

import (
	"sync"
)

type elementKey struct {
	dev     DeviceID
	element uint32
}

// VolumeTable stores 0..1 volume scalars per device channel element and
// fans change notifications out to listeners on a separate goroutine.
// Elements that were never set read as full volume.
type VolumeTable struct {
	mu        sync.RWMutex
	volumes   map[elementKey]float32
	listeners map[elementKey][]PropertyListener
}

// NewVolumeTable creates an empty table
func NewVolumeTable() *VolumeTable {
	return &VolumeTable{
		volumes:   make(map[elementKey]float32),
		listeners: make(map[elementKey][]PropertyListener),
	}
}

// Get returns the scalar of one element
func (t *VolumeTable) Get(dev DeviceID, element uint32) float32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if v, ok := t.volumes[elementKey{dev, element}]; ok {
		return v
	}
	return 1.0
}

// Set stores the scalar of one element, clamped to 0..1, and notifies
// listeners when the value changed
func (t *VolumeTable) Set(dev DeviceID, element uint32, v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	key := elementKey{dev, element}

	t.mu.Lock()
	old, ok := t.volumes[key]
	t.volumes[key] = v
	var ls []PropertyListener
	if !ok || old != v {
		ls = append(ls, t.listeners[key]...)
	}
	t.mu.Unlock()

	if len(ls) > 0 {
		go func() {
			for _, l := range ls {
				l.PropertyChanged(dev, element)
			}
		}()
	}
}

// Fill writes the scalar for stream channel c (element c+1) into gains[c].
// It does not allocate, so render callbacks may call it.
func (t *VolumeTable) Fill(dev DeviceID, gains []float32) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for c := range gains {
		if v, ok := t.volumes[elementKey{dev, uint32(c + 1)}]; ok {
			gains[c] = v
		} else {
			gains[c] = 1.0
		}
	}
}

// AddListener registers l for changes of one element. Adding the same
// listener twice has no effect.
func (t *VolumeTable) AddListener(dev DeviceID, element uint32, l PropertyListener) {
	key := elementKey{dev, element}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.listeners[key] {
		if existing == l {
			return
		}
	}
	t.listeners[key] = append(t.listeners[key], l)
}

// RemoveListener unregisters l; it reports whether l was registered
func (t *VolumeTable) RemoveListener(dev DeviceID, element uint32, l PropertyListener) bool {
	key := elementKey{dev, element}

	t.mu.Lock()
	defer t.mu.Unlock()

	ls := t.listeners[key]
	for i, existing := range ls {
		if existing == l {
			t.listeners[key] = append(ls[:i:i], ls[i+1:]...)
			return true
		}
	}
	return false
}

// HogTable tracks which process holds exclusive access to each device.
// Backends without a platform-wide hog property keep one per process.
type HogTable struct {
	mu     sync.Mutex
	owners map[DeviceID]int
}

// NewHogTable creates a table with every device unowned
func NewHogTable() *HogTable {
	return &HogTable{owners: make(map[DeviceID]int)}
}

// Owner returns the owning pid, or NoHogOwner
func (t *HogTable) Owner(dev DeviceID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pid, ok := t.owners[dev]; ok {
		return pid
	}
	return NoHogOwner
}

// SetOwner records pid as the owner; NoHogOwner releases the device
func (t *HogTable) SetOwner(dev DeviceID, pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pid == NoHogOwner {
		delete(t.owners, dev)
		return
	}
	t.owners[dev] = pid
}
