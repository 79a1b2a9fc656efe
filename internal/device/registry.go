package device

import (
	"sync"

	"github.com/coolercontrol-go/coolercontrold/internal/ccerrors"
)

// Registry holds the set of currently connected devices across all
// repositories. It is populated at startup and whenever a repository's
// device set changes; readers (Settings/Mode/Alert controllers) look
// devices up by UID.
type Registry struct {
	mu      sync.RWMutex
	devices map[UID]*Device
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{devices: map[UID]*Device{}}
}

// Set replaces the full device set, used after a repository (re)initializes.
func (r *Registry) Set(devices []*Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[UID]*Device, len(devices))
	for _, d := range devices {
		r.devices[d.UID] = d
	}
}

// Upsert adds or replaces a single device.
func (r *Registry) Upsert(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.UID] = d
}

// Remove drops a device, used when repository initialization fails for it.
func (r *Registry) Remove(uid UID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, uid)
}

// Get returns the device with the given UID.
func (r *Registry) Get(uid UID) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[uid]
	if !ok {
		return nil, ccerrors.New(ccerrors.NotFound, "device not found: "+string(uid))
	}
	return d, nil
}

// All returns every currently present device.
func (r *Registry) All() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}

// Rename applies a config-sourced name override to a device.
func (r *Registry) Rename(uid UID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[uid]
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "device not found: "+string(uid))
	}
	d.Name = name
	return nil
}

// ClearAllHistories resets every device's status history, used to preserve
// the monotone-timestamp invariant after a clock jump (suspend/resume).
func (r *Registry) ClearAllHistories() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		d.History().Clear()
	}
}
