// Package upload implements the process-wide, single-slot upload context:
// the /upload endpoint stages exactly one pending image, and /result
// consumes it exactly once, guarded by a monotonically increasing id so a
// retried commit after the slot has been reseeded is a safe no-op.
package upload

import (
	"sync"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/fwimage"
)

// Context is the process-wide upload slot. The zero value is ready to use.
type Context struct {
	mu     sync.Mutex
	nextID uint64
	id     uint64
	data   []byte
	fwType fwimage.Type
	layout string
}

// Stage records a newly uploaded image, invalidating whatever was
// previously staged, and returns the id the caller must present to Take.
func (c *Context) Stage(data []byte, t fwimage.Type, layout string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.id = c.nextID
	c.data = data
	c.fwType = t
	c.layout = layout
	return c.id
}

// Take returns the staged image if id matches the currently staged upload,
// then unconditionally invalidates the slot (by reseeding id) so a second
// call — whether it matched or not — can never return data twice.
func (c *Context) Take(id uint64) (data []byte, t fwimage.Type, layout string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != 0 && id == c.id && c.data != nil {
		data, t, layout, ok = c.data, c.fwType, c.layout, true
	}
	c.nextID++
	c.id = c.nextID
	c.data = nil
	c.layout = ""
	return
}

// Pending reports whether an upload is currently staged, without consuming
// it, and the id a caller would need to supply to Take it.
func (c *Context) Pending() (id uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.id != 0 && c.data != nil
}
