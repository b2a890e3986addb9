package reminder

import (
	"sync"
	"time"
)

// DeDup is a thread safe set of active keys, used to prevent overlapping runs
type DeDup struct {
	active map[string]time.Time
	lock   sync.Mutex
}

// NewDeDup creates an empty DeDup
func NewDeDup() *DeDup {
	return &DeDup{active: make(map[string]time.Time)}
}

// Add registers the key, returns false if it is already active
func (d *DeDup) Add(key string) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, found := d.active[key]; found {
		return false
	}
	d.active[key] = time.Now()
	return true
}

// Remove unregisters the key. Safe to call multiple times
func (d *DeDup) Remove(key string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.active, key)
}

// Since returns when the key became active, zero time if it is not active
func (d *DeDup) Since(key string) time.Time {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.active[key]
}
