package testutils

import (
	"sync"
	"sync/atomic"

	"github.com/srg/blegatt/internal/host"
)

// FakeDevice is a minimal client device context: sync state, passkey and
// ignore list.
type FakeDevice struct {
	synced  atomic.Bool
	passkey atomic.Uint32
	own     host.AddrType

	mu      sync.Mutex
	ignored map[host.Addr]int
	resets  []int

	// OnResetHook runs after the reset is recorded, on the host-event context.
	OnResetHook func(reason int)
}

func NewFakeDevice() *FakeDevice {
	d := &FakeDevice{ignored: make(map[host.Addr]int), own: host.AddrTypePublic}
	d.passkey.Store(123456)
	return d
}

func (d *FakeDevice) Synced() bool               { return d.synced.Load() }
func (d *FakeDevice) Passkey() uint32            { return d.passkey.Load() }
func (d *FakeDevice) OwnAddrType() host.AddrType { return d.own }
func (d *FakeDevice) SetPasskey(p uint32)        { d.passkey.Store(p) }
func (d *FakeDevice) SetSynced(v bool)           { d.synced.Store(v) }

func (d *FakeDevice) AddIgnored(addr host.Addr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ignored[addr]++
}

func (d *FakeDevice) RemoveIgnored(addr host.Addr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.ignored, addr)
}

func (d *FakeDevice) IsIgnored(addr host.Addr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ignored[addr] > 0
}

// OnSync and OnReset are host lifecycle handlers.
func (d *FakeDevice) OnSync() {
	d.synced.Store(true)
}

func (d *FakeDevice) OnReset(reason int) {
	d.synced.Store(false)
	d.mu.Lock()
	d.resets = append(d.resets, reason)
	hook := d.OnResetHook
	d.mu.Unlock()
	if hook != nil {
		hook(reason)
	}
}

// Resets returns the reasons of every reset seen.
func (d *FakeDevice) Resets() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.resets...)
}
