// Package system tracks broker-wide runtime counters, in the style of
// MQTT's conventional $SYS topic tree.
package system

import "sync/atomic"

// Info holds atomically-updated broker counters. All fields are accessed
// through the increment/set helpers below; do not mutate directly.
type Info struct {
	Version              string
	started              int64
	ClientsConnected     int64
	ClientsDisconnected  int64
	ClientsMaximum       int64
	ClientsTotal         int64
	MessagesReceived     int64
	MessagesSent         int64
	MessagesDropped      int64
	Retained             int64
	Subscriptions        int64
	PacketsReceived      int64
	PacketsSent          int64
	BytesReceived        int64
	BytesSent            int64
}

// New returns a zeroed Info snapshot.
func New(version string) *Info {
	return &Info{Version: version}
}

func (i *Info) IncClientsConnected() {
	atomic.AddInt64(&i.ClientsConnected, 1)
	atomic.AddInt64(&i.ClientsTotal, 1)
	if c := atomic.LoadInt64(&i.ClientsConnected); c > atomic.LoadInt64(&i.ClientsMaximum) {
		atomic.StoreInt64(&i.ClientsMaximum, c)
	}
}

func (i *Info) DecClientsConnected() {
	atomic.AddInt64(&i.ClientsConnected, -1)
	atomic.AddInt64(&i.ClientsDisconnected, 1)
}

func (i *Info) IncMessagesReceived() { atomic.AddInt64(&i.MessagesReceived, 1) }
func (i *Info) IncMessagesSent()     { atomic.AddInt64(&i.MessagesSent, 1) }
func (i *Info) IncMessagesDropped()  { atomic.AddInt64(&i.MessagesDropped, 1) }
func (i *Info) IncPacketsReceived()  { atomic.AddInt64(&i.PacketsReceived, 1) }
func (i *Info) IncPacketsSent()      { atomic.AddInt64(&i.PacketsSent, 1) }
func (i *Info) AddBytesReceived(n int64) { atomic.AddInt64(&i.BytesReceived, n) }
func (i *Info) AddBytesSent(n int64)     { atomic.AddInt64(&i.BytesSent, n) }
func (i *Info) SetRetained(n int64)      { atomic.StoreInt64(&i.Retained, n) }
func (i *Info) SetSubscriptions(n int64) { atomic.StoreInt64(&i.Subscriptions, n) }

// Clone returns a point-in-time copy safe to read without racing further
// updates.
func (i *Info) Clone() Info {
	return Info{
		Version:             i.Version,
		ClientsConnected:    atomic.LoadInt64(&i.ClientsConnected),
		ClientsDisconnected: atomic.LoadInt64(&i.ClientsDisconnected),
		ClientsMaximum:      atomic.LoadInt64(&i.ClientsMaximum),
		ClientsTotal:        atomic.LoadInt64(&i.ClientsTotal),
		MessagesReceived:    atomic.LoadInt64(&i.MessagesReceived),
		MessagesSent:        atomic.LoadInt64(&i.MessagesSent),
		MessagesDropped:     atomic.LoadInt64(&i.MessagesDropped),
		Retained:            atomic.LoadInt64(&i.Retained),
		Subscriptions:       atomic.LoadInt64(&i.Subscriptions),
		PacketsReceived:     atomic.LoadInt64(&i.PacketsReceived),
		PacketsSent:         atomic.LoadInt64(&i.PacketsSent),
		BytesReceived:       atomic.LoadInt64(&i.BytesReceived),
		BytesSent:           atomic.LoadInt64(&i.BytesSent),
	}
}
