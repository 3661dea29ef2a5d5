// Copyright (c) 2025 Neomantra Corp

package nexus

// Visitor receives per-kind callbacks while walking an event stream.
type Visitor interface {
	OnDepthUpdate(ev *Event) error
	OnTrade(ev *Event) error
	OnOrderEvent(ev *Event) error
	OnBar(ev *Event) error
	OnHeartbeat(ev *Event) error

	OnStreamEnd() error
}
