// Copyright (c) 2025 Neomantra Corp

package nexus

// NullVisitor is a Visitor that does nothing. Embed it to implement only
// the callbacks you care about.
type NullVisitor struct{}

func (NullVisitor) OnDepthUpdate(*Event) error { return nil }
func (NullVisitor) OnTrade(*Event) error       { return nil }
func (NullVisitor) OnOrderEvent(*Event) error  { return nil }
func (NullVisitor) OnBar(*Event) error         { return nil }
func (NullVisitor) OnHeartbeat(*Event) error   { return nil }
func (NullVisitor) OnStreamEnd() error         { return nil }
