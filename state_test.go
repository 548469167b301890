package main

import (
	"bytes"
	"testing"
)

// TestStateRoundTripIsByteIdentical covers the serialization invariant: a
// core run forward, snapshotted, reloaded from that snapshot, and
// snapshotted again produces byte-identical blobs.
func TestStateRoundTripIsByteIdentical(t *testing.T) {
	c := NewCore()

	rom := make([]byte, 0x4000)
	for i := range rom {
		rom[i] = byte(i)
	}
	c.SetLowerRom(rom)
	c.EnableLowerROM(true)

	c.RunUntil(20000, StopNone)
	c.KeyPress(2, 3, true)

	snapshot := c.GetState()

	restored := NewCore()
	if err := restored.LoadState(snapshot); err != nil {
		t.Fatalf("LoadState error: %v", err)
	}

	again := restored.GetState()
	if !bytes.Equal(snapshot, again) {
		t.Fatal("re-snapshotting a freshly loaded state produced a different blob")
	}
}

// TestStateRoundTripPreservesTicks checks that the clock position specifically
// survives a round trip, since everything else is paced off it.
func TestStateRoundTripPreservesTicks(t *testing.T) {
	c := NewCore()
	c.RunUntil(50000, StopNone)
	before := c.Ticks()

	snapshot := c.GetState()
	restored := NewCore()
	if err := restored.LoadState(snapshot); err != nil {
		t.Fatalf("LoadState error: %v", err)
	}
	if restored.Ticks() != before {
		t.Fatalf("restored ticks = %d, want %d", restored.Ticks(), before)
	}
}

func TestStateLoadRejectsTruncatedBlob(t *testing.T) {
	c := NewCore()
	snapshot := c.GetState()

	restored := NewCore()
	if err := restored.LoadState(snapshot[:len(snapshot)/2]); err == nil {
		t.Fatal("loading a truncated blob should return an error, not succeed silently")
	}
}
