package main

import "testing"

func TestAudioRingWriteAndDrain(t *testing.T) {
	a := NewAudioRing()
	for i := 0; i < 10; i++ {
		a.WriteSample([3]byte{byte(i), byte(i * 2), byte(i * 3)})
	}

	var ch0, ch1, ch2 [10]byte
	n := a.GetBuffers(10, [3][]byte{ch0[:], ch1[:], ch2[:]})
	if n != 10 {
		t.Fatalf("GetBuffers returned %d, want 10", n)
	}
	for i := 0; i < 10; i++ {
		if ch0[i] != byte(i) || ch1[i] != byte(i*2) || ch2[i] != byte(i*3) {
			t.Fatalf("sample %d mismatch: %d %d %d", i, ch0[i], ch1[i], ch2[i])
		}
	}
}

func TestAudioRingPartialDrainReturnsAvailableOnly(t *testing.T) {
	a := NewAudioRing()
	a.WriteSample([3]byte{1, 1, 1})
	a.WriteSample([3]byte{2, 2, 2})

	var ch0, ch1, ch2 [10]byte
	n := a.GetBuffers(10, [3][]byte{ch0[:], ch1[:], ch2[:]})
	if n != 2 {
		t.Fatalf("GetBuffers returned %d, want 2 (only 2 samples queued)", n)
	}
}

func TestAudioRingOverrunWhenWriterOutrunsReader(t *testing.T) {
	a := NewAudioRing()
	if a.Overrun() {
		t.Fatal("fresh ring should not report overrun")
	}
	for i := 0; i < audioRingSize+1; i++ {
		a.WriteSample([3]byte{0, 0, 0})
	}
	if !a.Overrun() {
		t.Fatal("writing more than the ring size without draining should overrun")
	}

	var ch0, ch1, ch2 [audioRingSize]byte
	a.GetBuffers(audioRingSize, [3][]byte{ch0[:], ch1[:], ch2[:]})
	// readPos now trails writePos by exactly 1, well under the ring size.
	if a.Overrun() {
		t.Fatal("overrun should clear once the reader has drained the backlog")
	}
}

func TestAudioRingStateRoundTrip(t *testing.T) {
	a := NewAudioRing()
	for i := 0; i < 25; i++ {
		a.WriteSample([3]byte{byte(i), byte(i + 1), byte(i + 2)})
	}
	var drained [5]byte
	a.GetBuffers(5, [3][]byte{drained[:], nil, nil})

	w := NewStreamWriter()
	a.Write_(w)

	b := NewAudioRing()
	if err := b.Read_(NewStreamReader(w.Bytes())); err != nil {
		t.Fatalf("Read_ error: %v", err)
	}
	if b.writePos != a.writePos || b.readPos != a.readPos {
		t.Fatalf("round-tripped positions = (%d,%d), want (%d,%d)", b.readPos, b.writePos, a.readPos, a.writePos)
	}
	if b.channel != a.channel {
		t.Fatal("round-tripped channel contents mismatch")
	}
}
