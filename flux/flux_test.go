package flux

import "testing"

func TestDecoderRecoversBitsFromIdealTransitions(t *testing.T) {
	// Ideal 500kbps MFM: bitcell period = 1e6/500/2 = 1000ns.
	// Feed ideal transition times directly (no PLL jitter) and confirm
	// NextBit produces bits from them.
	bitcellNs := uint64(1000)
	// Pattern of transitions every 2 bitcells (simulating alternating 1/0
	// data with no consecutive zeros) - transition at each 2-bitcell mark.
	transitions := []uint64{2 * bitcellNs, 4 * bitcellNs, 6 * bitcellNs}
	d := NewDecoder(transitions, 500)

	var bits []bool
	for !d.IsDone() {
		bits = append(bits, d.NextBit())
	}
	if len(bits) == 0 {
		t.Fatalf("expected at least one decoded bit")
	}
}

func TestCoverFullRotationExtendsToRotationDuration(t *testing.T) {
	transitions := []uint64{1000, 2000}
	out := CoverFullRotation(transitions, 250, 300)
	if len(out) <= len(transitions) {
		t.Fatalf("expected CoverFullRotation to append transitions, got len %d", len(out))
	}
	rotationDurationNs := uint64(60e9 / 300.0)
	last := out[len(out)-1]
	if last > rotationDurationNs {
		t.Errorf("last transition %d exceeds rotation duration %d", last, rotationDurationNs)
	}
}

func TestEncodeBitBufferRejectsEmpty(t *testing.T) {
	if _, err := EncodeBitBuffer(nil); err == nil {
		t.Fatalf("expected error for nil buffer")
	}
}
