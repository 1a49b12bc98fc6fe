package oto_test

import (
	"bytes"
	"testing"

	"github.com/beatrochee/encore-player/oto"
)

func TestFloat32To16BitLE(t *testing.T) {
	got := oto.Float32To16BitLE([]float32{0, 1, -1, 0.5, 2, -2}, nil)
	want := []byte{
		0x00, 0x00, // 0
		0xff, 0x7f, // 1 -> MaxInt16
		0x01, 0x80, // -1 -> -MaxInt16
		0xff, 0x3f, // 0.5
		0xff, 0x7f, // clamped
		0x01, 0x80, // clamped
	}
	if !bytes.Equal(got, want) {
		t.Errorf("expected % x, got % x", want, got)
	}
}

func TestFloat32To16BitLEAppends(t *testing.T) {
	dst := make([]byte, 0, 16)
	first := oto.Float32To16BitLE([]float32{0}, dst)
	second := oto.Float32To16BitLE([]float32{1}, first)
	if len(second) != 4 {
		t.Errorf("expected the second conversion appended, got %d bytes", len(second))
	}
}
