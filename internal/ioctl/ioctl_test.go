package ioctl_test

import (
	"testing"

	"tuxedoctl/internal/ioctl"

	"github.com/stretchr/testify/assert"
)

// Expected values computed with the _IO/_IOR/_IOW macros from
// asm-generic/ioctl.h on a 64-bit kernel.
func TestRequestCodeEncoding(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"read int ptr", ioctl.IOR(0xEC, 0x06, ioctl.PointerSize), 0x8008EC06},
		{"read high seq", ioctl.IOR(0xEF, 0x17, ioctl.PointerSize), 0x8008EF17},
		{"write int ptr", ioctl.IOW(0xF0, 0x10, ioctl.PointerSize), 0x4008F010},
		{"no payload", ioctl.IO(0xF0, 0x14), 0xF014},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestPointerSize(t *testing.T) {
	// The driver contract assumes a 64-bit kernel.
	assert.Equal(t, uintptr(8), ioctl.PointerSize)
}
