package fdtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptor_Variants(t *testing.T) {
	tests := []struct {
		name     string
		d        Descriptor
		isSingle bool
		isMulti  bool
	}{
		{name: "invalid", d: Invalid, isSingle: false, isMulti: false},
		{name: "one mask bit", d: 1 << 30, isSingle: false, isMulti: true},
		{name: "several mask bits", d: 1<<30 | 1<<29, isSingle: false, isMulti: true},
		{name: "tagged slot", d: 1<<31 | 44, isSingle: true, isMulti: false},
		{name: "stdin", d: Stdin, isSingle: true, isMulti: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isSingle, tt.d.IsSingle())
			assert.Equal(t, tt.isMulti, tt.d.IsMulti())
		})
	}
}

func TestDescriptor_StandardStreamEncoding(t *testing.T) {
	// The 32-bit wire values testbench code hard-codes.
	assert.Equal(t, uint32(0x8000_0000), uint32(Stdin))
	assert.Equal(t, uint32(0x8000_0001), uint32(Stdout))
	assert.Equal(t, uint32(0x8000_0002), uint32(Stderr))
}

func TestDescriptor_SlotExtraction(t *testing.T) {
	d := Descriptor(1<<31 | 37)
	assert.Equal(t, 37, d.slot())
	assert.Equal(t, 0, Stdin.slot())
	assert.Equal(t, 2, Stderr.slot())
}
