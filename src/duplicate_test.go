package dcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepeatFilter_Confirm(t *testing.T) {
	var f repeatFilter
	var a = []byte{0x7C, 0x00, 0x03, 0x7F}

	assert.False(t, f.Confirm(a), "first")
	assert.True(t, f.Confirm(a), "second")
	assert.False(t, f.Confirm(a), "third")
	assert.False(t, f.Confirm(a), "fourth")

	// Something else in between starts over.
	assert.False(t, f.Confirm([]byte{0x7C, 0x00, 0x04, 0x78}))
	assert.False(t, f.Confirm(a))
	assert.True(t, f.Confirm(a))
}

func TestRepeatFilter_ConfirmSize(t *testing.T) {
	var f repeatFilter

	assert.False(t, f.Confirm([]byte{1, 2, 3}))
	assert.False(t, f.Confirm([]byte{1, 2, 3, 0}), "longer is different")
	assert.False(t, f.Confirm([]byte{1, 2, 3}))
}

func TestRepeatFilter_Repeat(t *testing.T) {
	var f repeatFilter

	assert.False(t, f.Repeat([]byte{'B', 0, 1}))
	assert.True(t, f.Repeat([]byte{'B', 0, 1}))
	assert.True(t, f.Repeat([]byte{'B', 0, 1}))
	assert.False(t, f.Repeat([]byte{'B', 0, 2}))
	assert.False(t, f.Repeat([]byte{'B', 0, 1}))
}

func TestRepeatFilter_Clear(t *testing.T) {
	var f repeatFilter

	f.Confirm([]byte{1, 2, 3})
	f.Clear()

	assert.False(t, f.Confirm([]byte{1, 2, 3}), "forgotten")
	assert.False(t, f.Repeat([]byte{}), "empty key never repeats")
}
