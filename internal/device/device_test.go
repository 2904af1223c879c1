package device_test

import (
	"testing"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/device"
	"github.com/Borislavv/go-ash-rand/internal/device/cpu"
	"github.com/stretchr/testify/require"
)

// TestOpen_UnknownBackend reports a missing backend.
func TestOpen_UnknownBackend(t *testing.T) {
	_, err := device.Open("quantum", device.Options{})
	require.ErrorIs(t, err, errs.ErrResourceNotFound)
	require.Contains(t, err.Error(), cpu.BackendName)
}

// TestOpen_CPU opens the registered host backend.
func TestOpen_CPU(t *testing.T) {
	require.Contains(t, device.Backends(), cpu.BackendName)

	dev, err := device.Open(cpu.BackendName, device.Options{Parallelism: 2})
	require.NoError(t, err)
	defer func() { require.NoError(t, dev.Close()) }()
	require.Equal(t, "cpu(x2)", dev.Name())
}

// TestRegister_Duplicate panics.
func TestRegister_Duplicate(t *testing.T) {
	require.Panics(t, func() {
		device.Register(cpu.BackendName, func(device.Options) (device.Device, error) { return nil, nil })
	})
}

// TestViews reinterpret buffer bytes.
func TestViews(t *testing.T) {
	dev := cpu.New(device.Options{})
	buf, err := dev.NewBuffer(20)
	require.NoError(t, err)

	require.Len(t, device.Uint64s(buf), 2)
	require.Len(t, device.Float32s(buf), 5)

	device.Float32s(buf)[0] = 1
	require.Equal(t, uint64(0x3f800000), device.Uint64s(buf)[0])

	small, err := dev.NewBuffer(3)
	require.NoError(t, err)
	require.Nil(t, device.Uint64s(small))
	require.Nil(t, device.Float32s(small))
}
