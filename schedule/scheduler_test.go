package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/schedule"
)

func TestSchedulerZerosLargeObjectInTiles(t *testing.T) {
	const bufferSize = 16
	const objectSize = 256 // -> 16 tiles, scenario 5 at a test-friendly scale

	c := cache.New(bufferSize)
	require.NoError(t, c.RegisterDevice(1, cache.DeviceCPU, bufferSize*4))

	data := make([]byte, objectSize)
	for i := range data {
		data[i] = 0xFF
	}
	oid, err := c.RegisterObject(data, cache.ModeReadWrite)
	require.NoError(t, err)

	s := schedule.New()
	s.AttachBufferCache(c)
	require.NoError(t, s.AttachDevice(1, cache.DeviceCPU))

	var tileCount int
	zero := schedule.NewUnary("zero", oid, bufferSize, func(q *cache.Queue, tile schedule.ExecutionTile, buf []byte, dp *measure.Datapoint) (*cache.Event, error) {
		for i := range buf {
			buf[i] = 0
		}
		tileCount++
		return cache.Done(), nil
	}, nil, nil)
	s.Enqueue(zero)

	require.NoError(t, s.Run(1))
	require.Equal(t, objectSize/bufferSize, tileCount)
	for i, b := range data {
		require.Equalf(t, byte(0), b, "byte %d should be zeroed", i)
	}
}

func TestSchedulerRejectsMismatchedBinaryTileCounts(t *testing.T) {
	const bufferSize = 16
	c := cache.New(bufferSize)
	require.NoError(t, c.RegisterDevice(1, cache.DeviceCPU, bufferSize*4))

	fst, err := c.RegisterObject(make([]byte, 64), cache.ModeReadOnly)
	require.NoError(t, err)
	snd, err := c.RegisterObject(make([]byte, 48), cache.ModeReadOnly) // deliberately misaligned tile count
	require.NoError(t, err)

	s := schedule.New()
	s.AttachBufferCache(c)
	require.NoError(t, s.AttachDevice(1, cache.DeviceCPU))

	r := schedule.NewBinary("mismatch", fst, snd, bufferSize, bufferSize,
		func(q *cache.Queue, a, b schedule.ExecutionTile, ab, bb []byte, dp *measure.Datapoint) (*cache.Event, error) {
			return cache.Done(), nil
		}, nil, nil)
	s.Enqueue(r)

	require.Error(t, s.Run(1))
}
