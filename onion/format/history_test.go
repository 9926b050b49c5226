package format

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestHistoryRoundTrip(t *testing.T) {
	var history = History{
		Records: []RecordPointer{
			{PhysAddr: 40, RecordSize: 96},
			{PhysAddr: 4096, RecordSize: 120},
			{PhysAddr: 8192, RecordSize: 156},
		},
	}
	var b, err = history.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, history.EncodedSize())
	require.Len(t, b, HistoryFixedSize+3*RecordPointerSize)

	// Encode stamped each pointer's checksum.
	for _, ptr := range history.Records {
		require.NotZero(t, ptr.Checksum)
	}

	var out History
	require.NoError(t, out.UnmarshalBinary(b))
	require.Equal(t, history, out)

	var b2, err2 = out.MarshalBinary()
	require.NoError(t, err2)
	require.Equal(t, b, b2)
}

func TestHistoryEmptyRoundTrip(t *testing.T) {
	var history = History{Records: []RecordPointer{}}
	var b, err = history.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, HistoryFixedSize)

	var out History
	require.NoError(t, out.UnmarshalBinary(b))
	require.Empty(t, out.Records)
}

func TestHistoryDecodeFailures(t *testing.T) {
	var history = History{
		Records: []RecordPointer{
			{PhysAddr: 40, RecordSize: 96},
			{PhysAddr: 4096, RecordSize: 120},
		},
	}
	var b, err = history.MarshalBinary()
	require.NoError(t, err)

	var cases = []struct {
		mutate func([]byte)
		cause  error
	}{
		{func(b []byte) { copy(b, "XXXX") }, ErrBadSignature},
		{func(b []byte) { b[4] = 9 }, ErrBadVersion},
		{func(b []byte) { b[8]++ }, ErrBadSize}, // Count disagrees with size.
		{func(b []byte) { b[len(b)-1]++ }, ErrBadChecksum},
	}
	for _, tc := range cases {
		var c = append([]byte(nil), b...)
		tc.mutate(c)

		var out History
		require.Equal(t, tc.cause, errors.Cause(out.UnmarshalBinary(c)))
	}

	// A corrupted record pointer trips its entry checksum, even when the
	// overall record checksum is re-stamped to match.
	var c = append([]byte(nil), b...)
	c[16]++ // First pointer's PhysAddr.
	binary.LittleEndian.PutUint32(c[len(c)-4:], Fletcher32(c[:len(c)-4]))

	var out History
	require.Equal(t, ErrBadChecksum, errors.Cause(out.UnmarshalBinary(c)))
}

func TestHistoryEncodeRequiresAscendingAddresses(t *testing.T) {
	var history = History{
		Records: []RecordPointer{
			{PhysAddr: 4096, RecordSize: 96},
			{PhysAddr: 40, RecordSize: 120},
		},
	}
	var _, err = history.MarshalBinary()
	require.Error(t, err)
}
