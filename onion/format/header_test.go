package format

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	var hdr = Header{
		Flags:            FlagDivergentHistory | FlagPageAlignment,
		PageSize:         4096,
		OriginEOF:        123456,
		WholeHistoryAddr: 8192,
		WholeHistorySize: 60,
	}
	var b, err = hdr.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, HeaderEncodedSize)
	require.Equal(t, HeaderSignature, string(b[:4]))
	require.Equal(t, Version, b[4])

	var out Header
	require.NoError(t, out.UnmarshalBinary(b))
	require.Equal(t, hdr, out)

	// Re-encode of the decoded struct is byte-identical.
	var b2, err2 = out.MarshalBinary()
	require.NoError(t, err2)
	require.Equal(t, b, b2)
}

func TestHeaderDecodeFailures(t *testing.T) {
	var hdr = Header{Flags: FlagWriteLock, PageSize: 512}
	var b, err = hdr.MarshalBinary()
	require.NoError(t, err)

	var cases = []struct {
		mutate func([]byte)
		cause  error
	}{
		{func(b []byte) { b[0] = 'X' }, ErrBadSignature},
		{func(b []byte) { b[4] = 2 }, ErrBadVersion},
		{func(b []byte) { b[12]++ }, ErrBadChecksum}, // Body byte.
		{func(b []byte) { b[len(b)-1]++ }, ErrBadChecksum},
	}
	for _, tc := range cases {
		var c = append([]byte(nil), b...)
		tc.mutate(c)

		var out Header
		require.Equal(t, tc.cause, errors.Cause(out.UnmarshalBinary(c)))
	}

	var out Header
	require.Equal(t, ErrBadSize, errors.Cause(out.UnmarshalBinary(b[:39])))

	// Unknown flag bits fail on encode and on decode.
	hdr.Flags = 0x800000
	_, err = hdr.MarshalBinary()
	require.Equal(t, ErrBadFlags, errors.Cause(err))

	hdr.Flags = FlagWriteLock
	b, err = hdr.MarshalBinary()
	require.NoError(t, err)
	b[6] = 0x80 // Set an unassigned flag bit, and fix the checksum.
	binary.LittleEndian.PutUint32(b[len(b)-4:], Fletcher32(b[:len(b)-4]))
	require.Equal(t, ErrBadFlags, errors.Cause(out.UnmarshalBinary(b)))

	// A page size which is not a power of two fails validation.
	hdr = Header{PageSize: 1000}
	_, err = hdr.MarshalBinary()
	require.Equal(t, ErrBadPageSize, errors.Cause(err))
}

func TestHeaderFlagsOccupyLowBytes(t *testing.T) {
	var hdr = Header{Flags: KnownFlags, PageSize: 512}
	var b, err = hdr.MarshalBinary()
	require.NoError(t, err)

	// The flag word occupies the three bytes after the version byte.
	require.Equal(t, byte(0x7), b[5])
	require.Equal(t, byte(0x0), b[6])
	require.Equal(t, byte(0x0), b[7])
}
