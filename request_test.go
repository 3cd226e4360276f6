package fastmodbus

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequests(t *testing.T) {
	start := BuildStart()
	assert.Equal(t, RequestFrame{0xFD, 0x60, 0x01, 0x09, 0xF0}, start)
	assert.Equal(t, SubStart, start.Subcommand())

	cont := BuildContinue()
	assert.Equal(t, RequestFrame{0xFD, 0x60, 0x02, 0x49, 0xF1}, cont)
	assert.Equal(t, SubContinue, cont.Subcommand())
}

func TestRequestEncode(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, BuildStart().Encode(&b))
	assert.Equal(t, []byte{0xFD, 0x60, 0x01, 0x09, 0xF0}, b.Bytes())
}

func TestParseRequest(t *testing.T) {
	start := BuildStart()
	sub, err := ParseRequest(start[:])
	require.NoError(t, err)
	assert.Equal(t, SubStart, sub)

	cont := BuildContinue()
	sub, err = ParseRequest(cont[:])
	require.NoError(t, err)
	assert.Equal(t, SubContinue, sub)

	_, err = ParseRequest(start[:4])
	var lenErr *InvalidLenError
	assert.True(t, errors.As(err, &lenErr))

	bad := start
	bad[4] ^= 0x01
	_, err = ParseRequest(bad[:])
	assert.Equal(t, ErrCRC, err)

	_, err = ParseRequest(AppendEndResponse(nil))
	assert.Equal(t, SubcommandError(SubEnd), err)
}

func TestAppendResponses(t *testing.T) {
	d := Device{SerialNumber: [4]byte{1, 2, 3, 4}, Addr: 0x0A}
	assert.Equal(t,
		[]byte{0xFD, 0x60, 0x03, 0x01, 0x02, 0x03, 0x04, 0x0A, 0xA0, 0x5C},
		AppendDataResponse(nil, d))
	assert.Equal(t, []byte{0xFD, 0x60, 0x04, 0xC9, 0xF3}, AppendEndResponse(nil))

	// appending keeps the prefix out of the checksum
	b := AppendEndResponse([]byte{PadByte, PadByte})
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFD, 0x60, 0x04, 0xC9, 0xF3}, b)
}

func TestSubcommandString(t *testing.T) {
	assert.Equal(t, "start", SubStart.String())
	assert.Equal(t, "end", SubEnd.String())
	assert.Equal(t, "0x7", Subcommand(7).String())
}
