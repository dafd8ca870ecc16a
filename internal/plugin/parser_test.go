package plugin

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sub(tag string, data []byte) []byte {
	out := make([]byte, 0, 6+len(data))
	out = append(out, tag...)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(data)))
	return append(out, data...)
}

func zstring(s string) []byte {
	return append([]byte(s), 0)
}

func hedr(version float32, numRecords uint32) []byte {
	data := binary.LittleEndian.AppendUint32(nil, math.Float32bits(version))
	data = binary.LittleEndian.AppendUint32(data, numRecords)
	// Next available object ID; present in real files, ignored here.
	data = binary.LittleEndian.AppendUint32(data, 0x800)
	return sub("HEDR", data)
}

func buildRecord(sig string, flags uint32, subs ...[]byte) []byte {
	body := bytes.Join(subs, nil)

	out := make([]byte, 0, headerSize+len(body))
	out = append(out, sig...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	out = binary.LittleEndian.AppendUint32(out, flags)
	out = binary.LittleEndian.AppendUint32(out, 0x000008AB) // formID
	out = binary.LittleEndian.AppendUint32(out, 0x5B1E0000) // timestamp
	out = binary.LittleEndian.AppendUint16(out, 44)         // form version
	out = binary.LittleEndian.AppendUint16(out, 0)
	return append(out, body...)
}

func TestParse_FullHeader(t *testing.T) {
	sizeData := binary.LittleEndian.AppendUint64(nil, 249753412)
	raw := buildRecord(signature, flagMaster|flagLocalized,
		hedr(1.71, 42),
		sub("CNAM", zstring("Bethesda")),
		sub("SNAM", zstring("The main game file.")),
		sub("MAST", zstring("Skyrim.esm")),
		sub("DATA", sizeData),
		sub("MAST", zstring("Update.esm")),
	)

	header, err := Parse("Dragonborn.esp", bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Dragonborn.esp", header.Filename)
	assert.InDelta(t, 1.71, header.Version, 0.001)
	assert.Equal(t, uint32(42), header.NumRecords)
	assert.Equal(t, uint16(44), header.FormVersion)
	assert.Equal(t, uint32(0x000008AB), header.FormID)
	assert.Equal(t, "Bethesda", header.Author)
	assert.Equal(t, "The main game file.", header.Description)

	assert.True(t, header.IsMaster)
	assert.True(t, header.IsLocalized)
	assert.False(t, header.IsLight)
	// Master flag beats the .esp extension.
	assert.Equal(t, TypeESM, header.Type)

	require.Len(t, header.Masters, 2)
	assert.Equal(t, "Skyrim.esm", header.Masters[0].Name)
	assert.Equal(t, uint64(249753412), header.Masters[0].Size)
	assert.Equal(t, "Update.esm", header.Masters[1].Name)
	assert.Zero(t, header.Masters[1].Size)
}

func TestParse_LightFlagWinsOverMaster(t *testing.T) {
	raw := buildRecord(signature, flagMaster|flagLight, hedr(1.71, 1))

	header, err := Parse("tiny.esp", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, header.IsLight)
	assert.Equal(t, TypeESL, header.Type)
}

func TestParse_TypeFromExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     Type
	}{
		{"Skyrim.esm", TypeESM},
		{"SKYRIM.ESM", TypeESM},
		{"light.esl", TypeESL},
		{"mod.esp", TypeESP},
		{"noextension", TypeESP},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			raw := buildRecord(signature, 0, hedr(1.71, 1))
			header, err := Parse(tt.filename, bytes.NewReader(raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, header.Type)
		})
	}
}

func TestParse_TruncatedHeader(t *testing.T) {
	_, err := Parse("short.esp", bytes.NewReader([]byte("TES4\x00\x01")))
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Parse("empty.esp", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParse_TruncatedBody(t *testing.T) {
	raw := buildRecord(signature, 0, hedr(1.71, 1))
	// Chop off the last ten bytes of the record body.
	_, err := Parse("chopped.esp", bytes.NewReader(raw[:len(raw)-10]))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParse_NotPlugin(t *testing.T) {
	raw := append([]byte{0x89, 'P', 'N', 'G'}, make([]byte, headerSize)...)
	_, err := Parse("image.esp", bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrNotPlugin)
}

func TestParse_InvalidSignature(t *testing.T) {
	raw := buildRecord("GRUP", 0)
	_, err := Parse("group.esp", bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParse_DataWithoutPrecedingMast(t *testing.T) {
	sizeData := binary.LittleEndian.AppendUint64(nil, 12345)
	raw := buildRecord(signature, 0,
		hedr(1.71, 1),
		sub("MAST", zstring("Skyrim.esm")),
		sub("CNAM", zstring("Author")),
		sub("DATA", sizeData),
	)

	header, err := Parse("mod.esp", bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, header.Masters, 1)
	// DATA separated from its MAST carries no master size.
	assert.Zero(t, header.Masters[0].Size)
}

func TestParse_UnknownSubrecordsSkipped(t *testing.T) {
	raw := buildRecord(signature, 0,
		sub("INTV", []byte{1, 0, 0, 0}),
		hedr(1.71, 7),
		sub("ONAM", []byte{0xAA, 0xBB}),
	)

	header, err := Parse("mod.esp", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), header.NumRecords)
}

func TestParse_TrailingBytesIgnored(t *testing.T) {
	raw := buildRecord(signature, 0, hedr(1.71, 3))
	raw = append(raw, []byte("GRUP and then megabytes of records")...)

	header, err := Parse("mod.esp", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), header.NumRecords)
}

func TestParseFile(t *testing.T) {
	raw := buildRecord(signature, flagMaster, hedr(1.71, 9), sub("CNAM", zstring("Author")))
	path := filepath.Join(t.TempDir(), "Skyrim.esm")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	header, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Skyrim.esm", header.Filename)
	assert.Equal(t, TypeESM, header.Type)
	assert.Equal(t, "Author", header.Author)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.esp"))
	assert.Error(t, err)
}
