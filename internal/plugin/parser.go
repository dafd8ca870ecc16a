package plugin

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// headerSize is the fixed TES4 record header: 4-byte signature,
// uint32 dataSize, uint32 flags, uint32 formID, uint32 timestamp,
// uint16 formVersion, uint16 unknown. Skyrim-era layout.
const headerSize = 24

const signature = "TES4"

// Parse reads the TES4 header from r. filename is used only to derive
// the plugin type for non-flagged plugins; bytes past the record body
// are never read.
func Parse(filename string, r io.Reader) (*Header, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s: reading record header: %w", filename, ErrTruncated)
		}
		return nil, fmt.Errorf("%s: reading record header: %w", filename, err)
	}

	sig := raw[:4]
	for _, b := range sig {
		if b < 0x20 || b > 0x7e {
			return nil, fmt.Errorf("%s: %w", filename, ErrNotPlugin)
		}
	}
	if string(sig) != signature {
		return nil, fmt.Errorf("%s: got %q: %w", filename, sig, ErrInvalidSignature)
	}

	dataSize := binary.LittleEndian.Uint32(raw[4:8])
	flags := binary.LittleEndian.Uint32(raw[8:12])

	header := &Header{
		Filename:    filename,
		FormID:      binary.LittleEndian.Uint32(raw[12:16]),
		Timestamp:   binary.LittleEndian.Uint32(raw[16:20]),
		FormVersion: binary.LittleEndian.Uint16(raw[20:22]),
		IsMaster:    flags&flagMaster != 0,
		IsLocalized: flags&flagLocalized != 0,
		IsLight:     flags&flagLight != 0,
	}

	body := make([]byte, dataSize)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s: reading record body: %w", filename, ErrTruncated)
		}
		return nil, fmt.Errorf("%s: reading record body: %w", filename, err)
	}
	parseSubrecords(header, body)

	header.Type = deriveType(header)
	return header, nil
}

// ParseFile parses the plugin at path.
func ParseFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin: %w", err)
	}
	defer f.Close()
	return Parse(filepath.Base(path), f)
}

// parseSubrecords walks the record body: 4-byte tag, uint16 length,
// data. Unknown tags are skipped; a length overrunning the body ends
// the walk.
func parseSubrecords(header *Header, body []byte) {
	afterMaster := false

	for off := 0; off+6 <= len(body); {
		tag := string(body[off : off+4])
		length := int(binary.LittleEndian.Uint16(body[off+4 : off+6]))
		off += 6
		if off+length > len(body) {
			return
		}
		data := body[off : off+length]
		off += length

		switch tag {
		case "HEDR":
			if len(data) >= 8 {
				header.Version = math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
				header.NumRecords = binary.LittleEndian.Uint32(data[4:8])
			}
		case "CNAM":
			header.Author = cstring(data)
		case "SNAM":
			header.Description = cstring(data)
		case "MAST":
			header.Masters = append(header.Masters, Master{Name: cstring(data)})
			afterMaster = true
			continue
		case "DATA":
			// Only meaningful directly after a MAST entry.
			if afterMaster && len(data) >= 8 {
				header.Masters[len(header.Masters)-1].Size = binary.LittleEndian.Uint64(data[0:8])
			}
		}
		afterMaster = false
	}
}

// deriveType prefers header flags over the filename extension: a light
// flag wins outright, then the master flag, then the extension.
func deriveType(header *Header) Type {
	if header.IsLight {
		return TypeESL
	}
	if header.IsMaster {
		return TypeESM
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".esm":
		return TypeESM
	case ".esl":
		return TypeESL
	default:
		return TypeESP
	}
}

func cstring(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}
