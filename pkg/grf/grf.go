// Package grf reads files from Ragnarok Online GRF archives (version 0x200).
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Faultbox/midgard-colliders/pkg/encoding"
)

// GRF archive errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrCorruptData        = errors.New("corrupt GRF data")
	ErrNotFound           = errors.New("file not found in archive")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200

	// Fixed part of a file table entry after its name.
	entrySize = 17

	flagFile      = 0x01
	flagEncrypted = 0x02 | 0x04
)

type header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry describes one stored file.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened GRF archive. Reads may run concurrently.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	entries map[string]*Entry
}

// Open opens a GRF archive on disk.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	a, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewReader reads the file table of an archive held by r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, entries: make(map[string]*Entry)}

	var h header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if string(h.Magic[:]) != grfMagic {
		return nil, ErrInvalidMagic
	}
	if h.Version != version200 {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, h.Version)
	}

	if err := a.readFileTable(h); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

func (a *Archive) readFileTable(h header) error {
	tableOffset := int64(h.TableOffset) + headerSize

	var sizes [2]uint32 // compressed, uncompressed
	if err := binary.Read(io.NewSectionReader(a.r, tableOffset, 8), binary.LittleEndian, &sizes); err != nil {
		return err
	}

	table, err := inflate(io.NewSectionReader(a.r, tableOffset+8, int64(sizes[0])), sizes[1])
	if err != nil {
		return err
	}

	if h.FileCount < h.Seed+7 {
		return fmt.Errorf("%w: file count %d below seed", ErrCorruptData, h.FileCount)
	}
	count := h.FileCount - h.Seed - 7

	for i := uint32(0); i < count; i++ {
		nameEnd := bytes.IndexByte(table, 0)
		if nameEnd < 0 || nameEnd+1+entrySize > len(table) {
			return fmt.Errorf("%w: entry %d truncated", ErrCorruptData, i)
		}
		name := encoding.EUCKRToUTF8(table[:nameEnd])
		fields := table[nameEnd+1:]

		entry := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(fields[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(fields[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(fields[8:]),
			Flags:            fields[12],
			Offset:           binary.LittleEndian.Uint32(fields[13:]),
		}
		table = fields[entrySize:]

		// Directory entries carry no data
		if entry.Flags&flagFile != 0 {
			a.entries[entry.Name] = entry
		}
	}
	return nil
}

// Close closes the underlying file, if the archive was opened from disk.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// List returns the sorted paths of all files whose extension matches one of
// exts (case-insensitive, with the dot). No exts lists every file.
func (a *Archive) List(exts ...string) []string {
	result := make([]string, 0, len(a.entries))
	for name := range a.entries {
		if len(exts) > 0 && !hasExt(name, exts) {
			continue
		}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func hasExt(name string, exts []string) bool {
	ext := path.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Contains checks if a file exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[normalizePath(name)]
	return ok
}

// Read returns the contents of a stored file.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, ok := a.entries[normalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if entry.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, name)
	}

	data := io.NewSectionReader(a.r, int64(entry.Offset)+headerSize, int64(entry.CompressedSize))
	if entry.CompressedSize == entry.UncompressedSize {
		buf := make([]byte, entry.UncompressedSize)
		if _, err := io.ReadFull(data, buf); err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return buf, nil
	}

	buf, err := inflate(data, entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return buf, nil
}

// inflate decompresses a zlib stream expected to hold exactly size bytes.
func inflate(r io.Reader, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	buf := make([]byte, size)
	if _, err := io.ReadFull(zr, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return buf, nil
}

// normalizePath makes stored paths comparable: forward slashes, lower case.
func normalizePath(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
}
