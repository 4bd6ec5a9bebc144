// Package envstore implements the typed view over the persisted key/value
// environment used by the /env/* endpoints: an in-memory map backed by a
// fixed-size, CRC32-framed record persisted through a caller-supplied save
// function (the storage facade, in production; an in-memory stub in tests).
package envstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sort"
)

// MaxNameLen bounds a key's length, mirroring ENV_NAME_MAX_LEN.
const MaxNameLen = 128

// ErrBadName is returned for empty or oversized keys.
var ErrBadName = errors.New("envstore: invalid name")

// ErrRecordTooSmall is returned by Import when the supplied blob is smaller
// than the native record size.
var ErrRecordTooSmall = errors.New("envstore: blob smaller than env record")

// ErrBadCRC is returned by Import when the record's checksum does not match
// its payload.
var ErrBadCRC = errors.New("envstore: CRC mismatch")

// record is the on-flash wire format: a big-endian CRC32 of data, a
// big-endian uint32 length of data, then the fixed-size NUL-packed
// key=value text. Encoding is hand-rolled in an explicit, bounds-checked
// style: the length field is never trusted past a sane maximum before the
// backing buffer is allocated.
type record struct {
	crc  uint32
	data []byte
}

// maxRecordDataLen caps how large a single env record's data section may
// claim to be, guarding decodeRecord against a corrupt or hostile blob.
const maxRecordDataLen = 1 << 20

func encodeRecord(rec record) []byte {
	out := make([]byte, 4+4+len(rec.data))
	binary.BigEndian.PutUint32(out[0:4], rec.crc)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(rec.data)))
	copy(out[8:], rec.data)
	return out
}

func decodeRecord(r io.Reader) (record, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return record{}, fmt.Errorf("envstore: read record header: %w", err)
	}
	crc := binary.BigEndian.Uint32(header[0:4])
	length := binary.BigEndian.Uint32(header[4:8])
	if length > maxRecordDataLen {
		return record{}, fmt.Errorf("envstore: record data length %d exceeds maximum", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return record{}, fmt.Errorf("envstore: read record data: %w", err)
	}
	return record{crc: crc, data: data}, nil
}

// Saver persists an encoded env blob; in production this writes through the
// storage facade, at a partition reserved for the environment.
type Saver func(blob []byte) error

// Store is the in-memory key/value environment plus its persistence hook.
type Store struct {
	values   map[string]string
	defaults map[string]string
	save     Saver
	dataLen  int
}

// New creates a Store with the given default values and a fixed on-flash
// data-section length (ENV_SIZE - 4 in the original's framing).
func New(defaults map[string]string, dataLen int, save Saver) *Store {
	s := &Store{values: map[string]string{}, defaults: defaults, save: save, dataLen: dataLen}
	for k, v := range defaults {
		s.values[k] = v
	}
	return s
}

// Get returns the value for name and whether it is set.
func (s *Store) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set assigns value to name and persists the new environment.
func (s *Store) Set(name, value string) error {
	if name == "" || len(name) > MaxNameLen {
		return ErrBadName
	}
	s.values[name] = value
	return s.persist()
}

// Unset removes name (a no-op if absent) and persists the new environment.
func (s *Store) Unset(name string) error {
	if name == "" || len(name) > MaxNameLen {
		return ErrBadName
	}
	delete(s.values, name)
	return s.persist()
}

// Reset restores the default environment and persists it.
func (s *Store) Reset() error {
	s.values = map[string]string{}
	for k, v := range s.defaults {
		s.values[k] = v
	}
	return s.persist()
}

// List renders the environment as sorted "KEY=VALUE\n" lines, matching the
// /env/list endpoint's text/plain body.
func (s *Store) List() string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)

	var b bytes.Buffer
	for _, k := range names {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.values[k])
		b.WriteByte('\n')
	}
	return b.String()
}

// persist packs the current environment into the NUL-separated record
// format, frames it with a CRC32, and invokes Saver.
func (s *Store) persist() error {
	if s.save == nil {
		return nil
	}
	blob, err := s.Export()
	if err != nil {
		return err
	}
	return s.save(blob)
}

// Export encodes the environment into its on-flash CRC-framed record.
func (s *Store) Export() ([]byte, error) {
	data := make([]byte, 0, s.dataLen)
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		entry := k + "=" + s.values[k]
		if len(data)+len(entry)+1 > s.dataLen {
			break // record full; remaining entries are silently dropped
		}
		data = append(data, entry...)
		data = append(data, 0)
	}
	for len(data) < s.dataLen {
		data = append(data, 0)
	}

	rec := record{crc: crc32.ChecksumIEEE(data), data: data}
	return encodeRecord(rec), nil
}

// ExportText renders the currently-saved environment as newline-separated
// "KEY=VALUE" text, matching the original's env_export text conversion:
// NUL separators become newlines and the text stops at the first run of
// two consecutive NULs.
func ExportText(blob []byte, dataLen int) (string, error) {
	rec, err := decodeRecord(bytes.NewReader(blob))
	if err != nil {
		return "", err
	}
	if crc32.ChecksumIEEE(rec.data) != rec.crc {
		return "", ErrBadCRC
	}

	var out bytes.Buffer
	for i := 0; i < len(rec.data)-1 && i < dataLen-1; i++ {
		if rec.data[i] == 0 && rec.data[i+1] == 0 {
			break
		}
		if rec.data[i] == 0 {
			out.WriteByte('\n')
		} else {
			out.WriteByte(rec.data[i])
		}
	}
	text := out.String()
	if text != "" && text[len(text)-1] != '\n' {
		text += "\n"
	}
	return text, nil
}

// Import decodes a CRC-framed env blob and replaces the in-memory
// environment with its contents, then persists it. blob must be at least
// as large as one native record (dataLen bytes of data plus the 8-byte
// CRC and length header).
func (s *Store) Import(blob []byte) error {
	if len(blob) < s.dataLen+8 {
		return ErrRecordTooSmall
	}

	rec, err := decodeRecord(bytes.NewReader(blob))
	if err != nil {
		return err
	}
	if crc32.ChecksumIEEE(rec.data) != rec.crc {
		return ErrBadCRC
	}

	values := map[string]string{}
	entry := make([]byte, 0, 64)
	flush := func() {
		if len(entry) == 0 {
			return
		}
		if k, v, ok := bytes.Cut(entry, []byte("=")); ok {
			values[string(k)] = string(v)
		}
		entry = entry[:0]
	}
	for i := 0; i < len(rec.data); i++ {
		if rec.data[i] == 0 {
			if len(entry) == 0 {
				break // double-NUL: end of packed data
			}
			flush()
			continue
		}
		entry = append(entry, rec.data[i])
	}
	flush()

	s.values = values
	return s.persist()
}
