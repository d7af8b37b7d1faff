package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/annealgo/internal/hash"
	"github.com/hupe1980/annealgo/resource"
	"github.com/hupe1980/annealgo/sampleset"
	"github.com/hupe1980/annealgo/samplestore"
)

var (
	archiveMagic       = [4]byte{'A', 'G', 'A', '1'}
	archiveDirMagic    = [4]byte{'A', 'G', 'D', '1'}
	archiveFooterMagic = [4]byte{'A', 'G', 'F', '1'}
)

const formatVersion = uint16(1)

const (
	sectionManifest      = uint16(1)
	sectionEnergies      = uint16(2)
	sectionSpins         = uint16(3)
	sectionIntermediates = uint16(4)

	sectionCount = 4
)

const (
	headerSize    = 16
	dirHeaderSize = 12
	dirEntrySize  = 32
	footerSize    = 24
	manifestSize  = 24
)

var (
	// ErrInvalidMagic means the data is not an archive.
	ErrInvalidMagic = errors.New("invalid archive magic")
	// ErrInvalidVersion means the archive was written by an incompatible
	// release.
	ErrInvalidVersion = errors.New("unsupported archive version")
	// ErrUnknownCodec means the archive names a compression codec this
	// build cannot decode.
	ErrUnknownCodec = errors.New("unknown archive codec")
)

// ChecksumMismatchError reports a section whose stored bytes do not match
// the checksum recorded in the directory.
type ChecksumMismatchError struct {
	Section  string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s section checksum mismatch: expected 0x%08x, got 0x%08x", e.Section, e.Expected, e.Actual)
}

// Options control how archives are written. Reads take the codec from the
// archive header; only the resource controller applies to both directions.
type Options struct {
	// Codec is the block compression for section payloads.
	Codec Codec

	// BlockSize is the uncompressed block granularity within a section.
	BlockSize int

	// Controller, when set, budgets store reads and writes against the
	// shared IO limit.
	Controller *resource.Controller
}

// WithCodec sets the section compression codec.
func WithCodec(c Codec) func(o *Options) {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithBlockSize sets the uncompressed block size within sections.
func WithBlockSize(n int) func(o *Options) {
	return func(o *Options) {
		o.BlockSize = n
	}
}

// WithController budgets archive IO against a shared resource controller.
func WithController(rc *resource.Controller) func(o *Options) {
	return func(o *Options) {
		o.Controller = rc
	}
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Codec:     CodecZstd,
		BlockSize: defaultBlockSize,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

type sectionEntry struct {
	Type     uint16
	Offset   uint64
	Len      uint64
	Checksum uint32 // CRC32C of the encoded section bytes
}

// Write serializes set as an archive to w.
//
// Layout:
//  1. header (magic, version, codec name)
//  2. manifest section (set shape)
//  3. energies section (float64, little-endian)
//  4. spins section (one roaring bitmap per row)
//  5. intermediates section (one roaring bitmap per snapshot)
//  6. directory (type, offset, length, checksum per section)
//  7. footer (directory offset/length)
func Write(w io.Writer, set *sampleset.SampleSet, optFns ...func(o *Options)) error {
	if w == nil {
		return errors.New("archive writer is nil")
	}
	if set == nil {
		return errors.New("sample set is nil")
	}
	return write(w, set, applyOptions(optFns))
}

func write(w io.Writer, set *sampleset.SampleSet, opts Options) error {
	codecName := opts.Codec.String()
	if _, ok := codecByName(codecName); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCodec, codecName)
	}

	// Header (16 bytes + codec name)
	// [0:4]   magic
	// [4:6]   version
	// [6:8]   reserved
	// [8:10]  codec name len
	// [10:12] section count
	// [12:16] reserved
	var hdr [headerSize]byte
	copy(hdr[0:4], archiveMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], formatVersion)
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(len(codecName)))
	binary.LittleEndian.PutUint16(hdr[10:12], sectionCount)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, codecName); err != nil {
		return err
	}

	cw := &countingWriter{w: w, n: int64(headerSize + len(codecName))}

	entries := make([]sectionEntry, 0, sectionCount)
	writeSection := func(typ uint16, payload []byte) error {
		encoded, err := encodeSection(payload, opts.Codec, opts.BlockSize)
		if err != nil {
			return fmt.Errorf("encode %s section: %w", sectionName(typ), err)
		}
		off := uint64(cw.n)
		if _, err := cw.Write(encoded); err != nil {
			return err
		}
		entries = append(entries, sectionEntry{
			Type:     typ,
			Offset:   off,
			Len:      uint64(len(encoded)),
			Checksum: hash.CRC32C(encoded),
		})
		return nil
	}

	if err := writeSection(sectionManifest, manifestPayload(set)); err != nil {
		return err
	}
	if err := writeSection(sectionEnergies, energiesPayload(set)); err != nil {
		return err
	}

	spins, err := spinsPayload(set)
	if err != nil {
		return err
	}
	if err := writeSection(sectionSpins, spins); err != nil {
		return err
	}

	inter, err := intermediatesPayload(set)
	if err != nil {
		return err
	}
	if err := writeSection(sectionIntermediates, inter); err != nil {
		return err
	}

	dirOff := uint64(cw.n)
	if err := writeDirectory(cw, entries); err != nil {
		return err
	}
	dirLen := uint64(cw.n) - dirOff

	return writeFooter(cw, dirOff, dirLen)
}

// WriteTo writes set to store under key. The blob only becomes visible
// once the whole archive is written; a failed write is aborted and leaves
// whatever was stored under the key untouched.
func WriteTo(ctx context.Context, store samplestore.BlobStore, key string, set *sampleset.SampleSet, optFns ...func(o *Options)) error {
	if store == nil {
		return errors.New("store is nil")
	}
	if set == nil {
		return errors.New("sample set is nil")
	}
	opts := applyOptions(optFns)

	wb, err := store.Create(ctx, key)
	if err != nil {
		return err
	}

	var w io.Writer = wb
	if opts.Controller != nil {
		w = resource.NewRateLimitedWriter(ctx, w, opts.Controller)
	}

	if err := write(w, set, opts); err != nil {
		_ = wb.Abort()
		return err
	}
	return wb.Close()
}

// Read parses an archive from r. The archive must start at stream offset
// zero; Read seeks to locate the footer, directory and sections.
func Read(r io.ReadSeeker) (*sampleset.SampleSet, error) {
	if r == nil {
		return nil, errors.New("archive reader is nil")
	}

	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	sections, err := readDirectory(r, hdr)
	if err != nil {
		return nil, err
	}

	manifest, err := readSection(r, sections, sectionManifest, hdr.codec)
	if err != nil {
		return nil, err
	}
	numSamples, numVars, numCheckpoints, err := parseManifest(manifest)
	if err != nil {
		return nil, err
	}

	energies, err := readSection(r, sections, sectionEnergies, hdr.codec)
	if err != nil {
		return nil, err
	}
	if len(energies) != 8*numSamples {
		return nil, fmt.Errorf("energies section has %d bytes, want %d", len(energies), 8*numSamples)
	}

	set := sampleset.New(numSamples, numVars, numCheckpoints)
	for i := 0; i < numSamples; i++ {
		set.SetEnergy(i, math.Float64frombits(binary.LittleEndian.Uint64(energies[8*i:])))
	}

	spins, err := readSection(r, sections, sectionSpins, hdr.codec)
	if err != nil {
		return nil, err
	}
	sr := bytes.NewReader(spins)
	for i := 0; i < numSamples; i++ {
		bm := roaring.New()
		if _, err := bm.ReadFrom(sr); err != nil {
			return nil, fmt.Errorf("decode spins row %d: %w", i, err)
		}
		if err := fillRow(set.Row(i), bm); err != nil {
			return nil, fmt.Errorf("spins row %d: %w", i, err)
		}
	}
	if sr.Len() != 0 {
		return nil, fmt.Errorf("spins section has %d trailing bytes", sr.Len())
	}

	inter, err := readSection(r, sections, sectionIntermediates, hdr.codec)
	if err != nil {
		return nil, err
	}
	ir := bytes.NewReader(inter)
	for i := 0; i < numSamples; i++ {
		for c := 0; c < numCheckpoints; c++ {
			bm := roaring.New()
			if _, err := bm.ReadFrom(ir); err != nil {
				return nil, fmt.Errorf("decode snapshot %d/%d: %w", i, c, err)
			}
			if err := fillRow(set.Intermediate(i, c), bm); err != nil {
				return nil, fmt.Errorf("snapshot %d/%d: %w", i, c, err)
			}
		}
	}
	if ir.Len() != 0 {
		return nil, fmt.Errorf("intermediates section has %d trailing bytes", ir.Len())
	}

	return set, nil
}

// ReadFrom reads the archive stored under key. Memory-mapped blobs are
// decoded in place; remote blobs are fetched in one sequential read.
func ReadFrom(ctx context.Context, store samplestore.BlobStore, key string, optFns ...func(o *Options)) (*sampleset.SampleSet, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	opts := applyOptions(optFns)

	blob, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	// Mapped blobs have no stream to budget: reads are page faults.
	if m, ok := blob.(samplestore.Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		return Read(bytes.NewReader(data))
	}

	var data []byte
	if size := blob.Size(); size > 0 {
		rc, err := blob.ReadRange(ctx, 0, size)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		var r io.Reader = rc
		if opts.Controller != nil {
			r = resource.NewRateLimitedReader(ctx, r, opts.Controller)
		}
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, err
		}
	}
	return Read(bytes.NewReader(data))
}

// manifestPayload encodes the set shape as three little-endian uint64s.
func manifestPayload(set *sampleset.SampleSet) []byte {
	buf := make([]byte, manifestSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(set.NumSamples()))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(set.NumVars()))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(set.NumCheckpoints()))
	return buf
}

func parseManifest(data []byte) (numSamples, numVars, numCheckpoints int, err error) {
	if len(data) != manifestSize {
		return 0, 0, 0, fmt.Errorf("manifest section has %d bytes, want %d", len(data), manifestSize)
	}
	s := binary.LittleEndian.Uint64(data[0:8])
	v := binary.LittleEndian.Uint64(data[8:16])
	c := binary.LittleEndian.Uint64(data[16:24])

	const maxIntU = uint64(^uint(0) >> 1)
	overflow := s > maxIntU || v > maxIntU || c > maxIntU ||
		(s > 0 && v > maxIntU/s) ||
		(s > 0 && c > 0 && v > maxIntU/s/c)
	if overflow {
		return 0, 0, 0, errors.New("archive shape overflows int")
	}
	return int(s), int(v), int(c), nil
}

func energiesPayload(set *sampleset.SampleSet) []byte {
	energies := set.Energies()
	buf := make([]byte, 8*len(energies))
	for i, e := range energies {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(e))
	}
	return buf
}

// spinsPayload writes one bitmap of up spins per row, back to back. The
// roaring serialization is self-delimiting, so rows need no extra framing.
func spinsPayload(set *sampleset.SampleSet) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < set.NumSamples(); i++ {
		if _, err := set.UpSpins(i).WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("encode spins row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func intermediatesPayload(set *sampleset.SampleSet) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < set.NumSamples(); i++ {
		for c := 0; c < set.NumCheckpoints(); c++ {
			if _, err := upBitmap(set.Intermediate(i, c)).WriteTo(&buf); err != nil {
				return nil, fmt.Errorf("encode snapshot %d/%d: %w", i, c, err)
			}
		}
	}
	return buf.Bytes(), nil
}

// upBitmap collects the indexes holding spin +1.
func upBitmap(row []int8) *roaring.Bitmap {
	bm := roaring.New()
	for v, spin := range row {
		if spin > 0 {
			bm.Add(uint32(v))
		}
	}
	return bm
}

// fillRow expands a bitmap of up spins into a ±1 row.
func fillRow(row []int8, up *roaring.Bitmap) error {
	for i := range row {
		row[i] = -1
	}
	it := up.Iterator()
	for it.HasNext() {
		v := it.Next()
		if int(v) >= len(row) {
			return fmt.Errorf("spin index %d out of range for %d variables", v, len(row))
		}
		row[v] = 1
	}
	return nil
}

func sectionName(typ uint16) string {
	switch typ {
	case sectionManifest:
		return "manifest"
	case sectionEnergies:
		return "energies"
	case sectionSpins:
		return "spins"
	case sectionIntermediates:
		return "intermediates"
	default:
		return fmt.Sprintf("type-%d", typ)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func writeDirectory(w io.Writer, entries []sectionEntry) error {
	// Directory header (12 bytes)
	// [0:4]  magic
	// [4:6]  version
	// [6:8]  reserved
	// [8:12] entry count
	var hdr [dirHeaderSize]byte
	copy(hdr[0:4], archiveDirMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], formatVersion)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(entries)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	// Each entry is 32 bytes.
	// [0:2]   type
	// [2:4]   reserved
	// [4:8]   checksum (CRC32C of the encoded section)
	// [8:16]  offset
	// [16:24] length
	// [24:32] reserved
	for _, e := range entries {
		var b [dirEntrySize]byte
		binary.LittleEndian.PutUint16(b[0:2], e.Type)
		binary.LittleEndian.PutUint32(b[4:8], e.Checksum)
		binary.LittleEndian.PutUint64(b[8:16], e.Offset)
		binary.LittleEndian.PutUint64(b[16:24], e.Len)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func writeFooter(w io.Writer, dirOff, dirLen uint64) error {
	// Footer (24 bytes)
	// [0:4]   magic
	// [4:6]   version
	// [6:8]   reserved
	// [8:16]  directory offset
	// [16:24] directory length
	var b [footerSize]byte
	copy(b[0:4], archiveFooterMagic[:])
	binary.LittleEndian.PutUint16(b[4:6], formatVersion)
	binary.LittleEndian.PutUint64(b[8:16], dirOff)
	binary.LittleEndian.PutUint64(b[16:24], dirLen)
	_, err := w.Write(b[:])
	return err
}

type header struct {
	codec        Codec
	sectionCount int
	end          int64 // offset of the first section
}

func readHeader(r io.ReadSeeker) (header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return header{}, err
	}
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return header{}, fmt.Errorf("truncated archive: %w", err)
	}
	if [4]byte(hdr[0:4]) != archiveMagic {
		return header{}, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(hdr[4:6]); ver != formatVersion {
		return header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, ver)
	}
	nameLen := int(binary.LittleEndian.Uint16(hdr[8:10]))
	count := int(binary.LittleEndian.Uint16(hdr[10:12]))
	if count <= 0 {
		return header{}, errors.New("invalid archive section count")
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return header{}, fmt.Errorf("truncated archive: %w", err)
	}
	codec, ok := codecByName(string(name))
	if !ok {
		return header{}, fmt.Errorf("%w: %q", ErrUnknownCodec, string(name))
	}

	return header{
		codec:        codec,
		sectionCount: count,
		end:          int64(headerSize + nameLen),
	}, nil
}

func readDirectory(r io.ReadSeeker, hdr header) (map[uint16]sectionEntry, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if end < hdr.end+footerSize {
		return nil, errors.New("truncated archive")
	}

	if _, err := r.Seek(end-footerSize, io.SeekStart); err != nil {
		return nil, err
	}
	var foot [footerSize]byte
	if _, err := io.ReadFull(r, foot[:]); err != nil {
		return nil, err
	}
	if [4]byte(foot[0:4]) != archiveFooterMagic {
		return nil, errors.New("missing archive footer")
	}
	if ver := binary.LittleEndian.Uint16(foot[4:6]); ver != formatVersion {
		return nil, fmt.Errorf("%w: footer version %d", ErrInvalidVersion, ver)
	}

	dirOff := binary.LittleEndian.Uint64(foot[8:16])
	dirLen := binary.LittleEndian.Uint64(foot[16:24])
	dataEnd := uint64(end - footerSize)
	if dirLen < dirHeaderSize || dirOff > dataEnd || dirLen > dataEnd-dirOff {
		return nil, errors.New("invalid archive directory range")
	}

	if _, err := r.Seek(int64(dirOff), io.SeekStart); err != nil {
		return nil, err
	}
	var dh [dirHeaderSize]byte
	if _, err := io.ReadFull(r, dh[:]); err != nil {
		return nil, err
	}
	if [4]byte(dh[0:4]) != archiveDirMagic {
		return nil, errors.New("invalid archive directory magic")
	}
	if ver := binary.LittleEndian.Uint16(dh[4:6]); ver != formatVersion {
		return nil, fmt.Errorf("%w: directory version %d", ErrInvalidVersion, ver)
	}
	count := int(binary.LittleEndian.Uint32(dh[8:12]))
	if count != hdr.sectionCount {
		return nil, fmt.Errorf("directory holds %d sections, header says %d", count, hdr.sectionCount)
	}
	if dirLen != uint64(dirHeaderSize+count*dirEntrySize) {
		return nil, errors.New("invalid archive directory size")
	}

	sections := make(map[uint16]sectionEntry, count)
	for i := 0; i < count; i++ {
		var eb [dirEntrySize]byte
		if _, err := io.ReadFull(r, eb[:]); err != nil {
			return nil, err
		}
		typ := binary.LittleEndian.Uint16(eb[0:2])
		e := sectionEntry{
			Type:     typ,
			Checksum: binary.LittleEndian.Uint32(eb[4:8]),
			Offset:   binary.LittleEndian.Uint64(eb[8:16]),
			Len:      binary.LittleEndian.Uint64(eb[16:24]),
		}
		if _, dup := sections[typ]; dup {
			return nil, fmt.Errorf("duplicate %s section", sectionName(typ))
		}
		// Sections live strictly between the header and the directory.
		if e.Offset < uint64(hdr.end) || e.Offset > dirOff || e.Len > dirOff-e.Offset {
			return nil, fmt.Errorf("%s section out of bounds", sectionName(typ))
		}
		sections[typ] = e
	}
	return sections, nil
}

// readSection reads, verifies and decompresses a single section.
func readSection(r io.ReadSeeker, sections map[uint16]sectionEntry, typ uint16, codec Codec) ([]byte, error) {
	e, ok := sections[typ]
	if !ok {
		return nil, fmt.Errorf("missing %s section", sectionName(typ))
	}

	if _, err := r.Seek(int64(e.Offset), io.SeekStart); err != nil {
		return nil, err
	}
	encoded := make([]byte, e.Len)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return nil, fmt.Errorf("read %s section: %w", sectionName(typ), err)
	}

	if actual := hash.CRC32C(encoded); actual != e.Checksum {
		return nil, &ChecksumMismatchError{
			Section:  sectionName(typ),
			Expected: e.Checksum,
			Actual:   actual,
		}
	}

	payload, err := decodeSection(encoded, codec)
	if err != nil {
		return nil, fmt.Errorf("decode %s section: %w", sectionName(typ), err)
	}
	return payload, nil
}
