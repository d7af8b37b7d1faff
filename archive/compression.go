package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the block compression applied to section payloads.
type Codec uint8

const (
	// CodecNone stores sections uncompressed.
	CodecNone Codec = 0
	// CodecLZ4 favors decode speed over ratio.
	CodecLZ4 Codec = 1
	// CodecZstd favors ratio and is the default.
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

func codecByName(name string) (Codec, bool) {
	switch name {
	case "none":
		return CodecNone, true
	case "lz4":
		return CodecLZ4, true
	case "zstd":
		return CodecZstd, true
	default:
		return 0, false
	}
}

// zstd encoder/decoder pools, shared across archives.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Every block is framed as [uncompressed uint32][compressed uint32][data].
// A compressed size of zero means the block is stored as-is, which also
// covers CodecNone.
const blockFrameSize = 8

// defaultBlockSize is the uncompressed block granularity within a section.
const defaultBlockSize = 256 * 1024

// encodeSection splits payload into blocks of at most blockSize bytes and
// frames each one. An empty payload encodes to zero blocks.
func encodeSection(payload []byte, codec Codec, blockSize int) ([]byte, error) {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}

	out := make([]byte, 0, len(payload)+blockFrameSize)
	for len(payload) > 0 {
		n := min(len(payload), blockSize)
		block, err := encodeBlock(payload[:n], codec)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		payload = payload[n:]
	}
	return out, nil
}

func encodeBlock(data []byte, codec Codec) ([]byte, error) {
	var compressed []byte
	var err error

	switch codec {
	case CodecNone:
	case CodecLZ4:
		compressed, err = compressLZ4(data)
	case CodecZstd:
		compressed = compressZstd(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, codec)
	}
	if err != nil {
		return nil, err
	}

	// Store the block raw when compression does not pay for itself.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockFrameSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[blockFrameSize:], data)
		return out, nil
	}

	out := make([]byte, blockFrameSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockFrameSize:], compressed)
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZstd(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}

// decodeSection reverses encodeSection, concatenating the decoded blocks.
func decodeSection(data []byte, codec Codec) ([]byte, error) {
	var out []byte
	for len(data) > 0 {
		if len(data) < blockFrameSize {
			return nil, errors.New("truncated block frame")
		}
		uncompressedSize := binary.LittleEndian.Uint32(data[0:])
		compressedSize := binary.LittleEndian.Uint32(data[4:])

		if compressedSize == 0 {
			end := blockFrameSize + int(uncompressedSize)
			if len(data) < end {
				return nil, errors.New("stored block extends past section end")
			}
			out = append(out, data[blockFrameSize:end]...)
			data = data[end:]
			continue
		}

		end := blockFrameSize + int(compressedSize)
		if len(data) < end {
			return nil, errors.New("compressed block extends past section end")
		}
		block, err := decodeBlock(data[blockFrameSize:end], uncompressedSize, codec)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		data = data[end:]
	}
	return out, nil
}

func decodeBlock(compressed []byte, uncompressedSize uint32, codec Codec) ([]byte, error) {
	switch codec {
	case CodecLZ4:
		dst := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(compressed, dst)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return dst, nil

	case CodecZstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		dst, err := dec.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, err
		}
		if uint32(len(dst)) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return dst, nil

	default:
		return nil, errors.New("compressed block in an uncompressed archive")
	}
}
