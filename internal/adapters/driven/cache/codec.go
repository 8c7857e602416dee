package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses cache payloads on disk.
type Codec interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// Codec names.
const (
	CodecZstd = "zstd"
	CodecLZ4  = "lz4"
	CodecNone = "none"
)

// CodecByName returns the codec registered under name. Empty selects zstd.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecZstd:
		return zstdCodec{}, nil
	case CodecLZ4:
		return lz4Codec{}, nil
	case CodecNone:
		return noneCodec{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown codec %q", name)
	}
}

type noneCodec struct{}

func (noneCodec) Name() string                       { return CodecNone }
func (noneCodec) Encode(data []byte) ([]byte, error) { return data, nil }
func (noneCodec) Decode(data []byte) ([]byte, error) { return data, nil }

var (
	zstdEncoders sync.Pool
	zstdDecoders sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoders.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoders.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

type zstdCodec struct{}

func (zstdCodec) Name() string { return CodecZstd }

func (zstdCodec) Encode(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoders.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (zstdCodec) Decode(data []byte) ([]byte, error) {
	dec, err := getZstdDecoder()
	if err != nil {
		return nil, err
	}
	defer zstdDecoders.Put(dec)
	return dec.DecodeAll(data, nil)
}

// lz4 blocks are framed as [uncompressed size uint32][compressed size uint32][data].
// A compressed size of zero marks an incompressible block stored raw.
const lz4HeaderSize = 8

type lz4Codec struct{}

func (lz4Codec) Name() string { return CodecLZ4 }

func (lz4Codec) Encode(data []byte) ([]byte, error) {
	buf := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf[lz4HeaderSize:], nil)
	if err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(data)))
	if n == 0 || n >= len(data) {
		binary.LittleEndian.PutUint32(buf[4:], 0)
		return append(buf[:lz4HeaderSize], data...), nil
	}
	binary.LittleEndian.PutUint32(buf[4:], uint32(n))
	return buf[:lz4HeaderSize+n], nil
}

func (lz4Codec) Decode(data []byte) ([]byte, error) {
	if len(data) < lz4HeaderSize {
		return nil, errors.New("cache: lz4 block too small")
	}
	size := binary.LittleEndian.Uint32(data[0:])
	compressed := binary.LittleEndian.Uint32(data[4:])
	body := data[lz4HeaderSize:]
	if compressed == 0 {
		if uint32(len(body)) < size {
			return nil, errors.New("cache: lz4 block truncated")
		}
		return body[:size], nil
	}
	if uint32(len(body)) < compressed {
		return nil, errors.New("cache: lz4 block truncated")
	}
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(body[:compressed], out)
	if err != nil {
		return nil, err
	}
	if uint32(n) != size {
		return nil, errors.New("cache: lz4 size mismatch")
	}
	return out, nil
}
