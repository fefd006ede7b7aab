package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// File layout: the magic header, then one block per record. A block is a
// flag byte, the raw and stored payload lengths (big-endian uint32) and the
// stored payload, which is the msgpack encoding of the record, lz4-compressed
// when that makes it smaller.
var fileMagic = []byte("IDXA\x01")

const (
	blockRaw byte = 0
	blockLZ4 byte = 1

	blockHeaderLen = 9
	maxBlockLen    = 16 << 20
)

// ErrBadAuditFile is returned for files without the audit header.
var ErrBadAuditFile = errors.New("not an audit file")

// FileSink appends records to a local file.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
	hash [1 << 16]int
}

// OpenFileSink opens path for appending, writing the header to a new file
// and verifying it on an existing one.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat audit file: %w", err)
	}
	if info.Size() == 0 {
		if _, err := f.Write(fileMagic); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing audit header: %w", err)
		}
	} else {
		head := make([]byte, len(fileMagic))
		if _, err := f.ReadAt(head, 0); err != nil || !bytes.Equal(head, fileMagic) {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, ErrBadAuditFile)
		}
	}
	return &FileSink{f: f, path: path}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Accept(_ context.Context, rec CallRecord) error {
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding call record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return os.ErrClosed
	}
	block := encodeBlock(raw, s.hash[:])
	if _, err := s.f.Write(block); err != nil {
		return fmt.Errorf("appending audit record: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func encodeBlock(raw []byte, hashTable []int) []byte {
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, hashTable)
	flag, payload := blockLZ4, compressed[:n]
	if err != nil || n == 0 || n >= len(raw) {
		flag, payload = blockRaw, raw
	}
	block := make([]byte, blockHeaderLen+len(payload))
	block[0] = flag
	binary.BigEndian.PutUint32(block[1:5], uint32(len(raw)))
	binary.BigEndian.PutUint32(block[5:9], uint32(len(payload)))
	copy(block[blockHeaderLen:], payload)
	return block
}

// ReadFile decodes every record in the audit file at path.
func ReadFile(path string) ([]CallRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadRecords decodes an audit stream. A truncated final block yields the
// records before it and an error wrapping io.ErrUnexpectedEOF.
func ReadRecords(r io.Reader) ([]CallRecord, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(br, head); err != nil || !bytes.Equal(head, fileMagic) {
		return nil, ErrBadAuditFile
	}

	var out []CallRecord
	header := make([]byte, blockHeaderLen)
	for {
		if _, err := io.ReadFull(br, header); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("reading block header: %w", io.ErrUnexpectedEOF)
		}
		rawLen := binary.BigEndian.Uint32(header[1:5])
		storedLen := binary.BigEndian.Uint32(header[5:9])
		if rawLen > maxBlockLen || storedLen > maxBlockLen {
			return out, fmt.Errorf("block of %d bytes exceeds limit", max(rawLen, storedLen))
		}
		stored := make([]byte, storedLen)
		if _, err := io.ReadFull(br, stored); err != nil {
			return out, fmt.Errorf("reading block: %w", io.ErrUnexpectedEOF)
		}

		raw := stored
		switch header[0] {
		case blockRaw:
		case blockLZ4:
			raw = make([]byte, rawLen)
			n, err := lz4.UncompressBlock(stored, raw)
			if err != nil {
				return out, fmt.Errorf("decompressing block: %w", err)
			}
			raw = raw[:n]
		default:
			return out, fmt.Errorf("unknown block flag %d", header[0])
		}

		var rec CallRecord
		if err := msgpack.Unmarshal(raw, &rec); err != nil {
			return out, fmt.Errorf("decoding call record: %w", err)
		}
		out = append(out, rec)
	}
}
