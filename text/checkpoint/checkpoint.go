// Package checkpoint writes and restores point-in-time, erasure-coded
// snapshots of a text.Document's materialised content.
//
// The in-memory rope (text.Document) exists specifically to hold files
// much larger than RAM, so losing a single corrupted save write can lose a
// lot. checkpoint.Writer stripes a snapshot across N shards with
// klauspost/reedsolomon so a restore tolerates up to ParityShards of them
// being missing (absent, or with frames that fail to parse). A shard whose
// frames parse but whose bytes were altered is not singled out; the restore
// then fails its digest check.
package checkpoint

import (
	"bytes"
	"io"

	"github.com/klauspost/reedsolomon"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/cmn/cos"
	"github.com/sloked-project/sloked/text"
)

// Config sizes the erasure code: DataShards pieces carry the content,
// ParityShards extra pieces let Reader reconstruct up to that many missing
// or unreadable shards.
type Config struct {
	DataShards   int
	ParityShards int
}

func (c Config) total() int { return c.DataShards + c.ParityShards }

// Writer stripes a text.Document snapshot across Config.total() shards.
type Writer struct {
	cfg Config
	enc reedsolomon.Encoder
}

func NewWriter(cfg Config) (*Writer, error) {
	enc, err := reedsolomon.New(cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, cmn.Wrap(err, "checkpoint: new encoder")
	}
	return &Writer{cfg: cfg, enc: enc}, nil
}

// Write materialises doc and writes one framed (header, shard) pair to
// each of shards, which must have length Config.total(). Each entry is
// expected to be an independent storage location (separate file, disk, or
// remote blob) -- that independence is what makes the erasure code useful;
// striping across shards that share a failure domain buys nothing.
func (w *Writer) Write(doc *text.Document, shards []io.Writer) error {
	if len(shards) != w.cfg.total() {
		return cmn.Wrap(cmn.ErrInvalidArgument, "checkpoint: wrong shard count")
	}
	content := []byte(doc.Materialize())
	digest := doc.Digest()

	split, err := w.enc.Split(content)
	if err != nil {
		return cmn.Wrap(err, "checkpoint: split content")
	}
	if err := w.enc.Encode(split); err != nil {
		return cmn.Wrap(err, "checkpoint: encode parity")
	}

	for i, shard := range split {
		header := shardHeader{
			Digest:       uint64(digest),
			TotalSize:    uint64(len(content)),
			ShardIndex:   i,
			DataShards:   w.cfg.DataShards,
			ParityShards: w.cfg.ParityShards,
		}
		encoded, err := header.MarshalMsg(nil)
		if err != nil {
			return cmn.Wrap(err, "checkpoint: marshal shard header")
		}
		if err := writeFramed(shards[i], encoded); err != nil {
			return err
		}
		if err := writeFramed(shards[i], shard); err != nil {
			return err
		}
	}
	return nil
}

// Reader restores a snapshot written by a Writer with the same Config.
type Reader struct {
	cfg Config
	enc reedsolomon.Encoder
}

func NewReader(cfg Config) (*Reader, error) {
	enc, err := reedsolomon.New(cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, cmn.Wrap(err, "checkpoint: new decoder")
	}
	return &Reader{cfg: cfg, enc: enc}, nil
}

// Read restores the original content from shards. A nil entry, or one
// whose frames fail to read, is treated as missing and reconstructed from
// the others; Read fails only if more than ParityShards are missing or the
// restored content's digest doesn't match what Write recorded.
func (r *Reader) Read(shards []io.Reader) (string, error) {
	if len(shards) != r.cfg.total() {
		return "", cmn.Wrap(cmn.ErrInvalidArgument, "checkpoint: wrong shard count")
	}

	data := make([][]byte, r.cfg.total())
	var digest uint64
	var totalSize uint64
	haveHeader := false

	for i, src := range shards {
		if src == nil {
			continue
		}
		headerBytes, err := readFramed(src)
		if err != nil {
			continue
		}
		var header shardHeader
		if _, err := header.UnmarshalMsg(headerBytes); err != nil {
			continue
		}
		payload, err := readFramed(src)
		if err != nil {
			continue
		}
		data[i] = payload
		if !haveHeader {
			digest = header.Digest
			totalSize = header.TotalSize
			haveHeader = true
		}
	}
	if !haveHeader {
		return "", cmn.Wrap(cmn.ErrIO, "checkpoint: no readable shard")
	}

	if err := r.enc.Reconstruct(data); err != nil {
		return "", cmn.Wrap(err, "checkpoint: reconstruct shards")
	}

	var buf bytes.Buffer
	if err := r.enc.Join(&buf, data, int(totalSize)); err != nil {
		return "", cmn.Wrap(err, "checkpoint: join shards")
	}

	restored := buf.Bytes()
	if uint64(cos.Sum64(restored)) != digest {
		return "", cmn.Wrap(cmn.ErrIO, "checkpoint: restored content failed digest check")
	}
	return string(restored), nil
}
