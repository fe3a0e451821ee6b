package checkpoint

import (
	"encoding/binary"
	"io"

	"github.com/tinylib/msgp/msgp"

	"github.com/sloked-project/sloked/cmn"
)

// shardHeader precedes every shard's payload on the wire, carrying enough
// to reconstruct and verify the original content without consulting any
// other shard. Hand-marshalled with msgp (no codegen run), the same
// convention security/record.go uses for its own on-disk record.
type shardHeader struct {
	Digest       uint64
	TotalSize    uint64
	ShardIndex   int
	DataShards   int
	ParityShards int
}

func (z *shardHeader) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, 5)
	o = msgp.AppendString(o, "digest")
	o = msgp.AppendUint64(o, z.Digest)
	o = msgp.AppendString(o, "total_size")
	o = msgp.AppendUint64(o, z.TotalSize)
	o = msgp.AppendString(o, "shard_index")
	o = msgp.AppendInt(o, z.ShardIndex)
	o = msgp.AppendString(o, "data_shards")
	o = msgp.AppendInt(o, z.DataShards)
	o = msgp.AppendString(o, "parity_shards")
	o = msgp.AppendInt(o, z.ParityShards)
	return o, nil
}

func (z *shardHeader) UnmarshalMsg(bts []byte) ([]byte, error) {
	size, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < size; i++ {
		var key string
		key, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch key {
		case "digest":
			z.Digest, bts, err = msgp.ReadUint64Bytes(bts)
		case "total_size":
			z.TotalSize, bts, err = msgp.ReadUint64Bytes(bts)
		case "shard_index":
			z.ShardIndex, bts, err = msgp.ReadIntBytes(bts)
		case "data_shards":
			z.DataShards, bts, err = msgp.ReadIntBytes(bts)
		case "parity_shards":
			z.ParityShards, bts, err = msgp.ReadIntBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

// writeFramed writes a 4-byte big-endian length prefix followed by payload.
func writeFramed(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return cmn.Wrap(err, "checkpoint: write frame length")
	}
	if _, err := w.Write(payload); err != nil {
		return cmn.Wrap(err, "checkpoint: write frame payload")
	}
	return nil
}

// readFramed reads one writeFramed-encoded payload.
func readFramed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, cmn.Wrap(err, "checkpoint: read frame length")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, cmn.Wrap(err, "checkpoint: read frame payload")
	}
	return payload, nil
}
