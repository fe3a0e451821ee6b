package checkpoint_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/sloked-project/sloked/cmn/tassert"
	"github.com/sloked-project/sloked/text"
	"github.com/sloked-project/sloked/text/checkpoint"
)

func buildShards(t *testing.T, cfg checkpoint.Config, doc *text.Document) [][]byte {
	t.Helper()
	writer, err := checkpoint.NewWriter(cfg)
	tassert.CheckFatal(t, err)
	bufs := make([]*bytes.Buffer, cfg.DataShards+cfg.ParityShards)
	writers := make([]io.Writer, len(bufs))
	for i := range bufs {
		bufs[i] = &bytes.Buffer{}
		writers[i] = bufs[i]
	}
	tassert.CheckFatal(t, writer.Write(doc, writers))
	out := make([][]byte, len(bufs))
	for i, b := range bufs {
		out[i] = b.Bytes()
	}
	return out
}

func readersFrom(shards [][]byte, missing ...int) []io.Reader {
	skip := map[int]bool{}
	for _, i := range missing {
		skip[i] = true
	}
	out := make([]io.Reader, len(shards))
	for i, s := range shards {
		if skip[i] {
			continue
		}
		out[i] = bytes.NewReader(s)
	}
	return out
}

func TestRoundTripWithoutLoss(t *testing.T) {
	cfg := checkpoint.Config{DataShards: 4, ParityShards: 2}
	doc := text.Open(text.LF, "the quick brown fox\njumps over\nthe lazy dog\n")
	shards := buildShards(t, cfg, doc)

	reader, err := checkpoint.NewReader(cfg)
	tassert.CheckFatal(t, err)
	restored, err := reader.Read(readersFrom(shards))
	tassert.CheckFatal(t, err)
	tassert.Fatal(t, restored == doc.Materialize(), "restored content mismatch: got %q", restored)
}

func TestRoundTripToleratesMissingShards(t *testing.T) {
	cfg := checkpoint.Config{DataShards: 4, ParityShards: 2}
	doc := text.Open(text.LF, "resilient content across several lines\nsecond line\n")
	shards := buildShards(t, cfg, doc)

	reader, err := checkpoint.NewReader(cfg)
	tassert.CheckFatal(t, err)
	// Losing exactly ParityShards shards must still restore.
	restored, err := reader.Read(readersFrom(shards, 0, 5))
	tassert.CheckFatal(t, err)
	tassert.Fatal(t, restored == doc.Materialize(), "restored content mismatch: got %q", restored)
}

func TestRoundTripFailsPastParityBudget(t *testing.T) {
	cfg := checkpoint.Config{DataShards: 4, ParityShards: 2}
	doc := text.Open(text.LF, "short\n")
	shards := buildShards(t, cfg, doc)

	reader, err := checkpoint.NewReader(cfg)
	tassert.CheckFatal(t, err)
	_, err = reader.Read(readersFrom(shards, 0, 1, 5))
	tassert.Fatal(t, err != nil, "expected an error restoring with 3 missing shards out of 2 parity")
}

func TestRejectsWrongShardCount(t *testing.T) {
	cfg := checkpoint.Config{DataShards: 4, ParityShards: 2}
	writer, err := checkpoint.NewWriter(cfg)
	tassert.CheckFatal(t, err)
	doc := text.Open(text.LF, "content\n")
	err = writer.Write(doc, make([]io.Writer, 3))
	tassert.Fatal(t, err != nil, "expected an error for a mismatched shard count")
}
