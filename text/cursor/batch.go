package cursor

import "github.com/sloked-project/sloked/core"

// TransactionBatch groups adjacent edits (e.g. keystrokes within one typing
// session) into a single undo entry, re-committing the accumulated batch on
// every new sub-edit so the underlying Stream always has one combined undo
// step covering everything typed so far.
type TransactionBatch struct {
	stream   *Stream
	anchor   core.TextPosition
	children []Transaction
	started  bool
}

// NewTransactionBatch opens a batch anchored at pos over stream.
func NewTransactionBatch(stream *Stream, pos core.TextPosition) *TransactionBatch {
	return &TransactionBatch{stream: stream, anchor: pos}
}

// Commit appends t to the batch and re-commits the whole accumulated batch
// as one transaction, replacing the previous combined commit.
func (b *TransactionBatch) Commit(t Transaction) (core.TextPosition, error) {
	if b.started {
		if _, err := b.stream.Rollback(); err != nil {
			return core.TextPosition{}, err
		}
	}
	b.children = append(b.children, t)
	whole := NewBatch(b.anchor, append([]Transaction(nil), b.children...))
	pos, err := b.stream.Commit(whole)
	if err != nil {
		return pos, err
	}
	b.started = true
	return pos, nil
}

func (b *TransactionBatch) HasRollback() bool               { return b.stream.HasRollback() }
func (b *TransactionBatch) Rollback() (core.TextPosition, error) { return b.stream.Rollback() }
func (b *TransactionBatch) HasRevertable() bool              { return b.stream.HasRevertable() }
func (b *TransactionBatch) RevertRollback() (core.TextPosition, error) {
	return b.stream.RevertRollback()
}

// Finish collapses the batch: the stream already holds a single combined
// commit for everything accumulated, so finishing just resets the adaptor
// for a fresh batch.
func (b *TransactionBatch) Finish() {
	b.children = nil
	b.started = false
}
