package sip

import (
	"iter"
	"log/slog"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipsanity/internal/syncutil"
)

// TransactionKind is a transaction class.
type TransactionKind uint8

const (
	TransactionKindIST  TransactionKind = iota + 1 // INVITE server transaction
	TransactionKindNIST                            // non-INVITE server transaction
	TransactionKindICT                             // INVITE client transaction
	TransactionKindNICT                            // non-INVITE client transaction
)

func (k TransactionKind) String() string {
	switch k {
	case TransactionKindIST:
		return "ist"
	case TransactionKindNIST:
		return "nist"
	case TransactionKindICT:
		return "ict"
	case TransactionKindNICT:
		return "nict"
	default:
		return "unknown"
	}
}

func (k TransactionKind) IsValid() bool { return k >= TransactionKindIST && k <= TransactionKindNICT }

// ServerTransactionKind returns the server transaction class a request with the method would create.
func ServerTransactionKind(mtd RequestMethod) TransactionKind {
	if mtd == RequestMethodInvite {
		return TransactionKindIST
	}
	return TransactionKindNIST
}

// RequestSnapshot holds the request fields a transaction is matched by.
type RequestSnapshot struct {
	FromTag string
	CallID  string
	CSeq    CSeq
}

// NewRequestSnapshot takes the snapshot of a request.
func NewRequestSnapshot(msg *Message) (RequestSnapshot, error) {
	if !msg.IsRequest() {
		return RequestSnapshot{}, errtrace.Wrap(NewInvalidArgumentError("not a request"))
	}
	if !checkMinimumHeaders(msg).Passed() {
		return RequestSnapshot{}, errtrace.Wrap(ErrMissingHeaders)
	}
	flds, err := msg.Fields()
	if err != nil {
		return RequestSnapshot{}, errtrace.Wrap(err)
	}
	return RequestSnapshot{FromTag: flds.FromTag, CallID: flds.CallID, CSeq: flds.CSeq}, nil
}

// matches reports whether a request with the fields is a copy of the snapshot request.
func (r RequestSnapshot) matches(flds *MessageFields) bool {
	return r.FromTag == flds.FromTag && r.CallID == flds.CallID && r.CSeq == flds.CSeq
}

// TransactionRecord is a transaction entry visible to the sanity check.
type TransactionRecord struct {
	Kind    TransactionKind
	Branch  string
	Request RequestSnapshot
}

func (r TransactionRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", r.Kind.String()),
		slog.String("branch", r.Branch),
		slog.String("call_id", r.Request.CallID),
		slog.String("cseq", r.Request.CSeq.String()),
	)
}

// TransactionStore is a read-only view of live transactions.
// Implementations must be safe for concurrent use.
type TransactionStore interface {
	// LookupTransaction finds a transaction of the kind by its branch.
	LookupTransaction(kind TransactionKind, branch string) (TransactionRecord, bool)
	// Transactions iterates over all transactions of the kind.
	Transactions(kind TransactionKind) iter.Seq[TransactionRecord]
}

// MemoryTransactionStore is an in-memory [TransactionStore] keyed by branch per transaction kind.
// The zero value is not usable, use [NewMemoryTransactionStore].
type MemoryTransactionStore struct {
	kinds [TransactionKindNICT]*syncutil.ShardMap[string, TransactionRecord]
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	s := new(MemoryTransactionStore)
	for i := range s.kinds {
		s.kinds[i] = syncutil.NewShardMap[string, TransactionRecord](0)
	}
	return s
}

func (s *MemoryTransactionStore) table(kind TransactionKind) *syncutil.ShardMap[string, TransactionRecord] {
	if s == nil || !kind.IsValid() {
		return nil
	}
	return s.kinds[kind-1]
}

// Put stores or replaces the record.
func (s *MemoryTransactionStore) Put(rec TransactionRecord) error {
	tbl := s.table(rec.Kind)
	if tbl == nil {
		return errtrace.Wrap(NewInvalidArgumentError("invalid transaction kind %d", rec.Kind))
	}
	if rec.Branch == "" {
		return errtrace.Wrap(NewInvalidArgumentError("empty branch"))
	}
	tbl.Set(rec.Branch, rec)
	return nil
}

// Delete removes the record and reports whether it existed.
func (s *MemoryTransactionStore) Delete(kind TransactionKind, branch string) bool {
	tbl := s.table(kind)
	if tbl == nil {
		return false
	}
	_, ok := tbl.Del(branch)
	return ok
}

// Len returns the number of records of the kind.
func (s *MemoryTransactionStore) Len(kind TransactionKind) int { return s.table(kind).Size() }

func (s *MemoryTransactionStore) LookupTransaction(kind TransactionKind, branch string) (TransactionRecord, bool) {
	return s.table(kind).Get(branch)
}

func (s *MemoryTransactionStore) Transactions(kind TransactionKind) iter.Seq[TransactionRecord] {
	return func(yield func(TransactionRecord) bool) {
		tbl := s.table(kind)
		if tbl == nil {
			return
		}
		for _, rec := range tbl.Items() {
			if !yield(rec) {
				return
			}
		}
	}
}
