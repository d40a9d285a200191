package sip

import (
	"context"
	"encoding"
	"iter"
	"sync"

	"braces.dev/errtrace"
)

// TransactionStore is a storage of active transactions keyed by their
// transaction key. Implementations must be safe for concurrent use.
//
// The context argument allows implementations backed by external storage,
// the in-memory store ignores it.
type TransactionStore[K encoding.BinaryMarshaler, V any] interface {
	// Load returns the transaction stored under the key.
	// It returns [ErrTransactionNotFound] when no transaction is stored under the key.
	Load(ctx context.Context, key K) (V, error)
	// Store saves the transaction under the key.
	Store(ctx context.Context, key K, tx V) error
	// Delete removes the transaction stored under the key.
	// It returns [ErrTransactionNotFound] when no transaction is stored under the key.
	Delete(ctx context.Context, key K) error
	// All iterates over all stored transactions.
	All(ctx context.Context) (iter.Seq2[K, V], error)
}

type memTxStoreEntry[K, V any] struct {
	key K
	tx  V
}

type memoryTransactionStore[K encoding.BinaryMarshaler, V any] struct {
	mu  sync.RWMutex
	txs map[string]memTxStoreEntry[K, V]
}

// NewMemoryTransactionStore creates an in-memory [TransactionStore].
func NewMemoryTransactionStore[K encoding.BinaryMarshaler, V any]() TransactionStore[K, V] {
	return &memoryTransactionStore[K, V]{
		txs: make(map[string]memTxStoreEntry[K, V]),
	}
}

func (s *memoryTransactionStore[K, V]) Load(_ context.Context, key K) (V, error) {
	var zero V
	kb, err := key.MarshalBinary()
	if err != nil {
		return zero, errtrace.Wrap(NewInvalidArgumentError(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.txs[string(kb)]
	if !ok {
		return zero, errtrace.Wrap(ErrTransactionNotFound)
	}
	return entry.tx, nil
}

func (s *memoryTransactionStore[K, V]) Store(_ context.Context, key K, tx V) error {
	kb, err := key.MarshalBinary()
	if err != nil {
		return errtrace.Wrap(NewInvalidArgumentError(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[string(kb)] = memTxStoreEntry[K, V]{key: key, tx: tx}
	return nil
}

func (s *memoryTransactionStore[K, V]) Delete(_ context.Context, key K) error {
	kb, err := key.MarshalBinary()
	if err != nil {
		return errtrace.Wrap(NewInvalidArgumentError(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[string(kb)]; !ok {
		return errtrace.Wrap(ErrTransactionNotFound)
	}
	delete(s.txs, string(kb))
	return nil
}

func (s *memoryTransactionStore[K, V]) All(_ context.Context) (iter.Seq2[K, V], error) {
	s.mu.RLock()
	entries := make([]memTxStoreEntry[K, V], 0, len(s.txs))
	for _, entry := range s.txs {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	return func(yield func(K, V) bool) {
		for _, entry := range entries {
			if !yield(entry.key, entry.tx) {
				return
			}
		}
	}, nil
}
