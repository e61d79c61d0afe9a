// Package memory реализует хранилище в памяти процесса для STORAGE_DRIVER=memory и тестов.
//
// Все операции сериализуются одним семафором: транзакция держит его от Begin
// до Commit/Rollback, поэтому изоляция не слабее serializable.
package memory

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"
)

const (
	TableUsers      = "users"
	TableCategories = "categories"
	TableProducts   = "products"
	TableReviews    = "reviews"
	TableCart       = "cart"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
)

var ErrTxDone = errors.New("transaction has already been committed or rolled back")

type table interface {
	snapshot() func()
	reset()
}

// Table: строки одного типа по ID. Значения хранятся копиями.
type Table[T any] struct {
	rows map[int64]T
	seq  int64
}

func newTable[T any]() *Table[T] {
	return &Table[T]{rows: make(map[int64]T)}
}

func (t *Table[T]) reset() {
	t.rows = make(map[int64]T)
	t.seq = 0
}

func (t *Table[T]) snapshot() func() {
	rows := maps.Clone(t.rows)
	seq := t.seq
	return func() {
		t.rows = rows
		t.seq = seq
	}
}

// NextID выдает следующий идентификатор, как SERIAL
func (t *Table[T]) NextID() int64 {
	t.seq++
	return t.seq
}

func (t *Table[T]) Get(id int64) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *Table[T]) Put(id int64, row T) {
	if id > t.seq {
		t.seq = id
	}
	t.rows[id] = row
}

func (t *Table[T]) Delete(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// Scan возвращает строки, прошедшие фильтр, по возрастанию ID
func (t *Table[T]) Scan(filter func(T) bool) []T {
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if filter == nil || filter(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]T, 0, len(ids))
	for _, id := range ids {
		result = append(result, t.rows[id])
	}
	return result
}

func (t *Table[T]) Len() int {
	return len(t.rows)
}

type Store struct {
	sem chan struct{}

	mu     sync.Mutex
	tables map[string]table
}

func NewStore() *Store {
	return &Store{
		sem:    make(chan struct{}, 1),
		tables: make(map[string]table),
	}
}

// GetTable возвращает таблицу, создавая ее при первом обращении.
// Один и тот же name всегда должен использоваться с одним типом строки.
func GetTable[T any](s *Store, name string) *Table[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[name]; ok {
		return t.(*Table[T])
	}
	t := newTable[T]()
	s.tables[name] = t
	return t
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.sem
}

// Do выполняет fn под блокировкой хранилища без транзакции
func (s *Store) Do(ctx context.Context, fn func() error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// Begin открывает транзакцию. Блокировка держится до Commit или Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	restore := make([]func(), 0, len(s.tables))
	known := make(map[string]struct{}, len(s.tables))
	for name, t := range s.tables {
		restore = append(restore, t.snapshot())
		known[name] = struct{}{}
	}
	s.mu.Unlock()

	return &Tx{store: s, restore: restore, known: known}, nil
}

type Tx struct {
	store   *Store
	restore []func()
	// таблицы, созданные внутри транзакции, при откате очищаются
	known map[string]struct{}

	mu   sync.Mutex
	done bool
}

func (tx *Tx) Store() *Store {
	return tx.store
}

// Check возвращает ошибку, если транзакция закрыта или истек контекст
func (tx *Tx) Check(ctx context.Context) error {
	tx.mu.Lock()
	done := tx.done
	tx.mu.Unlock()

	if done {
		return ErrTxDone
	}
	return ctx.Err()
}

func (tx *Tx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.store.release()
	return nil
}

// Rollback восстанавливает снимок. Повторный вызов после Commit безопасен.
func (tx *Tx) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	for _, restore := range tx.restore {
		restore()
	}

	tx.store.mu.Lock()
	for name, t := range tx.store.tables {
		if _, ok := tx.known[name]; !ok {
			t.reset()
		}
	}
	tx.store.mu.Unlock()

	tx.store.release()
	return nil
}
