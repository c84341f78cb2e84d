package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLockTimeout не удалось взять блокировку до истечения контекста
var ErrLockTimeout = errors.New("cart lock timeout")

// Locker сериализует изменения корзины одного покупателя
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// keyedEntry занят, пока в slot лежит значение
type keyedEntry struct {
	slot chan struct{}
	refs int
}

// KeyedMutex блокировка в памяти процесса, по мьютексу на ключ
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

var _ Locker = (*KeyedMutex)(nil)

// Lock ждёт ключ, пока не истечёт ctx
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{slot: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// size is used by tests to check that entries are released
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
