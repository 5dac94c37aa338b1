package chain

import (
	"context"
	"sync"
	"testing"
)

type recordBackend struct {
	mu    sync.Mutex
	gold  map[string]int
	items map[uint64]int
	burns map[uint64]int
}

func newRecordBackend() *recordBackend {
	return &recordBackend{gold: map[string]int{}, items: map[uint64]int{}, burns: map[uint64]int{}}
}

func (b *recordBackend) MintGold(_ context.Context, wallet string, amount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gold[wallet] += amount
	return nil
}

func (b *recordBackend) MintItem(_ context.Context, _ string, tokenID uint64, qty int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[tokenID] += qty
	return nil
}

func (b *recordBackend) BurnItem(_ context.Context, _ string, tokenID uint64, qty int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.burns[tokenID] += qty
	return nil
}

func TestDispatcher_DrainsAllOpsOnClose(t *testing.T) {
	backend := newRecordBackend()
	d := NewDispatcher(backend, 2, nil)

	d.MintGold("0x1", 5)
	d.MintGold("0x1", 7)
	d.MintItem("0x1", 21, 2)
	d.BurnItem("0x1", 21, 1)
	d.Close()

	if backend.gold["0x1"] != 12 {
		t.Fatalf("gold = %d, want 12", backend.gold["0x1"])
	}
	if backend.items[21] != 2 {
		t.Fatalf("items = %d, want 2", backend.items[21])
	}
	if backend.burns[21] != 1 {
		t.Fatalf("burns = %d, want 1", backend.burns[21])
	}
	if d.Dropped() != 0 {
		t.Fatalf("dropped = %d, want 0", d.Dropped())
	}
}

func TestDispatcher_IgnoresNonPositiveAmounts(t *testing.T) {
	backend := newRecordBackend()
	d := NewDispatcher(backend, 1, nil)

	d.MintGold("0x1", 0)
	d.MintGold("0x1", -3)
	d.MintItem("0x1", 21, 0)
	d.Close()

	if len(backend.gold) != 0 || len(backend.items) != 0 {
		t.Fatalf("non-positive amounts reached the backend: %+v %+v", backend.gold, backend.items)
	}
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(newRecordBackend(), 1, nil)
	d.Close()
	d.Close()

	var nilD *Dispatcher
	nilD.Close()
	nilD.MintGold("0x1", 1)
}
