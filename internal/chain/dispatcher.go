package chain

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Backend submits mint/burn operations to the chain gateway. Implementations
// are expected to be slow; the dispatcher keeps them off the tick path.
type Backend interface {
	MintGold(ctx context.Context, wallet string, amount int) error
	MintItem(ctx context.Context, wallet string, tokenID uint64, qty int) error
	BurnItem(ctx context.Context, wallet string, tokenID uint64, qty int) error
}

type opKind int

const (
	opMintGold opKind = iota + 1
	opMintItem
	opBurnItem
)

type op struct {
	kind    opKind
	wallet  string
	tokenID uint64
	amount  int
}

// Dispatcher drains mint/burn requests on worker goroutines. Enqueueing
// never blocks and failures are logged only — a kill is never undone
// because its gold mint failed.
type Dispatcher struct {
	backend Backend
	logger  *log.Logger
	timeout time.Duration

	ch      chan op
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

func NewDispatcher(backend Backend, workers int, logger *log.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	d := &Dispatcher{
		backend: backend,
		logger:  logger,
		timeout: 10 * time.Second,
		ch:      make(chan op, 4096),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run()
		}()
	}
	return d
}

func (d *Dispatcher) MintGold(wallet string, amount int) {
	if amount <= 0 {
		return
	}
	d.enqueue(op{kind: opMintGold, wallet: wallet, amount: amount})
}

func (d *Dispatcher) MintItem(wallet string, tokenID uint64, qty int) {
	if qty <= 0 {
		return
	}
	d.enqueue(op{kind: opMintItem, wallet: wallet, tokenID: tokenID, amount: qty})
}

func (d *Dispatcher) BurnItem(wallet string, tokenID uint64, qty int) {
	if qty <= 0 {
		return
	}
	d.enqueue(op{kind: opBurnItem, wallet: wallet, tokenID: tokenID, amount: qty})
}

// Dropped reports how many operations were discarded due to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close stops accepting requests and waits for in-flight ones.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() { close(d.ch) })
	d.wg.Wait()
}

func (d *Dispatcher) enqueue(o op) {
	if d == nil {
		return
	}
	select {
	case d.ch <- o:
	default:
		if d.dropped.Add(1)%100 == 1 && d.logger != nil {
			d.logger.Printf("chain: queue full, dropping op (total dropped %d)", d.dropped.Load())
		}
	}
}

func (d *Dispatcher) run() {
	for o := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		var err error
		switch o.kind {
		case opMintGold:
			err = d.backend.MintGold(ctx, o.wallet, o.amount)
		case opMintItem:
			err = d.backend.MintItem(ctx, o.wallet, o.tokenID, o.amount)
		case opBurnItem:
			err = d.backend.BurnItem(ctx, o.wallet, o.tokenID, o.amount)
		}
		cancel()
		if err != nil && d.logger != nil {
			d.logger.Printf("chain: op %d wallet=%s token=%d amount=%d: %v", o.kind, o.wallet, o.tokenID, o.amount, err)
		}
	}
}

// LogBackend is the default backend when no gateway is configured: it
// records operations so the rest of the pipeline stays exercised.
type LogBackend struct {
	logger *log.Logger
}

func NewLogBackend(logger *log.Logger) *LogBackend {
	return &LogBackend{logger: logger}
}

func (b *LogBackend) MintGold(_ context.Context, wallet string, amount int) error {
	if b.logger != nil {
		b.logger.Printf("mint gold wallet=%s amount=%d", wallet, amount)
	}
	return nil
}

func (b *LogBackend) MintItem(_ context.Context, wallet string, tokenID uint64, qty int) error {
	if b.logger != nil {
		b.logger.Printf("mint item wallet=%s token=%d qty=%d", wallet, tokenID, qty)
	}
	return nil
}

func (b *LogBackend) BurnItem(_ context.Context, wallet string, tokenID uint64, qty int) error {
	if b.logger != nil {
		b.logger.Printf("burn item wallet=%s token=%d qty=%d", wallet, tokenID, qty)
	}
	return nil
}
