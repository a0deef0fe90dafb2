package rng

import (
	"context"

	"github.com/tevino/abool"

	"github.com/safing/entropool/container"
)

var rngFeeder = make(chan []byte)

// The Feeder is used to feed entropy to the RNG.
type Feeder struct {
	ctx          context.Context
	cancel       context.CancelFunc
	input        chan *entropyData
	entropy      int64
	needsEntropy *abool.AtomicBool
	buffer       *container.Container
}

type entropyData struct {
	data    []byte
	entropy int
}

// NewFeeder returns a new entropy Feeder.
func NewFeeder() *Feeder {
	ctx, cancel := context.WithCancel(module.Ctx)
	newFeeder := &Feeder{
		ctx:          ctx,
		cancel:       cancel,
		input:        make(chan *entropyData),
		needsEntropy: abool.NewBool(true),
		buffer:       container.New(),
	}
	module.StartServiceWorker("feeder", 0, newFeeder.run)
	return newFeeder
}

// SupplyEntropyIfNeeded supplies entropy to the Feeder. It never blocks and
// drops the data if no entropy is currently needed.
func (f *Feeder) SupplyEntropyIfNeeded(data []byte, entropy int) {
	if !f.needsEntropy.IsSet() {
		return
	}

	select {
	case f.input <- &entropyData{
		data:    data,
		entropy: entropy,
	}:
	default:
	}
}

// CloseFeeder stops the feed processing.
func (f *Feeder) CloseFeeder() {
	f.cancel()
}

func (f *Feeder) run(_ context.Context) error {
	defer f.needsEntropy.UnSet()

	for {
		// gather
		f.needsEntropy.Set()
	gather:
		for {
			select {
			case newEntropy := <-f.input:
				f.buffer.AppendCopy(newEntropy.data)
				f.entropy += int64(newEntropy.entropy)
				if f.entropy >= minFeedEntropy() {
					break gather
				}
			case <-f.ctx.Done():
				return nil
			}
		}

		// feed
		f.needsEntropy.UnSet()
		select {
		case rngFeeder <- f.buffer.CompileData():
		case <-f.ctx.Done():
			return nil
		}
		f.buffer = container.New()
		f.entropy = 0
	}
}
