package simulation

import (
	"sync"

	"github.com/pthm-cable/collagen/sampling"
)

// chunkSeedStride spreads per-chunk seeds across the seed space.
const chunkSeedStride uint64 = 0x9E3779B97F4A7C15

// workChunk represents a range of particles for a worker to process.
type workChunk struct {
	start, end int
	index      int
}

// parallelState holds the walker pool. Chunk k always uses samplers[k], so a
// run depends only on the seed and the chunk count, not on scheduling.
type parallelState struct {
	numChunks int
	samplers  []*sampling.Sampler

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// chunkSeed derives the seed of chunk index from the run seed.
func chunkSeed(seed int64, index int) int64 {
	return int64(uint64(seed) + uint64(index+1)*chunkSeedStride)
}

func newParallelState(numChunks int, seed int64, method sampling.Method) *parallelState {
	samplers := make([]*sampling.Sampler, numChunks)
	for i := range samplers {
		samplers[i] = sampling.NewSampler(chunkSeed(seed, i), method)
	}
	return &parallelState{
		numChunks: numChunks,
		samplers:  samplers,
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numChunks)
	p.doneChan = make(chan struct{}, p.numChunks)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numChunks; i++ {
		p.wg.Add(1)
		go p.worker(s)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Simulation) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, p.samplers[chunk.index])
			p.doneChan <- struct{}{}
		}
	}
}

// compute dispatches n particles as fixed contiguous chunks and waits.
func (p *parallelState) compute(s *Simulation, n int) {
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numChunks - 1) / p.numChunks

	dispatched := 0
	for k := 0; k < p.numChunks; k++ {
		start := k * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, index: k}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
