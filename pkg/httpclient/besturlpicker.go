// Package httpclient implements the HTTP client façade used by every venue
// adapter: BestURLPicker chooses among a venue's redundant base URLs by
// observed latency, Client enforces a minimum spacing between requests and
// feeds the picker, and RequestRetry wraps a query with exponential
// backoff and an application-level accept/reject predicate.
package httpclient

import (
	"sync"
	"time"

	"github.com/sjanel/coincenter/pkg/coinerr"
)

// MaxBaseURLs bounds the number of redundant base URLs BestURLPicker can
// track for one venue (mirrors the original's compile-time inline cap).
const MaxBaseURLs = 4

// statsResetThreshold caps the number of samples folded into the moving
// average/deviation before they are reset, so a base URL that has degraded
// historically isn't stuck with a stale good score forever.
const statsResetThreshold = 10_000

type responseTimeStats struct {
	nbRequests        int
	avgResponseTimeMs float64
	avgDeviationMs    float64
}

func (s responseTimeStats) score() float64 {
	return s.avgResponseTimeMs + s.avgDeviationMs
}

// BestURLPicker favors the base URL with the lowest average response time
// and deviation (summed, so the average naturally counts more than the
// deviation) across up to MaxBaseURLs candidates for a single venue.
type BestURLPicker struct {
	mu       sync.Mutex
	baseURLs []string
	stats    []responseTimeStats
}

// NewBestURLPicker builds a picker over 1..MaxBaseURLs base URLs.
func NewBestURLPicker(baseURLs ...string) (*BestURLPicker, error) {
	if len(baseURLs) == 0 {
		return nil, coinerr.New(coinerr.InvalidArgument, "at least one base URL is required")
	}
	if len(baseURLs) > MaxBaseURLs {
		return nil, coinerr.New(coinerr.InvalidArgument, "too many base URLs, max is 4")
	}
	cp := append([]string(nil), baseURLs...)
	return &BestURLPicker{baseURLs: cp, stats: make([]responseTimeStats, len(cp))}, nil
}

// NbBaseURL returns how many base URLs this picker tracks.
func (p *BestURLPicker) NbBaseURL() int { return len(p.baseURLs) }

// BaseURL returns the base URL at pos.
func (p *BestURLPicker) BaseURL(pos int) string { return p.baseURLs[pos] }

// NbRequestsDone returns the total number of samples recorded across every
// base URL.
func (p *BestURLPicker) NbRequestsDone() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, s := range p.stats {
		total += s.nbRequests
	}
	return total
}

// NextBaseURLPos returns the index of the base URL with the lowest score.
// A base URL that has never been sampled has a zero score, so every
// candidate gets an initial try before the picker starts favoring one.
func (p *BestURLPicker) NextBaseURLPos() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	best := 0
	bestScore := p.stats[0].score()
	for i := 1; i < len(p.stats); i++ {
		if s := p.stats[i].score(); s < bestScore {
			bestScore = s
			best = i
		}
	}
	return best
}

// NextBaseURL returns the base URL NextBaseURLPos selects.
func (p *BestURLPicker) NextBaseURL() string {
	return p.baseURLs[p.NextBaseURLPos()]
}

// StoreResponseTime folds a new sample into pos's moving average and
// deviation.
func (p *BestURLPicker) StoreResponseTime(pos int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.stats[pos]
	if s.nbRequests >= statsResetThreshold {
		*s = responseTimeStats{}
	}

	ms := float64(d.Microseconds()) / 1000
	n := float64(s.nbRequests)
	newAvg := s.avgResponseTimeMs + (ms-s.avgResponseTimeMs)/(n+1)
	deviation := ms - newAvg
	if deviation < 0 {
		deviation = -deviation
	}
	s.avgDeviationMs += (deviation - s.avgDeviationMs) / (n + 1)
	s.avgResponseTimeMs = newAvg
	s.nbRequests++
}
