package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/agenthost/agenthost-mini/internal/repository"
	"github.com/agenthost/agenthost-mini/internal/util"
)

const (
	// DemoKey is the sentinel the extension sends when the user has no key.
	DemoKey = "demo-key"

	DefaultUpgradeURL = "https://agenthost.dev/pricing"

	keySuffixLen = 32
	maxKeyTries  = 5
)

const (
	ReasonInvalidKey   = "Invalid API key"
	ReasonLimitReached = "Daily limit reached. Upgrade to Pro for unlimited research."
	MessageDemoMode    = "Using demo mode (client-side limits)"
)

type Denial int

const (
	DenialNone Denial = iota
	DenialInvalidKey
	DenialLimitReached
)

// Decision is the outcome of a quota check.
type Decision struct {
	Admitted   bool
	Denial     Denial
	Demo       bool
	Tier       model.Tier // empty for unknown keys
	Limit      model.Limit
	Used       int
	Remaining  model.Limit
	Reason     string
	UpgradeURL string
}

// Snapshot projects the decision onto the usage block returned to clients.
func (d Decision) Snapshot() model.UsageSnapshot {
	return model.UsageSnapshot{
		Tier:           d.Tier,
		RemainingToday: d.Remaining,
		DailyLimit:     d.Limit,
		UsedToday:      d.Used,
	}
}

// Tracked reports whether the key has server-side usage state.
func (d Decision) Tracked() bool { return !d.Demo && d.Denial != DenialInvalidKey }

// IsDemo reports whether key selects the untracked demo mode.
func IsDemo(key string) bool { return key == "" || key == DemoKey }

// Gate decides whether a caller may run a research request today.
type Gate struct {
	repo       repository.QuotaRepository
	now        func() time.Time
	upgradeURL string

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is a one-slot semaphore so waiters can give up on cancellation.
type keyLock struct {
	ch   chan struct{}
	refs int
}

type Option func(*Gate)

// WithClock overrides time.Now; dates are taken in the clock's location.
func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

func WithUpgradeURL(u string) Option {
	return func(g *Gate) {
		if u != "" {
			g.upgradeURL = u
		}
	}
}

func NewGate(repo repository.QuotaRepository, opts ...Option) *Gate {
	g := &Gate{
		repo:       repo,
		now:        time.Now,
		upgradeURL: DefaultUpgradeURL,
		locks:      make(map[string]*keyLock),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gate) today() string { return g.now().Format(model.DateLayout) }

// Check evaluates key against today's usage without changing it.
func (g *Gate) Check(ctx context.Context, key string) (Decision, error) {
	if IsDemo(key) {
		limit := model.TierFree.DailyLimit()
		return Decision{
			Admitted:  true,
			Demo:      true,
			Tier:      model.TierFree,
			Limit:     limit,
			Remaining: limit,
			Reason:    MessageDemoMode,
		}, nil
	}

	rec, err := g.repo.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("quota lookup: %w", err)
	}
	if rec == nil {
		return Decision{Denial: DenialInvalidKey, Reason: ReasonInvalidKey}, nil
	}

	used := rec.UsedOn(g.today())
	d := Decision{
		Admitted:  true,
		Tier:      rec.Tier,
		Limit:     rec.DailyLimit,
		Used:      used,
		Remaining: rec.DailyLimit.Sub(used),
	}
	if rec.Tier == model.TierFree && d.Remaining.Exhausted() {
		d.Admitted = false
		d.Denial = DenialLimitReached
		d.Reason = ReasonLimitReached
		d.UpgradeURL = g.upgradeURL
	}
	return d, nil
}

// Increment records one request for today. Demo and unknown keys are ignored.
func (g *Gate) Increment(ctx context.Context, key string) error {
	if IsDemo(key) {
		return nil
	}
	_, err := g.repo.Increment(ctx, key, g.today(), model.UsageRetentionDays)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("quota increment: %w", err)
	}
	return nil
}

// Snapshot returns the current usage for key. ok is false for unknown keys.
func (g *Gate) Snapshot(ctx context.Context, key string) (model.UsageSnapshot, bool, error) {
	d, err := g.Check(ctx, key)
	if err != nil {
		return model.UsageSnapshot{}, false, err
	}
	if d.Denial == DenialInvalidKey {
		return model.UsageSnapshot{}, false, nil
	}
	return d.Snapshot(), true, nil
}

// Register allocates a new key of the given tier.
func (g *Gate) Register(ctx context.Context, tier model.Tier) (string, error) {
	if !tier.Valid() {
		return "", fmt.Errorf("invalid tier %q", tier)
	}
	for i := 0; i < maxKeyTries; i++ {
		suffix, err := util.RandomString(keySuffixLen)
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		key := "ak_" + tier.String() + "_" + suffix
		err = g.repo.Create(ctx, model.QuotaRecord{
			Key:        key,
			Tier:       tier,
			DailyLimit: tier.DailyLimit(),
			Usage:      map[string]int{},
			CreatedAt:  g.now(),
		})
		if errors.Is(err, repository.ErrKeyExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("register key: %w", err)
		}
		return key, nil
	}
	return "", fmt.Errorf("register key: %d collisions in a row", maxKeyTries)
}

// Seed registers a fixed key, leaving an existing one untouched.
func (g *Gate) Seed(ctx context.Context, key string, tier model.Tier) error {
	if IsDemo(key) {
		return fmt.Errorf("seed key %q is reserved", key)
	}
	err := g.repo.Create(ctx, model.QuotaRecord{
		Key:        key,
		Tier:       tier,
		DailyLimit: tier.DailyLimit(),
		Usage:      map[string]int{},
		CreatedAt:  g.now(),
	})
	if err != nil && !errors.Is(err, repository.ErrKeyExists) {
		return fmt.Errorf("seed key: %w", err)
	}
	return nil
}

// Lock serializes check+increment sequences for one key. The returned func
// releases it and must be called exactly once. Waiting stops with ctx.Err()
// when ctx is done first.
func (g *Gate) Lock(ctx context.Context, key string) (unlock func(), err error) {
	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		g.unref(key, l)
		return nil, ctx.Err()
	}
	return func() {
		<-l.ch
		g.unref(key, l)
	}, nil
}

func (g *Gate) unref(key string, l *keyLock) {
	g.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, key)
	}
	g.mu.Unlock()
}
