package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agenthost/agenthost-mini/internal/metrics"
	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/agenthost/agenthost-mini/internal/normalizer"
	"github.com/agenthost/agenthost-mini/internal/quota"
	"github.com/agenthost/agenthost-mini/internal/util"
	"go.uber.org/zap"
)

var ErrCompanyRequired = errors.New("company name required")

// DeniedError is returned when the quota gate refuses the caller.
type DeniedError struct {
	Decision quota.Decision
}

func (e *DeniedError) Error() string { return e.Decision.Reason }

// LimitReached reports whether the denial is a spent daily allowance rather
// than a bad key.
func (e *DeniedError) LimitReached() bool {
	return e.Decision.Denial == quota.DenialLimitReached
}

// Agent is the upstream research agent.
type Agent interface {
	Send(ctx context.Context, message string) (string, error)
}

type Request struct {
	Company string
	APIKey  string
}

type Result struct {
	Company  string
	Brief    model.Brief
	Usage    model.UsageSnapshot
	Mocked   bool   // served from MockBrief after an agent failure
	Strategy string // normalizer strategy that produced Brief
}

// Service runs one research request: quota check, agent call, normalization
// and usage accounting.
type Service struct {
	gate    *quota.Gate
	agent   Agent
	devMode bool
	log     *zap.Logger
}

// New constructs the research service. devMode substitutes MockBrief for
// agent failures.
func New(gate *quota.Gate, agent Agent, devMode bool, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gate: gate, agent: agent, devMode: devMode, log: log}
}

func (s *Service) Research(ctx context.Context, req Request) (*Result, error) {
	company := util.CleanCompanyName(req.Company)
	if company == "" {
		return nil, ErrCompanyRequired
	}
	log := s.log.With(zap.String("company", company), zap.Bool("demo", quota.IsDemo(req.APIKey)))

	// free keys hold their lock until usage is recorded so parallel requests
	// cannot spend the same remaining slot
	unlock := func() {}
	if !quota.IsDemo(req.APIKey) {
		var err error
		if unlock, err = s.gate.Lock(ctx, req.APIKey); err != nil {
			metrics.ResearchTotal.WithLabelValues("canceled").Inc()
			return nil, err
		}
	}
	defer func() { unlock() }()

	d, err := s.gate.Check(ctx, req.APIKey)
	if err != nil {
		metrics.ResearchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !d.Admitted {
		metrics.QuotaDenialsTotal.WithLabelValues(denialLabel(d.Denial)).Inc()
		metrics.ResearchTotal.WithLabelValues("denied").Inc()
		log.Info("research denied", zap.String("reason", d.Reason), zap.String("tier", d.Tier.String()))
		return nil, &DeniedError{Decision: d}
	}
	if d.Limit.IsUnlimited() {
		unlock()
		unlock = func() {}
	}

	res := &Result{Company: company}

	start := time.Now()
	reply, err := s.agent.Send(ctx, Prompt(company))
	metrics.AgentDuration.WithLabelValues(agentOutcome(err)).Observe(time.Since(start).Seconds())
	switch {
	case err != nil && ctx.Err() != nil:
		metrics.ResearchTotal.WithLabelValues("canceled").Inc()
		log.Info("research abandoned by caller", zap.Error(err))
		return nil, fmt.Errorf("research %q: %w", company, ctx.Err())
	case err != nil && s.devMode:
		log.Warn("research agent unavailable, serving mock data", zap.Error(err))
		res.Brief = MockBrief(company)
		res.Mocked = true
		res.Strategy = "mock"
	case err != nil:
		metrics.ResearchTotal.WithLabelValues("failed").Inc()
		log.Error("research agent failed", zap.Error(err))
		return nil, fmt.Errorf("research %q: %w", company, err)
	default:
		res.Brief, res.Strategy = normalizer.NormalizeWithSource(reply)
		log.Debug("agent reply normalized", zap.String("strategy", res.Strategy), zap.Int("reply_bytes", len(reply)))
	}
	metrics.NormalizerTotal.WithLabelValues(res.Strategy).Inc()

	if err := s.gate.Increment(ctx, req.APIKey); err != nil {
		// the research already ran; report it and keep the last known usage
		log.Error("usage increment failed", zap.Error(err))
		res.Usage = d.Snapshot()
	} else if fresh, err := s.gate.Check(ctx, req.APIKey); err != nil {
		log.Error("usage refresh failed", zap.Error(err))
		res.Usage = d.Snapshot()
	} else {
		res.Usage = fresh.Snapshot()
	}

	metrics.ResearchTotal.WithLabelValues("ok").Inc()
	log.Info("research completed",
		zap.String("tier", res.Usage.Tier.String()),
		zap.String("remaining", res.Usage.RemainingToday.String()),
		zap.Bool("mocked", res.Mocked),
	)
	return res, nil
}

func denialLabel(d quota.Denial) string {
	if d == quota.DenialLimitReached {
		return "limit_reached"
	}
	return "invalid_key"
}

func agentOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
