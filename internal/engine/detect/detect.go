package detect

import (
	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

// Engine is the stateless rule evaluator. Each detection cycle is judged from
// scratch on that cycle's rates alone; there is no hysteresis. Thresholds are
// class-specific: baseline traffic is expected to be heavier but legitimate,
// so its thresholds sit above the attack-origin ones.
type Engine struct {
	baseline config.ClassThresholds
	attack   config.ClassThresholds
}

// New creates an engine from the configured thresholds.
func New(cfg config.DetectionConfig) *Engine {
	return &Engine{baseline: cfg.Baseline, attack: cfg.Attack}
}

// signal pairs one measured rate with its rule. A threshold <= 0 disables the
// rule for that class.
type signal struct {
	rule   model.RuleID
	level  model.AlertLevel
	rate   float64
	thresh float64
}

// Evaluate returns the alert level and the attributable reasons for the
// current window. The final level is the maximum candidate across all signals
// and both classes.
func (e *Engine) Evaluate(rates *model.WindowRates) (model.AlertLevel, []model.Reason) {
	var reasons []model.Reason

	reasons = e.evalClass(model.ClassBaseline, &rates.Baseline, &e.baseline, reasons)
	reasons = e.evalClass(model.ClassAttack, &rates.Attack, &e.attack, reasons)

	level := model.AlertNone
	for _, r := range reasons {
		if r.Level > level {
			level = r.Level
		}
	}
	return level, reasons
}

func (e *Engine) evalClass(class model.TrafficClass, r *model.ClassRates,
	th *config.ClassThresholds, reasons []model.Reason) []model.Reason {

	signals := [...]signal{
		{model.RuleUDPFlood, model.AlertHigh, r.UDPPPS, th.UDPPPS},
		{model.RuleSYNFlood, model.AlertHigh, r.SYNPPS, th.SYNPPS},
		{model.RuleICMPFlood, model.AlertHigh, r.ICMPPPS, th.ICMPPPS},
		{model.RuleHTTPFlood, model.AlertHigh, r.HTTPPPS, th.HTTPPPS},
		{model.RuleDNSAmp, model.AlertHigh, r.DNSPPS, th.DNSPPS},
		{model.RuleNTPAmp, model.AlertHigh, r.NTPPPS, th.NTPPPS},
		{model.RuleACKFlood, model.AlertHigh, r.PureACKPPS, th.PureACKPPS},
		{model.RuleFragAbuse, model.AlertHigh, r.FragPPS, th.FragPPS},
		{model.RulePacketFlood, model.AlertMedium, r.TotalPPS, th.TotalPPS},
	}

	protocolBreaches := 0
	for _, s := range signals {
		if s.thresh <= 0 || s.rate <= s.thresh {
			continue
		}
		reasons = append(reasons, model.Reason{
			Rule:   s.rule,
			Class:  class,
			Level:  s.level,
			Rate:   s.rate,
			Thresh: s.thresh,
		})
		if s.rule != model.RulePacketFlood {
			protocolBreaches++
		}
	}

	// Two or more simultaneous protocol-specific breaches from one class is
	// reported as a combined vector on top of the individual reasons.
	if protocolBreaches >= 2 {
		reasons = append(reasons, model.Reason{
			Rule:   model.RuleMultiVector,
			Class:  class,
			Level:  model.AlertHigh,
			Rate:   r.TotalPPS,
			Thresh: th.TotalPPS,
		})
	}

	return reasons
}
