// Package config defines the immutable knob structs that drive one
// shadow-trading session. Values are fixed at process start and never
// mutated afterward — per Design Note (d) in SPEC_FULL.md, a reconfigure
// is a restart, not a live update. This package owns only the shapes; the
// CLI/environment loader that populates them is an external collaborator
// and lives outside this repository.
package config

import "time"

// MarketData bounds the broker subscription line budget.
type MarketData struct {
	MaxLines            int
	MaxDepthSymbols      int
	TickByTickMaxSymbols int
	MinHold              time.Duration
	EnableDepth          bool
	EnableTape           bool
}

// DefaultMarketData returns the default market-data knob values.
func DefaultMarketData() MarketData {
	return MarketData{
		MaxLines:             95,
		MaxDepthSymbols:      3,
		TickByTickMaxSymbols: 6,
		MinHold:              5 * time.Minute,
		EnableDepth:          true,
		EnableTape:           true,
	}
}

// Universe bounds the candidate set size handed to the subscription manager.
type Universe struct {
	MaxActiveSymbols int
}

func DefaultUniverse() Universe {
	return Universe{MaxActiveSymbols: 30}
}

// Focus governs the depth-set rotation policy.
type Focus struct {
	MinDwell          time.Duration
	TapeIdle          time.Duration
	DepthIdle         time.Duration
	WarmupMinTrades   int
	MinScoreDeltaToSwap float64
}

func DefaultFocus() Focus {
	return Focus{
		MinDwell:            120 * time.Second,
		TapeIdle:            30 * time.Second,
		DepthIdle:           30 * time.Second,
		WarmupMinTrades:     3,
		MinScoreDeltaToSwap: 15,
	}
}

// TapeGate governs tape-readiness classification.
type TapeGate struct {
	WarmupMinTrades int
	WarmupWindow    time.Duration
	StaleWindow     time.Duration
}

func DefaultTapeGate() TapeGate {
	return TapeGate{
		WarmupMinTrades: 3,
		WarmupWindow:    10 * time.Second,
		StaleWindow:     5 * time.Second,
	}
}

// Blueprint holds the entry/stop/target multipliers. Open Question (b) in
// spec.md promotes these from fixed literals to configuration.
type Blueprint struct {
	StopMultiplier   float64
	TargetMultiplier float64
}

func DefaultBlueprint() Blueprint {
	return Blueprint{StopMultiplier: 4, TargetMultiplier: 8}
}

// ShadowTrading governs the coordinator pipeline's gates and thresholds.
type ShadowTrading struct {
	PostSignalMonitoringEnabled   bool
	TapeSlowdownThreshold         float64
	SpreadBlowoutThreshold        float64
	TapeWatchlistEnabled          bool
	TapeWatchlistRecheckInterval  time.Duration
	SignalEvaluationThrottle      time.Duration
	PostSignalGrace               time.Duration
	DuplicateSuppressionWindow    time.Duration
	MaxAcceptedPerHourPerSymbol   int
}

func DefaultShadowTrading() ShadowTrading {
	return ShadowTrading{
		PostSignalMonitoringEnabled:  true,
		TapeSlowdownThreshold:        0.5,
		SpreadBlowoutThreshold:       0.5,
		TapeWatchlistEnabled:         true,
		TapeWatchlistRecheckInterval: 5 * time.Second,
		SignalEvaluationThrottle:     250 * time.Millisecond,
		PostSignalGrace:              3 * time.Second,
		DuplicateSuppressionWindow:   10 * time.Minute,
		MaxAcceptedPerHourPerSymbol:  3,
	}
}

// Scarcity governs the ranking window and acceptance caps.
type Scarcity struct {
	RankWindow      time.Duration
	GlobalLimit     int
	GlobalWindow    time.Duration
	SymbolLimit     int
	SymbolCooldown  time.Duration
}

func DefaultScarcity() Scarcity {
	return Scarcity{
		RankWindow:     250 * time.Millisecond,
		GlobalLimit:    3,
		GlobalWindow:   time.Hour,
		SymbolLimit:    1,
		SymbolCooldown: 10 * time.Minute,
	}
}

// Broker configures the FIX session's connection health monitoring.
type Broker struct {
	Host                        string
	Port                        int
	ClientID                    string
	DisconnectThreshold         time.Duration
	DisconnectCheckInterval     time.Duration
	CallTimeout                 time.Duration
	DepthIneligibleCooldown     time.Duration
	TickByTickCapCooldown       time.Duration
}

func DefaultBroker() Broker {
	return Broker{
		DisconnectThreshold:     10 * time.Second,
		DisconnectCheckInterval: 10 * time.Second,
		CallTimeout:             5 * time.Second,
		DepthIneligibleCooldown: 24 * time.Hour,
		TickByTickCapCooldown:   30 * time.Minute,
	}
}

// TradingMode selects which outbound collaborators are active for a run.
type TradingMode string

const (
	ModeShadow  TradingMode = "Shadow"
	ModePreview TradingMode = "Preview"
	ModeRecord  TradingMode = "Record"
	ModeReplay  TradingMode = "Replay"
)

// Orchestrator governs the background timer loops.
type Orchestrator struct {
	ReconcileInterval   time.Duration
	HealthCheckInterval time.Duration
	ScarcityFlushInterval time.Duration

	// ReconnectMinBackoff/ReconnectMaxBackoff bound the exponential backoff
	// the health-check loop applies to reconnect polling while the broker
	// session is down (spec.md §7's broker-disconnect row: "trigger
	// reconnect with exponential backoff").
	ReconnectMinBackoff time.Duration
	ReconnectMaxBackoff time.Duration
}

func DefaultOrchestrator() Orchestrator {
	return Orchestrator{
		ReconcileInterval:     60 * time.Second,
		HealthCheckInterval:   10 * time.Second,
		ScarcityFlushInterval: 50 * time.Millisecond,
		ReconnectMinBackoff:   1 * time.Second,
		ReconnectMaxBackoff:   60 * time.Second,
	}
}

// Config aggregates every immutable knob for one session. Construct once
// with Default and override fields before passing to the components that
// need them; never mutate after the session starts.
type Config struct {
	SessionID     string
	TradingMode   TradingMode
	MarketData    MarketData
	Universe      Universe
	Focus         Focus
	TapeGate      TapeGate
	Blueprint     Blueprint
	ShadowTrading ShadowTrading
	Scarcity      Scarcity
	Broker        Broker
	Orchestrator  Orchestrator
}

// Default returns a fully populated Config using every Default* above.
func Default(sessionID string) Config {
	return Config{
		SessionID:     sessionID,
		TradingMode:   ModeShadow,
		MarketData:    DefaultMarketData(),
		Universe:      DefaultUniverse(),
		Focus:         DefaultFocus(),
		TapeGate:      DefaultTapeGate(),
		Blueprint:     DefaultBlueprint(),
		ShadowTrading: DefaultShadowTrading(),
		Scarcity:      DefaultScarcity(),
		Broker:        DefaultBroker(),
		Orchestrator:  DefaultOrchestrator(),
	}
}
