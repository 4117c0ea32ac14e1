// Package journal defines the audit record emitted once per decision,
// heartbeat, or universe update (SPEC_FULL.md §3 JournalEntry, §6 Journal
// sink contract) and a bounded, non-blocking sink that writes them as JSONL.
package journal

import "time"

const SchemaVersion = 2

// EntryType is one of the journal entry kinds spec.md §6 names.
type EntryType string

const (
	EntrySignal         EntryType = "Signal"
	EntryRejection       EntryType = "Rejection"
	EntryHeartbeat       EntryType = "Heartbeat"
	EntryUniverseUpdate  EntryType = "UniverseUpdate"
	EntryCanceled        EntryType = "Canceled"
)

// DecisionOutcome is the resolution carried by a Signal/Rejection entry.
type DecisionOutcome string

const (
	OutcomeAccepted DecisionOutcome = "Accepted"
	OutcomeRejected DecisionOutcome = "Rejected"
	OutcomePending  DecisionOutcome = "Pending"
	OutcomeCanceled DecisionOutcome = "Canceled"
	OutcomeNotReady DecisionOutcome = "NotReady"
)

// Side is a blueprint's trade direction, serialized as BUY/SELL. It is
// defined here so the journal package stays a leaf with no dependency on
// the decision pipeline.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Blueprint is the entry/stop/target triple recorded with an accepted
// signal, per spec.md §4.3 step 13.
type Blueprint struct {
	Direction Side    `json:"direction"`
	Entry     float64 `json:"entry"`
	Stop      float64 `json:"stop"`
	Target    float64 `json:"target"`
}

// ObservedMetrics is a thin, journal-facing projection of bookstate's
// MetricSnapshot — only the fields the decision trace and audit reader need,
// so the journal schema doesn't couple 1:1 to the internal feature set.
type ObservedMetrics struct {
	BestBid          float64 `json:"best_bid"`
	BestAsk          float64 `json:"best_ask"`
	Spread           float64 `json:"spread"`
	QueueImbalance   float64 `json:"queue_imbalance"`
	TapeAcceleration float64 `json:"tape_acceleration"`
	TradesIn3Sec     int     `json:"trades_in_3sec"`
	CumulativeVwap   float64 `json:"cumulative_vwap"`
}

// DecisionInputs carries the validator/filter scores that fed a decision.
type DecisionInputs struct {
	Confidence       float64 `json:"confidence"`
	VwapReclaimBonus float64 `json:"vwap_reclaim_bonus"`
	RankScore        float64 `json:"rank_score"`
}

// DecisionResult carries the final rank-decision outcome fields.
type DecisionResult struct {
	Outcome         DecisionOutcome `json:"outcome"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
}

// SystemMetrics carries the operational counters surfaced on the 60s
// heartbeat (spec.md §7 "operational counters are surfaced via heartbeat
// journal entries every 60s").
type SystemMetrics struct {
	ActiveSymbols        int `json:"active_symbols"`
	TotalLines           int `json:"total_lines"`
	DataQualityRejects   int `json:"data_quality_rejects"`
	JournalEntriesDropped int `json:"journal_entries_dropped"`
}

// UniverseUpdateFields carries the reconcile-pass summary for an
// EntryUniverseUpdate entry.
type UniverseUpdateFields struct {
	Active     []string `json:"active"`
	DepthSet   []string `json:"depth_set"`
	Evicted    []string `json:"evicted"`
	Subscribed []string `json:"subscribed"`
	TotalLines int      `json:"total_lines"`
}

// GateTrace records which gate a decision passed or failed through, for
// audit (spec.md §4.3: "a decision-trace that records exactly which gate it
// passed or failed").
type GateTrace struct {
	Gates []string `json:"gates"`
}

// Entry is JournalEntry: one append-only audit record. Nested fields are
// populated as applicable; unknown fields are tolerated by readers per
// spec.md §9 schema-evolution note, so this struct only ever grows.
type Entry struct {
	SchemaVersion int    `json:"schema_version"`
	SessionID     string `json:"session_id"`
	DecisionID    string `json:"decision_id"`

	EntryType       EntryType       `json:"entry_type"`
	DecisionOutcome DecisionOutcome `json:"decision_outcome,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`

	MarketTimestampUTC   time.Time `json:"market_timestamp_utc"`
	DecisionTimestampUTC time.Time `json:"decision_timestamp_utc"`

	TradingMode string `json:"trading_mode"`
	Symbol      string `json:"symbol"`

	ObservedMetrics *ObservedMetrics      `json:"observed_metrics,omitempty"`
	DecisionInputs  *DecisionInputs       `json:"decision_inputs,omitempty"`
	DecisionResult  *DecisionResult       `json:"decision_result,omitempty"`
	Blueprint       *Blueprint            `json:"blueprint,omitempty"`
	GateTrace       *GateTrace            `json:"gate_trace,omitempty"`
	SystemMetrics   *SystemMetrics        `json:"system_metrics,omitempty"`
	UniverseUpdate  *UniverseUpdateFields `json:"universe_update,omitempty"`
}
