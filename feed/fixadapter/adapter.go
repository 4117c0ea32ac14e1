/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Adapted from fixclient/fixapp.go and fixclient/requests.go for shadowtrader.
 */

package fixadapter

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"shadowtrader/feed"

	"github.com/quickfixgo/quickfix"
)

// Config holds the FIX session credentials and identifiers. Modeled on the
// teacher's fixclient.Config; order-entry fields (no execution in this
// system) are not present.
type Config struct {
	ApiKey       string
	ApiSecret    string
	Passphrase   string
	SenderCompId string
	TargetCompId string
	PortfolioId  string
}

// Adapter is the reference feed.FeedAdapter implementation over a
// Coinbase-Prime-style FIX market-data session.
//
// HOT PATH — FromApp is called by quickfix for every incoming application
// message; it must stay on the fast path all the way through channel send.
type Adapter struct {
	cfg *Config

	sessionID   quickfix.SessionID
	hasSession  bool
	lastLogon   time.Time
	connectedMu sync.RWMutex
	connected   bool

	depthCh  chan feed.DepthUpdate
	tradeCh  chan feed.TradePrint
	errCh    chan feed.SubscriptionError

	mu          sync.Mutex
	reqSymbols  map[string]string // mdReqId -> symbol, for error correlation
}

// NewAdapter builds an Adapter. bufSize sizes the three outbound channels;
// a full channel means the orchestrator is falling behind, not a reason to
// block the FIX session thread, so sends are non-blocking with a drop+warn
// policy matching the journal sink's own bounded-queue discipline.
func NewAdapter(cfg *Config, bufSize int) *Adapter {
	return &Adapter{
		cfg:        cfg,
		depthCh:    make(chan feed.DepthUpdate, bufSize),
		tradeCh:    make(chan feed.TradePrint, bufSize),
		errCh:      make(chan feed.SubscriptionError, bufSize),
		reqSymbols: make(map[string]string),
	}
}

func (a *Adapter) Depth() <-chan feed.DepthUpdate       { return a.depthCh }
func (a *Adapter) Trades() <-chan feed.TradePrint        { return a.tradeCh }
func (a *Adapter) Errors() <-chan feed.SubscriptionError { return a.errCh }

func (a *Adapter) Connected() bool {
	a.connectedMu.RLock()
	defer a.connectedMu.RUnlock()
	return a.connected
}

func (a *Adapter) setConnected(v bool) {
	a.connectedMu.Lock()
	a.connected = v
	a.connectedMu.Unlock()
}

// --- quickfix.Application callbacks ---

func (a *Adapter) OnCreate(sid quickfix.SessionID) { a.sessionID = sid; a.hasSession = true }

func (a *Adapter) OnLogon(sid quickfix.SessionID) {
	a.sessionID = sid
	a.lastLogon = time.Now()
	a.setConnected(true)
	log.Println("fixadapter: logon", sid)
}

func (a *Adapter) OnLogout(sid quickfix.SessionID) {
	a.setConnected(false)
	log.Println("fixadapter: logout", sid)
}

func (a *Adapter) FromAdmin(_ *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (a *Adapter) ToApp(_ *quickfix.Message, _ quickfix.SessionID) error { return nil }

func (a *Adapter) ToAdmin(msg *quickfix.Message, _ quickfix.SessionID) {
	if t, _ := msg.Header.GetString(TagMsgType); t == MsgTypeLogon {
		ts := time.Now().UTC().Format(FixTimeFormat)
		BuildLogon(&msg.Body, ts, a.cfg.ApiKey, a.cfg.ApiSecret, a.cfg.Passphrase, a.cfg.TargetCompId, a.cfg.PortfolioId)
	}
}

// FromApp is the entry point for all application-level FIX messages.
// HOT PATH: single string comparison to route market-data messages.
func (a *Adapter) FromApp(msg *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	t, _ := msg.Header.GetString(TagMsgType)
	switch t {
	case MsgTypeMarketDataSnapshot, MsgTypeMarketDataIncremental:
		a.handleMarketDataMessage(msg, t == MsgTypeMarketDataSnapshot)
	case MsgTypeMarketDataReject:
		a.handleMarketDataReject(msg)
	default:
		log.Printf("fixadapter: received application message type %s", t)
	}
	return nil
}

func getString(msg *quickfix.Message, tag quickfix.Tag) string {
	v, _ := msg.Body.GetString(tag)
	return v
}

// handleMarketDataMessage parses one Snapshot/Incremental message and
// emits normalized feed.DepthUpdate / feed.TradePrint events.
//
// HOT PATH: parse -> classify -> non-blocking channel send.
func (a *Adapter) handleMarketDataMessage(msg *quickfix.Message, isSnapshot bool) {
	symbol := getString(msg, TagSymbol)
	rawMsg := msg.String()
	entries := extractEntries(rawMsg)
	if len(entries) == 0 {
		return
	}

	recv := time.Now()
	for _, e := range entries {
		eventTS := parseEventTime(e.Time, recv)
		switch e.EntryType {
		case MdEntryTypeBid, MdEntryTypeOffer:
			side := feed.Bid
			if e.EntryType == MdEntryTypeOffer {
				side = feed.Ask
			}
			op := classifyOp(isSnapshot, e.UpdateAction)
			du := feed.DepthUpdate{
				Symbol:  symbol,
				Side:    side,
				Op:      op,
				Level:   parseInt(e.Position),
				Price:   parseFloat(e.Price),
				Size:    parseFloat(e.Size),
				EventTS: eventTS,
				RecvTS:  recv,
			}
			a.sendDepth(du)
		case MdEntryTypeTrade:
			tp := feed.TradePrint{
				Symbol:  symbol,
				Price:   parseFloat(e.Price),
				Size:    parseFloat(e.Size),
				EventTS: eventTS,
				RecvTS:  recv,
			}
			a.sendTrade(tp)
		}
	}
}

func classifyOp(isSnapshot bool, updateAction string) feed.Op {
	if isSnapshot {
		return feed.Insert
	}
	switch updateAction {
	case MdUpdateActionNew:
		return feed.Insert
	case MdUpdateActionDelete:
		return feed.Delete
	default:
		return feed.Update
	}
}

func parseEventTime(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	if t, err := time.Parse(FixTimeFormat, raw); err == nil {
		return t
	}
	return fallback
}

func (a *Adapter) sendDepth(du feed.DepthUpdate) {
	select {
	case a.depthCh <- du:
	default:
		log.Printf("fixadapter: depth channel full, dropping update for %s", du.Symbol)
	}
}

func (a *Adapter) sendTrade(tp feed.TradePrint) {
	select {
	case a.tradeCh <- tp:
	default:
		log.Printf("fixadapter: trade channel full, dropping print for %s", tp.Symbol)
	}
}

// handleMarketDataReject maps a Market Data Request Reject (Y) into the
// abstract feed.SubscriptionError taxonomy and forwards it.
func (a *Adapter) handleMarketDataReject(msg *quickfix.Message) {
	mdReqId := getString(msg, TagMdReqId)
	text := getString(msg, TagText)

	a.mu.Lock()
	symbol := a.reqSymbols[mdReqId]
	a.mu.Unlock()

	class := classifyRejectText(text)
	serr := feed.SubscriptionError{RequestID: mdReqId, Symbol: symbol, Class: class, Code: text, Message: text}
	select {
	case a.errCh <- serr:
	default:
		log.Printf("fixadapter: error channel full, dropping reject for reqId %s", mdReqId)
	}
}

// classifyRejectText maps Coinbase Prime's free-text reject codes to the
// three abstract error classes the core understands. Unrecognized codes
// map to TransientSubscription so the subscription manager retries rather
// than silently losing the symbol.
func classifyRejectText(text string) feed.ErrorClass {
	switch {
	case containsCode(text, DepthIneligibleCode):
		return feed.DepthIneligible
	case containsCode(text, TickByTickCapCode):
		return feed.TickByTickCapReached
	default:
		return feed.TransientSubscription
	}
}

func containsCode(text, code string) bool {
	for i := 0; i+len(code) <= len(text); i++ {
		if text[i:i+len(code)] == code {
			return true
		}
	}
	return false
}

// --- BrokerSession ---

// Subscribe sends a snapshot+subscribe Market Data Request for symbol.
// includeDepth requests full book depth (MarketDepth=0); otherwise only
// the trade entry type is requested.
func (a *Adapter) Subscribe(symbol string, includeDepth bool) (feed.SubscribeResult, error) {
	reqId := "md_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	entryTypes := []string{MdEntryTypeTrade}
	depth := "1"
	if includeDepth {
		entryTypes = []string{MdEntryTypeBid, MdEntryTypeOffer, MdEntryTypeTrade}
		depth = "0"
	}

	a.mu.Lock()
	a.reqSymbols[reqId] = symbol
	a.mu.Unlock()

	msg := BuildMarketDataRequest(reqId, []string{symbol}, SubscriptionRequestTypeSubscribe, depth, a.cfg.SenderCompId, a.cfg.TargetCompId, entryTypes)
	if err := quickfix.Send(msg); err != nil {
		return feed.SubscribeResult{}, fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	result := feed.SubscribeResult{MktDataID: reqId}
	if includeDepth {
		result.DepthID = reqId
	}
	return result, nil
}

func (a *Adapter) Unsubscribe(symbol string) error {
	reqId := "md_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	msg := BuildMarketDataRequest(reqId, []string{symbol}, SubscriptionRequestTypeUnsubscribe, "0", a.cfg.SenderCompId, a.cfg.TargetCompId, []string{MdEntryTypeTrade})
	if err := quickfix.Send(msg); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", symbol, err)
	}
	return nil
}

// EnableTickByTick requests the higher-resolution last-trade stream. On
// this wire protocol tick-by-tick rides on the same Market Data Request
// subscription as the trade entry type, so this re-issues a subscribe with
// just the Trade entry; a distinct wire message is a broker-specific
// detail other brokers may implement differently.
func (a *Adapter) EnableTickByTick(symbol string) (string, error) {
	res, err := a.Subscribe(symbol, false)
	if err != nil {
		return "", err
	}
	return res.MktDataID, nil
}

func (a *Adapter) DisableTickByTick(symbol string) error {
	return a.Unsubscribe(symbol)
}

func (a *Adapter) DisableDepth(symbol string) error {
	reqId := "md_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	msg := BuildMarketDataRequest(reqId, []string{symbol}, SubscriptionRequestTypeSubscribe, "1", a.cfg.SenderCompId, a.cfg.TargetCompId, []string{MdEntryTypeTrade})
	if err := quickfix.Send(msg); err != nil {
		return fmt.Errorf("disable depth %s: %w", symbol, err)
	}
	return nil
}
