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
 * Adapted from constants/constants.go for shadowtrader.
 */

// Package fixadapter is the reference feed.FeedAdapter implementation: it
// speaks a Coinbase-Prime-style FIX market-data session and turns Market
// Data Snapshot/Incremental Refresh messages into feed.DepthUpdate and
// feed.TradePrint events. It is the "broker wire protocol" external
// collaborator named in SPEC_FULL.md §1, kept as a concrete, exercised
// adapter rather than an abstract stub. Order-entry and RFQ message types
// from the teacher this package is adapted from are not present here —
// this system never executes orders.
package fixadapter

import "github.com/quickfixgo/quickfix"

// --- Message Types ---
const (
	MsgTypeLogon                 = "A"
	MsgTypeReject                = "3"
	MsgTypeBusinessReject        = "j"
	MsgTypeMarketDataReject      = "Y"
	MsgTypeMarketDataRequest     = "V"
	MsgTypeMarketDataSnapshot    = "W"
	MsgTypeMarketDataIncremental = "X"
)

// --- Protocol Constants ---
const (
	FixTimeFormat     = "20060102-15:04:05.000"
	FixBeginString    = "FIXT.1.1"
	EncryptMethodNone = "0"
	HeartBtInterval   = "30"
	DropCopyFlagYes   = "Y"
	MsgSeqNumInit     = "1"
)

// --- Subscription Request Types ---
const (
	SubscriptionRequestTypeSnapshot    = "0"
	SubscriptionRequestTypeSubscribe   = "1"
	SubscriptionRequestTypeUnsubscribe = "2"
)

// --- MD Entry Types ---
const (
	MdEntryTypeBid   = "0"
	MdEntryTypeOffer = "1"
	MdEntryTypeTrade = "2"
)

// --- MD Update Types ---
const (
	MdUpdateTypeFullRefresh = "0"
	MdUpdateTypeIncremental = "1"
)

// --- MD Update Action (incremental refresh op) ---
const (
	MdUpdateActionNew    = "0" // Insert
	MdUpdateActionChange = "1" // Update
	MdUpdateActionDelete = "2" // Delete
)

// --- MD Reject Reasons ---
const (
	MdReqRejReasonUnknownSymbol               = "0"
	MdReqRejReasonDuplicateMdReqId            = "1"
	MdReqRejReasonInsufficientBandwidth       = "2"
	MdReqRejReasonInsufficientPermission      = "3"
	MdReqRejReasonUnsupportedSubscriptionType = "4"
	MdReqRejReasonUnsupportedMarketDepth      = "5"
	MdReqRejReasonUnsupportedMdUpdateType     = "6"
	MdReqRejReasonUnsupportedMdEntryType      = "9"
	MdReqRejReasonOther                       = "99"
	// DepthIneligibleCode is the Coinbase Prime-specific reject text code
	// this adapter maps to feed.DepthIneligible.
	DepthIneligibleCode = "10092"
	// TickByTickCapCode is the Coinbase Prime-specific reject text code
	// this adapter maps to feed.TickByTickCapReached.
	TickByTickCapCode = "10190"
)

// --- Tags ---
const (
	TagAccount                 = quickfix.Tag(1)
	TagBeginString             = quickfix.Tag(8)
	TagHeartBtInt              = quickfix.Tag(108)
	TagMsgSeqNum               = quickfix.Tag(34)
	TagMsgType                 = quickfix.Tag(35)
	TagSenderCompId            = quickfix.Tag(49)
	TagSendingTime             = quickfix.Tag(52)
	TagSymbol                  = quickfix.Tag(55)
	TagText                    = quickfix.Tag(58)
	TagTargetCompId            = quickfix.Tag(56)
	TagEncryptMethod           = quickfix.Tag(98)
	TagPassword                = quickfix.Tag(554)
	TagMdReqId                 = quickfix.Tag(262)
	TagSubscriptionRequestType = quickfix.Tag(263)
	TagMarketDepth             = quickfix.Tag(264)
	TagMdUpdateType            = quickfix.Tag(265)
	TagNoMdEntryTypes          = quickfix.Tag(267)
	TagNoMdEntries             = quickfix.Tag(268)
	TagMdEntryType             = quickfix.Tag(269)
	TagMdEntryPx               = quickfix.Tag(270)
	TagMdEntrySize             = quickfix.Tag(271)
	TagMdEntryTime             = quickfix.Tag(273)
	TagMdReqRejReason          = quickfix.Tag(281)
	TagNoRelatedSym            = quickfix.Tag(146)
	TagMdEntryPositionNo       = quickfix.Tag(290)
	TagMdUpdateAction          = quickfix.Tag(279)
	TagHmac                    = quickfix.Tag(96)
	TagAccessKey               = quickfix.Tag(9407)
	TagDropCopyFlag            = quickfix.Tag(9406)
)
