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
 * Adapted from builder/messages.go for shadowtrader.
 */

package fixadapter

import (
	"time"

	"github.com/quickfixgo/quickfix"
)

// FieldSetter abstracts setting fields on FIX message components, matching
// the teacher's builder.FieldSetter.
type FieldSetter interface {
	SetField(tag quickfix.Tag, field quickfix.FieldValueWriter) *quickfix.FieldMap
}

func setString(fs FieldSetter, tag quickfix.Tag, value string) {
	fs.SetField(tag, quickfix.FIXString(value))
}

func buildHeader(header *quickfix.Header, msgType, senderCompId, targetCompId string) {
	setString(header, TagBeginString, FixBeginString)
	setString(header, TagMsgType, msgType)
	setString(header, TagSenderCompId, senderCompId)
	setString(header, TagTargetCompId, targetCompId)
	setString(header, TagSendingTime, time.Now().UTC().Format(FixTimeFormat))
}

// BuildLogon populates the Logon (A) body, including the HMAC signature
// Coinbase Prime's FIX gateway requires.
func BuildLogon(body *quickfix.Body, ts, apiKey, apiSecret, passphrase, targetCompId, portfolioId string) {
	sig := sign(ts, MsgTypeLogon, MsgSeqNumInit, apiKey, targetCompId, passphrase, apiSecret)

	setString(body, TagEncryptMethod, EncryptMethodNone)
	setString(body, TagHeartBtInt, HeartBtInterval)
	setString(body, TagPassword, passphrase)
	setString(body, TagAccount, portfolioId)
	setString(body, TagHmac, sig)
	setString(body, TagAccessKey, apiKey)
	setString(body, TagDropCopyFlag, DropCopyFlagYes)
}

// BuildMarketDataRequest constructs a Market Data Request (V) message for
// one or more symbols. entryTypes is [Bid, Offer, Trade] for a depth
// subscribe and [Trade] for the adapter's other requests (tape-only
// subscribe, unsubscribe, tick-by-tick enable, depth disable).
func BuildMarketDataRequest(
	mdReqId string,
	symbols []string,
	subscriptionRequestType string,
	marketDepth string,
	senderCompId string,
	targetCompId string,
	mdEntryTypes []string,
) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, MsgTypeMarketDataRequest, senderCompId, targetCompId)

	setString(&m.Body, TagMdReqId, mdReqId)
	setString(&m.Body, TagSubscriptionRequestType, subscriptionRequestType)
	setString(&m.Body, TagMarketDepth, marketDepth)

	if subscriptionRequestType == SubscriptionRequestTypeSubscribe {
		setString(&m.Body, TagMdUpdateType, MdUpdateTypeIncremental)
	}

	mdEntryGroup := quickfix.NewRepeatingGroup(
		TagNoMdEntryTypes,
		quickfix.GroupTemplate{quickfix.GroupElement(TagMdEntryType)},
	)
	for _, entryType := range mdEntryTypes {
		setString(mdEntryGroup.Add(), TagMdEntryType, entryType)
	}
	m.Body.SetGroup(mdEntryGroup)

	relatedSymGroup := quickfix.NewRepeatingGroup(
		TagNoRelatedSym,
		quickfix.GroupTemplate{quickfix.GroupElement(TagSymbol)},
	)
	for _, symbol := range symbols {
		setString(relatedSymGroup.Add(), TagSymbol, symbol)
	}
	m.Body.SetGroup(relatedSymGroup)
	return m
}
