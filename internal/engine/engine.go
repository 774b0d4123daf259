// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

// Package engine realizes capital gains and ordinary income over an ordered
// stream of transaction records, matching disposals against acquisition lots
// FIFO per asset.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cryptogains/internal/ledger"
)

// Kind is the closed set of operations the engine understands. Raw input
// strings are classified by the ingestion layer; the engine never branches
// on strings.
type Kind int

const (
	// KindBuy acquires units for USD; the cost sets the lot basis.
	KindBuy Kind = iota
	// KindReceive acquires units from outside at their fair value. Sets
	// basis like a buy but is not income.
	KindReceive
	// KindSell disposes units for USD proceeds (sell, paid, send).
	KindSell
	// KindIncome acquires units as taxable income at their receipt value.
	KindIncome
	// KindConvert exchanges one asset directly for another.
	KindConvert
)

func (k Kind) String() string {
	switch k {
	case KindBuy:
		return "buy"
	case KindReceive:
		return "receive"
	case KindSell:
		return "sell"
	case KindIncome:
		return "income"
	case KindConvert:
		return "convert"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Transaction is one validated input event, already classified and sorted
// chronologically by the ingestion layer.
type Transaction struct {
	Timestamp time.Time
	Kind      Kind
	Asset     string
	Quantity  decimal.Decimal
	// Value is the USD amount of the operation: cost for buys, fair value
	// for receives and income, proceeds for sells and conversions.
	Value decimal.Decimal

	// Conversion target leg, set only for KindConvert.
	TargetAsset    string
	TargetQuantity decimal.Decimal
	TargetBasis    decimal.Decimal
}

// MalformedConversionError is returned when a conversion's target leg cannot
// be determined. No ledger mutation has occurred when it is returned.
type MalformedConversionError struct {
	Timestamp time.Time
	Reason    string
}

func (e *MalformedConversionError) Error() string {
	return fmt.Sprintf("engine: malformed conversion at %s: %s",
		e.Timestamp.Format(time.RFC3339), e.Reason)
}

// Engine owns the lot ledger and the result collections for one run.
// Transactions must be processed in chronological order; the engine is not
// safe for concurrent use.
type Engine struct {
	ledger *ledger.LotLedger
	gains  []RealizedGain
	income []IncomeEvent
	log    zerolog.Logger
}

// New creates an engine with an empty ledger.
func New(log zerolog.Logger) *Engine {
	return &Engine{
		ledger: ledger.NewLotLedger(),
		log:    log,
	}
}

// Process dispatches each transaction in order and stops at the first
// failure, wrapping the error with the offending transaction's timestamp,
// kind, quantity and asset.
func (e *Engine) Process(txs []Transaction) error {
	for _, tx := range txs {
		var err error
		switch tx.Kind {
		case KindBuy, KindReceive:
			err = e.Acquire(tx.Asset, tx.Timestamp, tx.Quantity, tx.Value)
		case KindSell:
			_, err = e.Dispose(tx.Asset, tx.Timestamp, tx.Quantity, tx.Value)
		case KindIncome:
			_, err = e.RecordIncome(tx.Timestamp, tx.Asset, tx.Quantity, tx.Value)
		case KindConvert:
			_, err = e.Convert(tx.Timestamp, tx.Asset, tx.Quantity, tx.Value,
				tx.TargetAsset, tx.TargetQuantity, tx.TargetBasis)
		default:
			err = fmt.Errorf("engine: unhandled transaction kind %s", tx.Kind)
		}
		if err != nil {
			return fmt.Errorf("%s %s %s %s: %w",
				tx.Timestamp.Format(time.RFC3339), tx.Kind, tx.Quantity, tx.Asset, err)
		}
	}
	return nil
}

// Acquire opens a new lot of quantity units for totalUSD.
func (e *Engine) Acquire(asset string, acquired time.Time, quantity, totalUSD decimal.Decimal) error {
	if err := e.ledger.Acquire(asset, acquired, quantity, totalUSD); err != nil {
		return err
	}
	e.log.Debug().
		Time("time", acquired).
		Str("asset", asset).
		Stringer("quantity", quantity).
		Stringer("cost", totalUSD).
		Msg("acquire")
	return nil
}

// Dispose realizes gains for a disposal of quantity units against the
// asset's open lots and appends them to the run's realized-gains collection.
// The unit sale price is derived once from the aggregate proceeds and
// applied to every fragment; cost basis is per fragment, from the consumed
// lot's own unit cost.
func (e *Engine) Dispose(asset string, disposed time.Time, quantity, proceedsUSD decimal.Decimal) ([]RealizedGain, error) {
	if quantity.Sign() <= 0 {
		return nil, &ledger.InvalidQuantityError{Op: "dispose", Asset: asset, Quantity: quantity}
	}
	fragments, err := e.ledger.Consume(asset, quantity)
	if err != nil {
		return nil, err
	}

	unitPrice := proceedsUSD.Div(quantity)
	gains := make([]RealizedGain, 0, len(fragments))
	for _, frag := range fragments {
		proceeds := frag.Quantity.Mul(unitPrice)
		basis := frag.Quantity.Mul(frag.UnitCost)
		gain := RealizedGain{
			Asset:    asset,
			Quantity: frag.Quantity,
			Acquired: frag.Acquired,
			Disposed: disposed,
			Proceeds: proceeds,
			Basis:    basis,
			Gain:     proceeds.Sub(basis),
			Term:     ClassifyTerm(frag.Acquired, disposed),
		}
		gains = append(gains, gain)
		e.log.Debug().
			Time("acquired", gain.Acquired).
			Time("disposed", gain.Disposed).
			Str("asset", gain.Asset).
			Stringer("quantity", gain.Quantity).
			Stringer("basis", gain.Basis).
			Stringer("proceeds", gain.Proceeds).
			Stringer("gain", gain.Gain).
			Stringer("term", gain.Term).
			Msg("realized")
	}
	e.gains = append(e.gains, gains...)
	return gains, nil
}

// RecordIncome books a non-sale taxable acquisition. The received units are
// fed into the ledger at their income-date value, since income sets the cost
// basis for later disposal exactly as a purchase would.
func (e *Engine) RecordIncome(received time.Time, asset string, quantity, valueUSD decimal.Decimal) (IncomeEvent, error) {
	if err := e.ledger.Acquire(asset, received, quantity, valueUSD); err != nil {
		return IncomeEvent{}, err
	}
	event := IncomeEvent{
		Timestamp: received,
		Asset:     asset,
		Quantity:  quantity,
		Value:     valueUSD,
	}
	e.income = append(e.income, event)
	e.log.Debug().
		Time("time", received).
		Str("asset", asset).
		Stringer("quantity", quantity).
		Stringer("value", valueUSD).
		Msg("income")
	return event, nil
}

// Convert exchanges srcQuantity of srcAsset for tgtQuantity of tgtAsset: a
// disposal of the source for proceedsUSD followed by an acquisition of the
// target at tgtBasisUSD. Conversions are not income. The target leg is
// validated up front and the acquisition only runs after a successful
// disposal, so a failure leaves no partial mutation.
func (e *Engine) Convert(ts time.Time, srcAsset string, srcQuantity, proceedsUSD decimal.Decimal,
	tgtAsset string, tgtQuantity, tgtBasisUSD decimal.Decimal) ([]RealizedGain, error) {

	if strings.TrimSpace(tgtAsset) == "" {
		return nil, &MalformedConversionError{Timestamp: ts, Reason: "target asset is unknown"}
	}
	if tgtQuantity.Sign() <= 0 {
		return nil, &MalformedConversionError{
			Timestamp: ts,
			Reason:    fmt.Sprintf("target quantity %s is not positive", tgtQuantity),
		}
	}
	gains, err := e.Dispose(srcAsset, ts, srcQuantity, proceedsUSD)
	if err != nil {
		return nil, err
	}
	if err := e.Acquire(tgtAsset, ts, tgtQuantity, tgtBasisUSD); err != nil {
		return nil, err
	}
	return gains, nil
}

// Results returns the realized-gains and income collections accumulated so
// far. The returned records are read-only output for the reporting layer.
func (e *Engine) Results() Results {
	return Results{Gains: e.gains, Income: e.income}
}

// Balances returns the outstanding lot quantity per asset.
func (e *Engine) Balances() map[string]decimal.Decimal {
	return e.ledger.Balances()
}
