// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

package ingest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cryptogains/internal/engine"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseFile(t *testing.T) {
	txs, err := ParseFile("testdata/sample.csv", zerolog.Nop())
	require.NoError(t, err)

	// 8 data rows; the Vault Withdrawal row is rejected.
	require.Len(t, txs, 7)

	buy := txs[0]
	require.Equal(t, engine.KindBuy, buy.Kind)
	require.Equal(t, "BTC", buy.Asset)
	require.True(t, buy.Quantity.Equal(d("0.5")))
	require.True(t, buy.Value.Equal(d("20100")), "buy value is the fee-inclusive total")
	require.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), buy.Timestamp)

	receive := txs[1]
	require.Equal(t, engine.KindReceive, receive.Kind)
	require.True(t, receive.Value.Equal(d("5000")), "receive is valued at quantity x spot")

	earn := txs[2]
	require.Equal(t, engine.KindIncome, earn.Kind)
	require.Equal(t, "ALGO", earn.Asset)
	require.True(t, earn.Value.Equal(d("2.5")))

	sell := txs[3]
	require.Equal(t, engine.KindSell, sell.Kind)
	require.True(t, sell.Value.Equal(d("9950")), "sell proceeds come from the total column")

	send := txs[4]
	require.Equal(t, engine.KindSell, send.Kind)
	require.True(t, send.Value.Equal(d("4800")), "send proceeds are quantity x spot")

	convert := txs[5]
	require.Equal(t, engine.KindConvert, convert.Kind)
	require.Equal(t, "ETH", convert.Asset)
	require.True(t, convert.Value.Equal(d("3000")), "convert proceeds come from the subtotal")
	require.Equal(t, "ALGO", convert.TargetAsset)
	require.True(t, convert.TargetQuantity.Equal(d("120")))
	require.True(t, convert.TargetBasis.Equal(d("3000")))

	reward := txs[6]
	require.Equal(t, engine.KindIncome, reward.Kind)
	require.Equal(t, "DOT", reward.Asset)
	require.True(t, reward.Value.Equal(d("9")))
}

func TestClassify(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		row      []string
		wantKind engine.Kind
		wantVal  string
		rejected bool
	}{
		{
			name:     "buy uses total",
			row:      []string{"", "Buy", "BTC", "1.0", "100", "99", "101", "2", ""},
			wantKind: engine.KindBuy,
			wantVal:  "101",
		},
		{
			name:     "zero value buy is income at spot",
			row:      []string{"", "Buy", "BTC", "0.001", "30000", "0.00", "0.00", "0.00", ""},
			wantKind: engine.KindIncome,
			wantVal:  "30",
		},
		{
			name:     "paid is a disposal at spot",
			row:      []string{"", "Paid for an order", "BTC", "0.2", "100", "", "", "", ""},
			wantKind: engine.KindSell,
			wantVal:  "20",
		},
		{
			name:     "rewards income",
			row:      []string{"", "Rewards Income", "SOL", "0.5", "20", "10", "10", "0", ""},
			wantKind: engine.KindIncome,
			wantVal:  "10",
		},
		{
			name:     "staking income falls back to spot",
			row:      []string{"", "Staking Income", "SOL", "0.5", "20", "", "", "", ""},
			wantKind: engine.KindIncome,
			wantVal:  "10",
		},
		{
			name:     "currency symbols are tolerated",
			row:      []string{"", "Sell", "BTC", "1.0", "$40000.00", "$39000.00", "$38,950.00", "$50.00", ""},
			wantKind: engine.KindSell,
			wantVal:  "38950",
		},
		{
			name:     "unknown type is rejected",
			row:      []string{"", "Vault Deposit", "BTC", "1.0", "100", "", "", "", ""},
			rejected: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := classify(tt.row, ts)
			if tt.rejected {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			require.Equal(t, tt.wantKind, tx.Kind)
			require.True(t, tx.Value.Equal(d(tt.wantVal)), "value %s, want %s", tx.Value, tt.wantVal)
		})
	}
}

func TestClassifyConvertWithBadNote(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := []string{"", "Convert", "ETH", "1.0", "3000", "3000", "2985", "15", "swapped some coins"}
	tx, ok := classify(row, ts)
	require.True(t, ok)
	require.Equal(t, engine.KindConvert, tx.Kind)
	require.Empty(t, tx.TargetAsset, "unparseable note must leave the target leg empty")
}

func TestParseConvertNote(t *testing.T) {
	quantity, asset, ok := parseConvertNote("Converted 1.00000000 ETH to 120.00000000 ALGO")
	require.True(t, ok)
	require.Equal(t, "ALGO", asset)
	require.True(t, quantity.Equal(d("120")))

	_, _, ok = parseConvertNote("no conversion here")
	require.False(t, ok)
}

func TestMergeSort(t *testing.T) {
	ts := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }
	a := []engine.Transaction{
		{Timestamp: ts(3), Asset: "BTC"},
		{Timestamp: ts(9), Asset: "BTC"},
	}
	b := []engine.Transaction{
		{Timestamp: ts(1), Asset: "ETH"},
		{Timestamp: ts(3), Asset: "ETH"},
	}
	merged := MergeSort(a, b)
	require.Len(t, merged, 4)
	require.Equal(t, "ETH", merged[0].Asset)
	// Stable: the same-instant BTC row from the first batch stays first.
	require.Equal(t, "BTC", merged[1].Asset)
	require.Equal(t, "ETH", merged[2].Asset)
	require.Equal(t, "BTC", merged[3].Asset)
}

func TestFilterAssets(t *testing.T) {
	txs := []engine.Transaction{
		{Asset: "BTC"},
		{Asset: "ETH"},
		{Asset: "ALGO"},
	}
	require.Equal(t, txs, FilterAssets(txs, nil))

	filtered := FilterAssets(txs, []string{" btc", "algo"})
	require.Len(t, filtered, 2)
	require.Equal(t, "BTC", filtered[0].Asset)
	require.Equal(t, "ALGO", filtered[1].Asset)
}
