package marketstream

import (
	"context"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
)

func update(symbol, tf string, bucket time.Time, close float64) *models.CandleUpdate {
	return &models.CandleUpdate{
		Symbol:    symbol,
		Timeframe: tf,
		Candle: models.Candle{
			Bucket: bucket,
			Symbol: symbol,
			Open:   close, High: close, Low: close, Close: close,
			Volume: 1,
		},
	}
}

func TestCandleBufferAppendsAndTrims(t *testing.T) {
	b := NewCandleBuffer(3)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b.Apply(update("BTCUSDT", "1h", base.Add(time.Duration(i)*time.Hour), float64(100+i)))
	}

	got, err := b.GetRecent(context.Background(), "BTCUSDT", drepo.TF1h, 10)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("window length = %d, want capacity 3", len(got))
	}
	if got[0].Close != 102 || got[2].Close != 104 {
		t.Fatalf("window not trimmed oldest-first: %+v", got)
	}
}

func TestCandleBufferReplacesFormingCandle(t *testing.T) {
	b := NewCandleBuffer(10)
	bucket := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Apply(update("ETHUSDT", "1h", bucket, 3000))
	b.Apply(update("ETHUSDT", "1h", bucket, 3010))

	got, _ := b.GetRecent(context.Background(), "ETHUSDT", drepo.TF1h, 10)
	if len(got) != 1 {
		t.Fatalf("same bucket must replace, not append: %d candles", len(got))
	}
	if got[0].Close != 3010 {
		t.Fatalf("latest update should win, close = %v", got[0].Close)
	}
}

func TestCandleBufferPairsAreIsolated(t *testing.T) {
	b := NewCandleBuffer(10)
	bucket := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Apply(update("BTCUSDT", "1h", bucket, 100))
	b.Apply(update("BTCUSDT", "4h", bucket, 101))

	oneHour, _ := b.GetRecent(context.Background(), "BTCUSDT", drepo.TF1h, 10)
	fourHour, _ := b.GetRecent(context.Background(), "BTCUSDT", drepo.TF4h, 10)
	if len(oneHour) != 1 || len(fourHour) != 1 {
		t.Fatalf("windows leaked across timeframes: %d/%d", len(oneHour), len(fourHour))
	}
	if oneHour[0].Close == fourHour[0].Close {
		t.Fatal("timeframe windows should be independent")
	}
}

func TestMapKlineWireFormat(t *testing.T) {
	m := wsMessage{
		Event:  "kline",
		Symbol: "BTCUSDT",
		Kline: wsKline{
			Start:    1748779200000,
			Symbol:   "BTCUSDT",
			Interval: "1h",
			Open:     "50000.5",
			High:     "50100",
			Low:      "49900",
			Close:    "50050.25",
			Volume:   "12.5",
			Closed:   true,
		},
	}
	got, err := mapKline(m)
	if err != nil {
		t.Fatalf("mapKline: %v", err)
	}
	if got.Symbol != "BTCUSDT" || got.Timeframe != "1h" || !got.Closed {
		t.Fatalf("mapped update: %+v", got)
	}
	if got.Candle.Open != 50000.5 || got.Candle.Close != 50050.25 || got.Candle.Volume != 12.5 {
		t.Fatalf("mapped candle: %+v", got.Candle)
	}

	m.Kline.Close = "garbage"
	if _, err := mapKline(m); err == nil {
		t.Fatal("unparseable price must error")
	}
}
