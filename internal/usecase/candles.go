package usecase

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// CandlesUseCase provides business logic for retrieving candle windows.
type CandlesUseCase struct {
	provider domrepo.CandleProvider
}

func NewCandlesUseCase(provider domrepo.CandleProvider) *CandlesUseCase {
	return &CandlesUseCase{provider: provider}
}

type GetCandlesParams struct {
	Symbol    string
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetCandlesResult struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Timeframe == "" {
		p.Timeframe = domrepo.TF1h
	}
	if p.Limit <= 0 {
		p.Limit = 200
	}
	if p.Limit > 5000 {
		p.Limit = 5000
	}

	candles, err := uc.provider.GetRecent(ctx, p.Symbol, p.Timeframe, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	return &GetCandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		Count:     len(candles),
		Candles:   candles,
	}, nil
}
