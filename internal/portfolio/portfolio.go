// Package portfolio builds and renders the portfolio view: positions
// with live prices and resolved names, plus the cash balances.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ExploracuriousAlex/yapytr/internal/api"
)

// Broker is the subscription surface the portfolio view needs.
type Broker interface {
	Join(ctx context.Context, requests ...map[string]any) (map[string]json.RawMessage, error)
	Subscribe(payload map[string]any) (int, error)
	Unsubscribe(id int) error
	Receive(ctx context.Context) (int, api.Subscription, json.RawMessage, error)
}

// Position is one instrument holding. NetValue is resolved from the LSX
// ticker, Name from the instrument master data.
type Position struct {
	ISIN         string
	Name         string
	AverageBuyIn decimal.Decimal
	NetSize      decimal.Decimal
	NetValue     decimal.Decimal
}

// BuyCost is the position's cost basis, average buy-in times size.
func (p Position) BuyCost() decimal.Decimal {
	return p.AverageBuyIn.Mul(p.NetSize)
}

// CashBalance is one cash account balance.
type CashBalance struct {
	Amount   decimal.Decimal
	Currency string
}

// View is the assembled portfolio.
type View struct {
	Positions []Position
	Cash      []CashBalance
}

type compactPortfolio struct {
	Positions []struct {
		InstrumentID string          `json:"instrumentId"`
		NetSize      decimal.Decimal `json:"netSize"`
		AverageBuyIn decimal.Decimal `json:"averageBuyIn"`
	} `json:"positions"`
}

type tickerAnswer struct {
	Last struct {
		Price decimal.Decimal `json:"price"`
	} `json:"last"`
}

type instrumentAnswer struct {
	ShortName string `json:"shortName"`
}

type cashAnswer []struct {
	Amount     decimal.Decimal `json:"amount"`
	CurrencyID string          `json:"currencyId"`
}

// Fetch joins the portfolio and cash subscriptions, then resolves the
// live price and the display name of every position through one
// subscription per position.
func Fetch(ctx context.Context, logger *slog.Logger, broker Broker) (*View, error) {
	results, err := broker.Join(ctx, api.CompactPortfolioRequest(), api.CashRequest())
	if err != nil {
		return nil, err
	}

	var compact compactPortfolio
	if err := json.Unmarshal(results["compactPortfolio"], &compact); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio answer: %w", err)
	}
	var cash cashAnswer
	if err := json.Unmarshal(results["cash"], &cash); err != nil {
		return nil, fmt.Errorf("failed to decode cash answer: %w", err)
	}

	view := &View{}
	for _, pos := range compact.Positions {
		view.Positions = append(view.Positions, Position{
			ISIN:         pos.InstrumentID,
			NetSize:      pos.NetSize,
			AverageBuyIn: pos.AverageBuyIn,
		})
	}
	for _, c := range cash {
		view.Cash = append(view.Cash, CashBalance{Amount: c.Amount, Currency: c.CurrencyID})
	}

	err = resolveEach(ctx, logger, broker, view.Positions, "ticker",
		func(isin string) map[string]any { return api.TickerRequest(isin, "LSX") },
		func(pos *Position, payload json.RawMessage) error {
			var answer tickerAnswer
			if err := json.Unmarshal(payload, &answer); err != nil {
				return fmt.Errorf("failed to decode ticker answer: %w", err)
			}
			pos.NetValue = answer.Last.Price.Mul(pos.NetSize)
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = resolveEach(ctx, logger, broker, view.Positions, "instrument",
		func(isin string) map[string]any { return api.InstrumentRequest(isin) },
		func(pos *Position, payload json.RawMessage) error {
			var answer instrumentAnswer
			if err := json.Unmarshal(payload, &answer); err != nil {
				return fmt.Errorf("failed to decode instrument answer: %w", err)
			}
			pos.Name = answer.ShortName
			return nil
		})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// resolveEach opens one subscription per position and applies every
// answer of the wanted type to its position. Answers of other types are
// logged and their subscription left open for the other pass.
func resolveEach(
	ctx context.Context,
	logger *slog.Logger,
	broker Broker,
	positions []Position,
	wantType string,
	request func(isin string) map[string]any,
	apply func(pos *Position, payload json.RawMessage) error,
) error {
	pending := make(map[int]*Position, len(positions))
	for i := range positions {
		id, err := broker.Subscribe(request(positions[i].ISIN))
		if err != nil {
			return err
		}
		pending[id] = &positions[i]
	}

	for len(pending) > 0 {
		id, sub, payload, err := broker.Receive(ctx)
		if err != nil {
			return err
		}
		pos, ok := pending[id]
		if !ok || sub.Type != wantType {
			logger.Debug("unmatched subscription", "type", sub.Type, "id", id)
			continue
		}
		if err := broker.Unsubscribe(id); err != nil {
			return err
		}
		delete(pending, id)
		if err := apply(pos, payload); err != nil {
			return err
		}
	}
	return nil
}
