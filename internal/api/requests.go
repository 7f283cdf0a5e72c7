package api

// Subscription payload constructors for everything the client asks of
// the service. Each Client method issues the subscription and returns
// the fresh subscription identifier; the package-level constructors
// exist for callers that hand a set of payloads to Join.

// TimelineRequest asks for a page of the account event history. An empty
// cursor requests the first page; otherwise the page after the cursor.
func TimelineRequest(after string) map[string]any {
	payload := map[string]any{"type": "timeline"}
	if after != "" {
		payload["after"] = after
	}
	return payload
}

// TimelineDetailRequest asks for the detail payload of a single event.
func TimelineDetailRequest(eventID string) map[string]any {
	return map[string]any{"type": "timelineDetail", "id": eventID}
}

// CompactPortfolioRequest asks for the portfolio positions.
func CompactPortfolioRequest() map[string]any {
	return map[string]any{"type": "compactPortfolio"}
}

// CashRequest asks for the cash balances.
func CashRequest() map[string]any {
	return map[string]any{"type": "cash"}
}

// TickerRequest asks for price information on an exchange.
func TickerRequest(isin, exchange string) map[string]any {
	return map[string]any{"type": "ticker", "id": isin + "." + exchange}
}

// InstrumentRequest asks for the master data of an instrument.
func InstrumentRequest(isin string) map[string]any {
	return map[string]any{"type": "instrument", "id": isin}
}

// StockDetailsRequest asks for company information of an instrument.
func StockDetailsRequest(isin string) map[string]any {
	return map[string]any{"type": "stockDetails", "id": isin}
}

// NewsRequest asks for recent news on an instrument.
func NewsRequest(isin string) map[string]any {
	return map[string]any{"type": "neonNews", "isin": isin}
}

// PriceAlarmOverviewRequest asks for all configured price alarms.
func PriceAlarmOverviewRequest() map[string]any {
	return map[string]any{"type": "priceAlarms"}
}

// CreatePriceAlarmRequest sets a price alarm for an instrument.
func CreatePriceAlarmRequest(isin string, targetPrice float64) map[string]any {
	return map[string]any{
		"type":         "createPriceAlarm",
		"instrumentId": isin,
		"targetPrice":  targetPrice,
	}
}

// CancelPriceAlarmRequest cancels a price alarm by its id.
func CancelPriceAlarmRequest(alarmID string) map[string]any {
	return map[string]any{"type": "cancelPriceAlarm", "id": alarmID}
}

// SettingsRequest asks for the account settings.
func SettingsRequest() map[string]any {
	return map[string]any{"type": "settings"}
}

// Timeline requests a page of the account event history.
func (c *Client) Timeline(after string) (int, error) {
	return c.Subscribe(TimelineRequest(after))
}

// TimelineDetail requests the detail payload for a single timeline event.
func (c *Client) TimelineDetail(eventID string) (int, error) {
	return c.Subscribe(TimelineDetailRequest(eventID))
}

// CompactPortfolio requests the portfolio positions.
func (c *Client) CompactPortfolio() (int, error) {
	return c.Subscribe(CompactPortfolioRequest())
}

// Cash requests the cash balances.
func (c *Client) Cash() (int, error) {
	return c.Subscribe(CashRequest())
}

// Ticker requests price information for an instrument on an exchange.
func (c *Client) Ticker(isin, exchange string) (int, error) {
	return c.Subscribe(TickerRequest(isin, exchange))
}

// InstrumentDetails requests the master data of an instrument.
func (c *Client) InstrumentDetails(isin string) (int, error) {
	return c.Subscribe(InstrumentRequest(isin))
}

// StockDetails requests company information for an instrument.
func (c *Client) StockDetails(isin string) (int, error) {
	return c.Subscribe(StockDetailsRequest(isin))
}

// News requests recent news for an instrument.
func (c *Client) News(isin string) (int, error) {
	return c.Subscribe(NewsRequest(isin))
}

// PriceAlarmOverview requests all configured price alarms.
func (c *Client) PriceAlarmOverview() (int, error) {
	return c.Subscribe(PriceAlarmOverviewRequest())
}

// CreatePriceAlarm sets a price alarm for an instrument.
func (c *Client) CreatePriceAlarm(isin string, targetPrice float64) (int, error) {
	return c.Subscribe(CreatePriceAlarmRequest(isin, targetPrice))
}

// CancelPriceAlarm cancels a price alarm by its id.
func (c *Client) CancelPriceAlarm(alarmID string) (int, error) {
	return c.Subscribe(CancelPriceAlarmRequest(alarmID))
}

// Settings requests the account settings.
func (c *Client) Settings() (int, error) {
	return c.Subscribe(SettingsRequest())
}
