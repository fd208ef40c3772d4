package service

// DTO под ответы IG. Наружу из пакета уходят только типы internal/models —
// маппинг делается в методах клиента.

type marketResponse struct {
	Instrument struct {
		Name         string  `json:"name"`
		Epic         string  `json:"epic"`
		MarginFactor float64 `json:"marginFactor"`
	} `json:"instrument"`
	DealingRules struct {
		MinDealSize struct {
			Value float64 `json:"value"`
		} `json:"minDealSize"`
	} `json:"dealingRules"`
	Snapshot struct {
		Bid          *float64 `json:"bid"`
		Offer        *float64 `json:"offer"`
		MarketStatus string   `json:"marketStatus"`
	} `json:"snapshot"`
}

type pricesResponse struct {
	Prices []struct {
		SnapshotTime string    `json:"snapshotTime"`
		OpenPrice    pricePair `json:"openPrice"`
		ClosePrice   pricePair `json:"closePrice"`
		HighPrice    pricePair `json:"highPrice"`
		LowPrice     pricePair `json:"lowPrice"`
	} `json:"prices"`
}

type pricePair struct {
	Bid *float64 `json:"bid"`
	Ask *float64 `json:"ask"`
}

type dealReferenceResponse struct {
	DealReference string `json:"dealReference"`
}

type confirmResponse struct {
	DealStatus    string `json:"dealStatus"`
	Reason        string `json:"reason"`
	DealID        string `json:"dealId"`
	DealReference string `json:"dealReference"`
	Status        string `json:"status"`
}

type workingOrdersResponse struct {
	WorkingOrders []struct {
		WorkingOrderData struct {
			DealID    string  `json:"dealId"`
			Direction string  `json:"direction"`
			OrderSize float64 `json:"orderSize"`
			Level     float64 `json:"orderLevel"`
			Type      string  `json:"orderType"`
		} `json:"workingOrderData"`
		MarketData struct {
			Epic string `json:"epic"`
		} `json:"marketData"`
	} `json:"workingOrders"`
}

type positionsResponse struct {
	Positions []struct {
		Position struct {
			DealID    string  `json:"dealId"`
			Direction string  `json:"direction"`
			Size      float64 `json:"size"`
			DealSize  float64 `json:"dealSize"`
			OpenLevel float64 `json:"openLevel"`
			StopLevel float64 `json:"stopLevel"`
		} `json:"position"`
		Market struct {
			Epic  string  `json:"epic"`
			Bid   float64 `json:"bid"`
			Offer float64 `json:"offer"`
		} `json:"market"`
	} `json:"positions"`
}

type accountsResponse struct {
	Accounts []struct {
		AccountID string `json:"accountId"`
		Balance   struct {
			Balance    float64 `json:"balance"`
			Available  float64 `json:"available"`
			Deposit    float64 `json:"deposit"`
			ProfitLoss float64 `json:"profitLoss"`
		} `json:"balance"`
	} `json:"accounts"`
}

type marketSearchResponse struct {
	Markets []struct {
		Epic           string   `json:"epic"`
		InstrumentName string   `json:"instrumentName"`
		Expiry         string   `json:"expiry"`
		Bid            *float64 `json:"bid"`
		Offer          *float64 `json:"offer"`
	} `json:"markets"`
}
