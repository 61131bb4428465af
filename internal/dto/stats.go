package dto

// TerminalStat is the number of orders a terminal marked ready.
type TerminalStat struct {
	TerminalName string `json:"terminal_name"`
	OrdersCount  int64  `json:"orders_count"`
}

// DailyStatsResponse is the body of GET /stats/orders/daily.
type DailyStatsResponse struct {
	Date          string         `json:"date"`
	TerminalStats []TerminalStat `json:"terminal_stats"`
}

// TopItemResponse is one entry of the best-seller ranking.
type TopItemResponse struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	NameEN     string `json:"name_en"`
	SoldCount  int64  `json:"sold_count"`
}
