package model

type EventSales struct {
	EventId     string  `json:"eventId"`
	Title       string  `json:"title"`
	TicketsSold int     `json:"ticketsSold"`
	Revenue     float64 `json:"revenue"`
}

type Analytics struct {
	AdminId          string       `json:"adminId"`
	TotalTicketsSold int          `json:"totalTicketsSold"`
	TotalRevenue     float64      `json:"totalRevenue"`
	PerEvent         []EventSales `json:"perEvent"`
}
