package booking

import "event-ticketing/model"

// Summarize totals tickets sold and revenue per event. Attendees whose event
// is not in events are ignored.
func Summarize(events []model.Event, attendees []model.Attendee, pricing Pricing) model.Analytics {
	report := model.Analytics{PerEvent: make([]model.EventSales, 0, len(events))}

	index := make(map[string]int, len(events))
	for i, event := range events {
		index[event.Id] = i
		report.PerEvent = append(report.PerEvent, model.EventSales{
			EventId: event.Id,
			Title:   event.Title,
		})
	}

	for _, attendee := range attendees {
		i, ok := index[attendee.EventId]
		if !ok {
			continue
		}
		price := events[i].TicketPrice
		if pricing == PricingBooked {
			price = attendee.TicketPrice
		}
		revenue := float64(attendee.NumberOfTickets) * price

		report.PerEvent[i].TicketsSold += attendee.NumberOfTickets
		report.PerEvent[i].Revenue += revenue
		report.TotalTicketsSold += attendee.NumberOfTickets
		report.TotalRevenue += revenue
	}

	return report
}
