package viewmodel

import (
	"time"

	"github.com/i474232898/weather-companion/internal/weather"
)

// State is what the view layer renders. Values handed out are copies.
type State struct {
	Page       int                      `json:"page"`
	Loading    bool                     `json:"loading"`
	Locations  []weather.Location       `json:"locations"`
	Weather    map[int]weather.Snapshot `json:"weather"`
	Background weather.Color            `json:"background"`
	Cycle      string                   `json:"cycle"`
	UpdatedAt  time.Time                `json:"updatedAt"`
}

func (s State) clone() State {
	out := s
	out.Locations = append([]weather.Location(nil), s.Locations...)
	out.Weather = make(map[int]weather.Snapshot, len(s.Weather))
	for k, v := range s.Weather {
		out.Weather[k] = v
	}
	return out
}

// Card is one page of the pager.
type Card struct {
	Index       int               `json:"index"`
	Location    weather.Location  `json:"location"`
	Placeholder bool              `json:"placeholder"`
	Weather     *weather.Snapshot `json:"weather"`
	Color       weather.Color     `json:"color"`
}

// Cards lays the state out as pager cards, one per location, in list order.
func (s State) Cards() []Card {
	cards := make([]Card, 0, len(s.Locations))
	for i, loc := range s.Locations {
		c := Card{
			Index:       i,
			Location:    loc,
			Placeholder: loc.IsPlaceholder(),
		}
		if snap, ok := s.Weather[loc.Idx]; ok && !loc.IsPlaceholder() {
			snap := snap
			c.Weather = &snap
		}
		c.Color = weather.ColorForSnapshot(c.Weather)
		cards = append(cards, c)
	}
	return cards
}

// arrangeLocations orders persisted rows for display: the first row without
// a DBIndex leads, later unindexed rows are dropped, indexed rows follow in
// Idx order, and the placeholder closes the list.
func arrangeLocations(rows []weather.Location) []weather.Location {
	out := make([]weather.Location, 0, len(rows)+1)
	for _, r := range rows {
		if r.IsPending() && !r.IsPlaceholder() {
			out = append(out, r)
			break
		}
	}
	for _, r := range rows {
		if r.IsPending() || r.IsPlaceholder() {
			continue
		}
		out = append(out, r)
	}
	return append(out, weather.NewPlaceholder())
}
