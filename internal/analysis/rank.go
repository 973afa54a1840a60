package analysis

import (
	"sort"

	"critical-duration/internal/model"
)

// RankedEvent pairs an event with its position in the detection-order table.
type RankedEvent struct {
	model.Event
	Rank  int `json:"rank"`
	Index int `json:"index"`
}

// RankByPeak orders events by peak, largest first. Equal peaks keep detection order.
func RankByPeak(evs model.Population) []RankedEvent {
	out := make([]RankedEvent, 0, len(evs))
	for i, e := range evs {
		out = append(out, RankedEvent{Event: e, Index: i})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Peak > out[j].Peak
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
