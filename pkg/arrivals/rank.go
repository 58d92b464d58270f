// Package arrivals orders arrival predictions and decides which of them should alert a subscriber.
package arrivals

import (
	"github.com/travigo/busalert/pkg/ctdf"
	"golang.org/x/exp/slices"
)

const timeFormat = "03:04 PM"

// Rank returns a copy of predictions sorted by arrival time. Equal times keep their input order.
func Rank(predictions []ctdf.ArrivalPrediction) []ctdf.ArrivalPrediction {
	ranked := slices.Clone(predictions)

	slices.SortStableFunc(ranked, func(a, b ctdf.ArrivalPrediction) int {
		return a.ArrivalTime.Compare(b.ArrivalTime)
	})

	return ranked
}

// Next returns the first n ranked predictions.
func Next(predictions []ctdf.ArrivalPrediction, n int) []ctdf.ArrivalPrediction {
	ranked := Rank(predictions)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	return ranked
}

func Format(prediction ctdf.ArrivalPrediction) string {
	return prediction.ArrivalTime.Format(timeFormat)
}
