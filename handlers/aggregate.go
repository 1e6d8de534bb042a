// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"

	"github.com/knitandcalc/stash-server/models"
)

// InventoryTotals holds derived sums over a set of yarn items.
// Meters = numberOfSkeins × lengthPerSkein, grams = numberOfSkeins ×
// weightPerSkein. Items missing either factor contribute zero.
type InventoryTotals struct {
	Yarns  int
	Meters float64
	Grams  float64
}

// Add accumulates another total into this one.
func (t *InventoryTotals) Add(other InventoryTotals) {
	t.Yarns += other.Yarns
	t.Meters += other.Meters
	t.Grams += other.Grams
}

// TotalsForItems sums one stash's items.
func TotalsForItems(items []models.YarnItem) InventoryTotals {
	var totals InventoryTotals
	for _, item := range items {
		totals.Yarns++
		if item.NumberOfSkeins != nil && item.LengthPerSkein != nil {
			totals.Meters += *item.NumberOfSkeins * *item.LengthPerSkein
		}
		if item.NumberOfSkeins != nil && item.WeightPerSkein != nil {
			totals.Grams += *item.NumberOfSkeins * *item.WeightPerSkein
		}
	}
	return totals
}

// ExpandItem derives the per-item display totals for the detail view.
func ExpandItem(item models.YarnItem) models.YarnItemDetail {
	detail := models.YarnItemDetail{YarnItem: item}
	if item.NumberOfSkeins != nil {
		if item.LengthPerSkein != nil {
			detail.TotalLength = *item.NumberOfSkeins * *item.LengthPerSkein
		}
		if item.WeightPerSkein != nil {
			detail.TotalWeight = *item.NumberOfSkeins * *item.WeightPerSkein
		}
	}
	return detail
}

// ParsePayload decodes a stored payload_json column. Malformed or partial
// documents degrade to zero values; the dashboard never fails a page on a
// bad stored payload.
func ParsePayload(raw string) models.StashPayload {
	var payload models.StashPayload
	_ = json.Unmarshal([]byte(raw), &payload)
	return payload
}

// UsageAccumulator computes per-counter arithmetic means.
//
// Usage counters are cumulative session counts, not snapshots, so the
// mean runs over every stored row that carries usageStatistics - not
// just each user's latest. This differs deliberately from the inventory
// totals above.
type UsageAccumulator struct {
	sums   map[string]float64
	counts map[string]int
}

func NewUsageAccumulator() *UsageAccumulator {
	return &UsageAccumulator{
		sums:   make(map[string]float64),
		counts: make(map[string]int),
	}
}

// Add folds one payload's counters into the accumulator.
// Payloads without usageStatistics are ignored.
func (a *UsageAccumulator) Add(stats map[string]float64) {
	for name, value := range stats {
		a.sums[name] += value
		a.counts[name]++
	}
}

// Averages returns the per-counter means. Never nil.
func (a *UsageAccumulator) Averages() map[string]float64 {
	averages := make(map[string]float64, len(a.sums))
	for name, sum := range a.sums {
		averages[name] = sum / float64(a.counts[name])
	}
	return averages
}
