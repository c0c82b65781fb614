// Package dataset rebuilds the weekly sales facts the forecast models read.
package dataset

import (
	"sort"
	"time"

	"github.com/wonny/crmgeek/backend/internal/contracts"
)

type factKey struct {
	product string
	week    time.Time
}

// Build aggregates completed sale lines into one SalesFact per (product, ISO week).
// Lines without a product name or with a non-positive quantity are skipped.
// The result is sorted by week, then product, so equal input yields equal output.
func Build(lines []contracts.SaleLine) []contracts.SalesFact {
	totals := make(map[factKey]int)
	for _, l := range lines {
		product := contracts.NormalizeProduct(l.Product)
		if product == "" || l.Quantity <= 0 {
			continue
		}
		totals[factKey{product: product, week: contracts.WeekStart(l.SoldAt)}] += l.Quantity
	}

	facts := make([]contracts.SalesFact, 0, len(totals))
	for k, qty := range totals {
		facts = append(facts, contracts.SalesFact{Product: k.product, Quantity: qty, WeekStart: k.week})
	}

	sort.Slice(facts, func(i, j int) bool {
		if !facts[i].WeekStart.Equal(facts[j].WeekStart) {
			return facts[i].WeekStart.Before(facts[j].WeekStart)
		}
		return facts[i].Product < facts[j].Product
	})

	return facts
}
