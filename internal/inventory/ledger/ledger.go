// Package ledger holds the stock arithmetic: status derivation and FIFO planning.
// Nothing here touches storage; callers load batches inside their transaction and
// apply the returned plan.
package ledger

import (
	"sort"

	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

// DeriveStatus maps the aggregate remaining quantity of an item onto its label.
func DeriveStatus(remaining, threshold decimal.Decimal) model.StockStatus {
	switch {
	case !remaining.IsPositive():
		return model.StatusOutOfStock
	case remaining.LessThanOrEqual(threshold):
		return model.StatusRestock
	default:
		return model.StatusAvailable
	}
}

// BatchStatusAfter is the label a batch gets once a deduction leaves it at remaining.
func BatchStatusAfter(remaining, threshold decimal.Decimal) model.StockStatus {
	switch {
	case !remaining.IsPositive():
		return model.StatusOutOfStock
	case remaining.LessThanOrEqual(threshold):
		return model.StatusLastStock
	default:
		return model.StatusAvailable
	}
}

// Eligible reports whether a batch may still be drawn from.
func Eligible(b model.StockBatch) bool {
	return b.RemainingQuantity.IsPositive() && b.Status != model.StatusOutOfStock
}

// SortFIFO orders batches oldest delivery first, ties by id. It sorts in place.
func SortFIFO(batches []model.StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].DeliveryDate.Equal(batches[j].DeliveryDate) {
			return batches[i].DeliveryDate.Before(batches[j].DeliveryDate)
		}
		return batches[i].ID < batches[j].ID
	})
}

type Allocation struct {
	BatchID   int64             `json:"batch_id"`
	Taken     decimal.Decimal   `json:"taken"`
	Remaining decimal.Decimal   `json:"remaining"`
	Status    model.StockStatus `json:"status"`
}

type Plan struct {
	Requested   decimal.Decimal
	Allocations []Allocation
	// Shortfall is what the eligible batches could not cover.
	Shortfall decimal.Decimal
}

func (p Plan) Satisfied() bool {
	return !p.Shortfall.IsPositive()
}

// Available is the total the eligible batches could supply towards the request.
func (p Plan) Available() decimal.Decimal {
	return p.Requested.Sub(p.Shortfall)
}

// PlanDeduction walks the eligible batches oldest first and takes from each until
// quantity is covered. The input slice is not modified.
func PlanDeduction(batches []model.StockBatch, quantity, threshold decimal.Decimal) Plan {
	ordered := make([]model.StockBatch, 0, len(batches))
	for _, b := range batches {
		if Eligible(b) {
			ordered = append(ordered, b)
		}
	}
	SortFIFO(ordered)

	plan := Plan{Requested: quantity}
	toDeduct := quantity
	for _, b := range ordered {
		if !toDeduct.IsPositive() {
			break
		}
		take := decimal.Min(b.RemainingQuantity, toDeduct)
		left := b.RemainingQuantity.Sub(take)
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:   b.ID,
			Taken:     take,
			Remaining: left,
			Status:    BatchStatusAfter(left, threshold),
		})
		toDeduct = toDeduct.Sub(take)
	}

	if toDeduct.IsPositive() {
		plan.Shortfall = toDeduct
	}
	return plan
}

// TotalRemaining sums remaining quantities across batches.
func TotalRemaining(batches []model.StockBatch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.RemainingQuantity)
	}
	return total
}
