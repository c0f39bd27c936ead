package domain

import "github.com/shopspring/decimal"

// Workload is the estimated effort of one order in workload units
type Workload struct {
	ItemWorkload   decimal.Decimal `json:"itemWorkload"`
	SetupTime      decimal.Decimal `json:"setupTime"`
	PackingBase    decimal.Decimal `json:"packingBase"`
	PackingPerItem decimal.Decimal `json:"packingPerItem"`
	LoadingTime    decimal.Decimal `json:"loadingTime"`
	ItemCount      int             `json:"itemCount"`
}

// Total is item workload plus the fixed setup, packing and loading times.
// The per-item packing rate is not part of it; see TotalWithPackingBonus.
func (w Workload) Total() decimal.Decimal {
	return w.ItemWorkload.Add(w.SetupTime).Add(w.PackingBase).Add(w.LoadingTime)
}

// PackingBonus is the per-item packing time for all lines of the order
func (w Workload) PackingBonus() decimal.Decimal {
	return w.PackingPerItem.Mul(decimal.NewFromInt(int64(w.ItemCount)))
}

// TotalWithPackingBonus is Total plus PackingBonus
func (w Workload) TotalWithPackingBonus() decimal.Decimal {
	return w.Total().Add(w.PackingBonus())
}
