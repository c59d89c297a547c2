package domain

import "github.com/shopspring/decimal"

// Стоимости никогда не задаются вручную: только пересчитываются из входных данных.

// Recompute total_price = unit_price * quantity
func (p *Part) Recompute() {
	p.TotalPrice = p.UnitPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// RecomputeCosts additional_cost = сумма запчастей, total_cost = base_price + additional_cost
func (r *Repair) RecomputeCosts() {
	additional := decimal.Zero
	for i := range r.Interventions {
		for j := range r.Interventions[i].Parts {
			p := &r.Interventions[i].Parts[j]
			p.Recompute()
			additional = additional.Add(p.TotalPrice)
		}
	}
	r.AdditionalCost = additional
	r.TotalCost = r.BasePrice.Add(additional)
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
}

// RecomputeTotal total_amount = сумма подытогов позиций
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	o.TotalAmount = total
}

// RecomputeDerived пересчитывает производные поля любого варианта
func RecomputeDerived(c ServiceCase) {
	switch v := c.(type) {
	case *Repair:
		v.RecomputeCosts()
	case *Order:
		v.RecomputeTotal()
	}
}
