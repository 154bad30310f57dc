package hold

// Swap is the estimate of selling shares of one ticker to buy another.
type Swap struct {
	Proceeds        Money    // gross value of the sold shares
	Fees            Money    // sell and buy fee
	AvailableForBuy Money    // proceeds after both fees
	NewQuantity     Quantity // whole shares of the bought ticker
	LeftoverCash    Money
}

// EstimateSwap estimates selling sellQuantity shares at sellPrice to buy whole
// shares at buyPrice, paying the fee twice.
func EstimateSwap(sellQuantity Quantity, sellPrice, buyPrice, fee Money) Swap {
	s := Swap{
		Proceeds: sellPrice.Mul(sellQuantity),
		Fees:     fee.Mul(Q(2)),
	}
	s.AvailableForBuy = s.Proceeds.Sub(s.Fees)
	if s.AvailableForBuy.IsPositive() && buyPrice.IsPositive() {
		s.NewQuantity = s.AvailableForBuy.DivPrice(buyPrice).Floor()
	}
	s.LeftoverCash = s.AvailableForBuy.Sub(buyPrice.Mul(s.NewQuantity))
	return s
}
