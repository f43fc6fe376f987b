package utils

// RoundDiv divides two non-negative integers rounding half away from zero.
func RoundDiv(amount, divisor int64) int64 {
	if divisor <= 0 {
		return 0
	}
	return (2*amount + divisor) / (2 * divisor)
}

// PeriodAmounts derives the monthly and weekly minor-unit amounts from a yearly amount.
func PeriodAmounts(yearly int64) (monthly, weekly int64) {
	return RoundDiv(yearly, 12), RoundDiv(yearly, 52)
}
