package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
)

// Currency — единственная валюта платформы.
const Currency = "usd"

// PlatformFeeRate — комиссия платформы. Единственное место, где задаётся
// ставка: и создание escrow, и оценка для UI считают через SplitFee.
var PlatformFeeRate = decimal.RequireFromString("0.10")

// FeeSplit — разбивка суммы заказа на комиссию и выплату фрилансеру.
// Инвариант Fee + Net == amount выполняется по построению: Net считается
// вычитанием округлённой комиссии, а не отдельным умножением.
type FeeSplit struct {
	Fee decimal.Decimal `json:"platform_fee"`
	Net decimal.Decimal `json:"freelancer_amount"`
}

// SplitFee считает комиссию платформы и чистую сумму фрилансера.
func SplitFee(amount decimal.Decimal) FeeSplit {
	fee := amount.Mul(PlatformFeeRate).Round(2)
	return FeeSplit{Fee: fee, Net: amount.Sub(fee)}
}

// ChargeTotal — сколько спишется с клиента: сумма заказа плюс комиссия
// сверху (клиент платит цену гига + 10%).
func ChargeTotal(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(SplitFee(amount).Fee)
}

// NewAmount валидирует денежную сумму.
func NewAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return amount.Round(2), nil
}
