package dto

import "staydesk/internal/domain/shared/money"

// MoneyDTO renders amounts as fixed-point strings so clients never parse floats.
type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money, precision int32) MoneyDTO {
	return MoneyDTO{Amount: value.StringFixed(precision), Currency: value.Currency}
}
