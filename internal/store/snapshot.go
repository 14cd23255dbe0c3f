package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type lineItemDTO struct {
	LineKey   string           `json:"line_key"`
	ProductID string           `json:"product_id"`
	Name      string           `json:"name"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Currency  string           `json:"currency"`
	Quantity  int              `json:"quantity"`
	Size      *string          `json:"size"`
	Color     *string          `json:"color"`
}

func encodeItems(items []domain.LineItem) (string, error) {
	dtos := make([]lineItemDTO, 0, len(items))

	for _, item := range items {
		price := item.UnitPrice.Amount

		dtos = append(dtos, lineItemDTO{
			LineKey:   item.Key.String(),
			ProductID: item.Key.ProductID,
			Name:      item.Name,
			UnitPrice: &price,
			Currency:  item.UnitPrice.Currency.String(),
			Quantity:  item.Quantity,
			Size:      nullable(item.Key.Size),
			Color:     nullable(item.Key.Color),
		})
	}

	data, err := json.Marshal(dtos)
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}

	return string(data), nil
}

func decodeItems(value string) ([]domain.LineItem, error) {
	var dtos []lineItemDTO
	if err := json.Unmarshal([]byte(value), &dtos); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	items := make([]domain.LineItem, 0, len(dtos))
	seen := make(map[domain.LineKey]struct{}, len(dtos))

	for _, dto := range dtos {
		item, err := mapDTOToDomain(dto)
		if err != nil {
			return nil, fmt.Errorf("mapDTOToDomain: %w", err)
		}

		if _, ok := seen[item.Key]; ok {
			return nil, fmt.Errorf("duplicate line key[%s]", item.Key)
		}
		seen[item.Key] = struct{}{}

		items = append(items, item)
	}

	return items, nil
}

func mapDTOToDomain(dto lineItemDTO) (domain.LineItem, error) {
	if dto.UnitPrice == nil {
		return domain.LineItem{}, errors.New("unit_price is missing")
	}
	if dto.Quantity < 1 {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] is not positive", dto.Quantity)
	}

	parsedCurrency, err := currency.ParseISO(dto.Currency)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("currency[%s] is not valid: %w", dto.Currency, err)
	}

	product := domain.Product{
		ID:    dto.ProductID,
		Name:  dto.Name,
		Price: domain.NewMoney(*dto.UnitPrice, parsedCurrency),
	}
	if err := product.Validate(); err != nil {
		return domain.LineItem{}, fmt.Errorf("product.Validate: %w", err)
	}

	key := domain.LineKey{
		ProductID: dto.ProductID,
		Size:      deref(dto.Size),
		Color:     deref(dto.Color),
	}
	if dto.LineKey != key.String() {
		return domain.LineItem{}, fmt.Errorf("line_key[%s] does not match[%s]", dto.LineKey, key)
	}

	return domain.LineItem{
		Key:       key,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  dto.Quantity,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
