// Package catalog resolves product ids against the storefront product API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var ErrProductNotFound = errors.New("product not found")

type Client struct {
	http     *resty.Client
	currency currency.Unit
}

// productDTO mirrors the fields the cart needs from the catalog product schema.
type productDTO struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

func New(baseURL string, unit currency.Unit, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: client, currency: unit}
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, errors.New("product id is empty")
	}

	var dto productDTO

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&dto).
		Get("/api/products/{id}")
	if err != nil {
		return domain.Product{}, fmt.Errorf("http.Get: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return domain.Product{}, fmt.Errorf("%w: id[%s]", ErrProductNotFound, id)
	case resp.IsError():
		return domain.Product{}, fmt.Errorf("catalog status[%d] for id[%s]", resp.StatusCode(), id)
	}

	return mapProductToDomain(dto, c.currency)
}

func mapProductToDomain(dto productDTO, unit currency.Unit) (domain.Product, error) {
	price, err := decimal.NewFromString(dto.Price.String())
	if err != nil {
		return domain.Product{}, fmt.Errorf("price[%s] is not valid: %w", dto.Price, err)
	}

	product := domain.Product{
		ID:    dto.ID.String(),
		Name:  dto.Name,
		Price: domain.NewMoney(price, unit),
	}

	if err := product.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("product.Validate: %w", err)
	}

	return product, nil
}
