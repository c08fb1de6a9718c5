package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

var contractValidator = validator.New()

// Pointer fields let the validator tell a missing key from a zero value
type wireResponse struct {
	Mode           *string         `json:"mode" validate:"required,oneof=recommend compare explain clarify refuse"`
	Message        *string         `json:"message" validate:"required"`
	Products       []wireProduct   `json:"products" validate:"omitempty,dive"`
	Comparison     *wireComparison `json:"comparison"`
	UsedCatalogIDs []string        `json:"usedCatalogIds" validate:"omitempty,dive,required"`
}

type wireProduct struct {
	ID         *string  `json:"id" validate:"required"`
	Title      *string  `json:"title" validate:"required"`
	Price      *float64 `json:"price" validate:"required"`
	Highlights []string `json:"highlights"`
}

type wireComparison struct {
	ProductIDs []string  `json:"productIds" validate:"required,dive,required"`
	Headers    []string  `json:"headers" validate:"required"`
	Rows       []wireRow `json:"rows" validate:"required,dive"`
}

type wireRow struct {
	Label  *string  `json:"label" validate:"required"`
	Values []string `json:"values" validate:"required"`
}

// ParseModelResponse turns raw model text into an envelope, or an error when the text
// is not a single JSON object, violates the response contract, or cites ids outside candidates.
// Card titles and prices are always taken from the catalog, never from the model.
func ParseModelResponse(raw string, candidates []model.Phone) (model.ChatResponse, error) {
	var w wireResponse
	if err := utils.ParseAIJSON(raw, &w); err != nil {
		return model.ChatResponse{}, fmt.Errorf("%w: %v", ErrModelOutputParse, err)
	}
	if err := contractValidator.Struct(&w); err != nil {
		return model.ChatResponse{}, fmt.Errorf("%w: %v", ErrModelOutputSchema, err)
	}

	byID := make(map[string]model.Phone, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}
	grounded := func(ids ...string) error {
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				return fmt.Errorf("%w: unknown catalog id %q", ErrModelOutputSchema, id)
			}
		}
		return nil
	}

	resp := model.ChatResponse{
		Mode:           model.ChatMode(*w.Mode),
		Message:        *w.Message,
		UsedCatalogIDs: []string{},
	}

	for _, wp := range w.Products {
		if err := grounded(*wp.ID); err != nil {
			return model.ChatResponse{}, err
		}
		p := byID[*wp.ID]
		highlights := wp.Highlights
		if highlights == nil {
			highlights = []string{}
		}
		resp.Products = append(resp.Products, model.ProductCard{
			ID:         p.ID,
			Title:      p.Title(),
			Price:      p.Price,
			Highlights: highlights,
		})
	}

	if w.Comparison != nil {
		if err := grounded(w.Comparison.ProductIDs...); err != nil {
			return model.ChatResponse{}, err
		}
		rows := make([]model.ComparisonRow, len(w.Comparison.Rows))
		for i, r := range w.Comparison.Rows {
			rows[i] = model.ComparisonRow{Label: *r.Label, Values: r.Values}
		}
		resp.Comparison = &model.Comparison{
			ProductIDs: w.Comparison.ProductIDs,
			Headers:    w.Comparison.Headers,
			Rows:       rows,
		}
	}

	if err := grounded(w.UsedCatalogIDs...); err != nil {
		return model.ChatResponse{}, err
	}
	if w.UsedCatalogIDs != nil {
		resp.UsedCatalogIDs = w.UsedCatalogIDs
	}

	return resp, nil
}
