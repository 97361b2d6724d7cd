package cart

import (
	"fmt"
	"log/slog"

	"github.com/frahmantamala/licensestore/internal/core/common/validation"
	cartdm "github.com/frahmantamala/licensestore/internal/core/datamodel/cart"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetCart(userID int64) (*Cart, error) {
	rows, err := s.repo.ListItems(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return FromDataModel(rows), nil
}

// AddItem merges into an existing line for the same variant.
func (s *Service) AddItem(userID int64, dto AddItemDTO) (*Cart, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetItem(userID, dto.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	item := existing
	if item == nil {
		item = &cartdm.CartItem{UserID: userID, VariantID: dto.VariantID}
	}

	quantity := item.Quantity + dto.Quantity
	if err := validation.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := s.checkVariant(dto.VariantID, quantity); err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.Variant = nil
	if err := s.repo.SaveItem(item); err != nil {
		return nil, fmt.Errorf("failed to save cart item: %w", err)
	}

	s.logger.Info("cart item added", "user_id", userID, "variant_id", dto.VariantID, "quantity", quantity)
	return s.GetCart(userID)
}

// UpdateItem sets the quantity of a line; 0 removes it.
func (s *Service) UpdateItem(userID, variantID int64, dto UpdateItemDTO) (*Cart, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(userID, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	if dto.Quantity == 0 {
		return s.RemoveItem(userID, variantID)
	}
	if err := s.checkVariant(variantID, dto.Quantity); err != nil {
		return nil, err
	}

	item.Quantity = dto.Quantity
	item.Variant = nil
	if err := s.repo.SaveItem(item); err != nil {
		return nil, fmt.Errorf("failed to save cart item: %w", err)
	}
	return s.GetCart(userID)
}

func (s *Service) RemoveItem(userID, variantID int64) (*Cart, error) {
	item, err := s.repo.GetItem(userID, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	if err := s.repo.DeleteItem(userID, variantID); err != nil {
		return nil, fmt.Errorf("failed to delete cart item: %w", err)
	}
	return s.GetCart(userID)
}

func (s *Service) Clear(userID int64) error {
	if err := s.repo.Clear(userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *Service) checkVariant(variantID int64, quantity int) error {
	v, err := s.repo.GetVariant(variantID)
	if err != nil {
		return fmt.Errorf("failed to get variant: %w", err)
	}
	if v == nil {
		return ErrVariantNotFound
	}
	if !v.IsActive || v.Product == nil || !v.Product.IsActive {
		return ErrVariantInactive
	}
	if v.Stock < quantity {
		return ErrOutOfStock.WithDetails(map[string]int{"available": v.Stock})
	}
	return nil
}
