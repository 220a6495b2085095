// Package catalog coordinates product rows with their hosted images.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"vintique.shop/internal/logging"
	"vintique.shop/internal/store"
)

const maxNameLength = 255

var (
	ErrImagesDisabled = errors.New("image uploads are not configured")
	ErrImageUpload    = errors.New("image upload failed")
)

type ProductStore interface {
	GetProduct(ctx context.Context, id int64) (store.Product, error)
	CreateProduct(ctx context.Context, input store.CreateProductInput) (store.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch store.ProductPatch) (store.Product, error)
	DeleteProduct(ctx context.Context, id int64) (store.Product, error)
}

type ImageStore interface {
	Upload(ctx context.Context, data []byte) (string, error)
	Replace(ctx context.Context, data []byte, oldURL string) (string, error)
	Delete(ctx context.Context, url string) (bool, error)
}

type CreateProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	Image         []byte
}

// UpdateProductInput carries a partial update. A non-empty Image replaces the
// current image and takes precedence over Patch.ImageURL.
type UpdateProductInput struct {
	Patch store.ProductPatch
	Image []byte
}

type Service struct {
	products ProductStore
	images   ImageStore
	logger   logging.Logger
}

// New builds a Service. images may be nil, in which case requests carrying an
// image fail with ErrImagesDisabled.
func New(products ProductStore, images ImageStore, logger logging.Logger) *Service {
	return &Service{products: products, images: images, logger: logging.OrNop(logger)}
}

func (s *Service) Create(ctx context.Context, input CreateProductInput) (store.Product, error) {
	name := strings.TrimSpace(input.Name)
	if err := validate(&name, &input.Price, &input.StockQuantity); err != nil {
		return store.Product{}, err
	}

	var imageURL *string
	if len(input.Image) > 0 {
		url, _, err := s.upload(ctx, input.Image, "")
		if err != nil {
			return store.Product{}, err
		}
		imageURL = &url
	}

	p, err := s.products.CreateProduct(ctx, store.CreateProductInput{
		Name:          name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		ImageURL:      imageURL,
	})
	if err != nil {
		if imageURL != nil {
			s.deleteImage(ctx, 0, *imageURL)
		}
		return store.Product{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateProductInput) (store.Product, error) {
	patch := input.Patch
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validate(patch.Name, patch.Price, patch.StockQuantity); err != nil {
		return store.Product{}, err
	}

	current, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return store.Product{}, err
	}

	var (
		uploaded string
		fresh    bool
	)
	if len(input.Image) > 0 {
		old := ""
		if current.ImageURL != nil {
			old = *current.ImageURL
		}
		uploaded, fresh, err = s.upload(ctx, input.Image, old)
		if err != nil {
			return store.Product{}, err
		}
		patch.ImageURL = &pgtype.Text{String: uploaded, Valid: true}
	}

	updated, err := s.products.UpdateProduct(ctx, id, patch)
	if err != nil {
		// A replaced asset is still the one the stored row points at.
		if fresh {
			s.deleteImage(ctx, id, uploaded)
		}
		return store.Product{}, err
	}

	if current.ImageURL != nil && imageCleared(patch) {
		s.deleteImage(ctx, id, *current.ImageURL)
	}
	return updated, nil
}

// Delete removes the product row, then its image. Image failures are logged
// and do not fail the delete.
func (s *Service) Delete(ctx context.Context, id int64) (store.Product, error) {
	deleted, err := s.products.DeleteProduct(ctx, id)
	if err != nil {
		return store.Product{}, err
	}
	if deleted.ImageURL != nil {
		s.deleteImage(ctx, id, *deleted.ImageURL)
	}
	return deleted, nil
}

// upload stores data, overwriting oldURL's asset when there is one. fresh
// reports whether a new asset was created.
func (s *Service) upload(ctx context.Context, data []byte, oldURL string) (url string, fresh bool, err error) {
	if s.images == nil {
		return "", false, ErrImagesDisabled
	}
	if oldURL != "" {
		url, err = s.images.Replace(ctx, data, oldURL)
	} else {
		url, err = s.images.Upload(ctx, data)
		fresh = true
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrImageUpload, err)
	}
	return url, fresh, nil
}

func (s *Service) deleteImage(ctx context.Context, productID int64, url string) {
	if s.images == nil {
		return
	}
	ok, err := s.images.Delete(ctx, url)
	if err != nil || !ok {
		fields := map[string]any{
			"product_id": productID,
			"image_url":  url,
		}
		if err != nil {
			fields["reason"] = err.Error()
		} else {
			fields["reason"] = "not_deleted"
		}
		logging.Event(s.logger, "product_image_delete_failed", fields)
	}
}

func imageCleared(patch store.ProductPatch) bool {
	return patch.ImageURL != nil && !patch.ImageURL.Valid
}

func validate(name *string, price *decimal.Decimal, stock *int) error {
	if name != nil {
		n := utf8.RuneCountInString(*name)
		if n == 0 || n > maxNameLength {
			return fmt.Errorf("%w: name must be 1..%d characters", store.ErrInvalidProduct, maxNameLength)
		}
	}
	if price != nil && !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", store.ErrInvalidProduct)
	}
	if price != nil && !store.ValidMoney(*price) {
		return fmt.Errorf("%w: price must have at most two decimals and be below 100000000", store.ErrInvalidProduct)
	}
	if stock != nil && *stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", store.ErrInvalidProduct)
	}
	return nil
}
