package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"vintique.shop/internal/catalog"
)

const maxImageBytes = 10 << 20

var errInvalidImage = errors.New("invalid image")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.store.ListProducts(c.Request.Context())
	if err != nil {
		s.fail(c, "product_list_failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, mapSlice(products, toProductResponse))
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "product_get_failed", err, map[string]any{"product_id": id})
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p))
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	input := catalog.CreateProductInput{Name: c.PostForm("name")}

	if desc, ok := c.GetPostForm("description"); ok && desc != "" {
		input.Description = &desc
	}
	price, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("price")))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_price")
		return
	}
	input.Price = price
	stock, err := strconv.Atoi(strings.TrimSpace(c.PostForm("stock_quantity")))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_stock_quantity")
		return
	}
	input.StockQuantity = stock
	if input.Image, err = readImage(c); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_image")
		return
	}

	p, err := s.catalog.Create(c.Request.Context(), input)
	if err != nil {
		s.fail(c, "product_create_failed", err, nil)
		return
	}

	s.logEvent(c, "product_created", map[string]any{"product_id": p.ID})
	c.JSON(http.StatusCreated, toProductResponse(p))
}

// handleUpdateProduct applies only the form fields present in the request.
// An empty description or image_url clears that column.
func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var input catalog.UpdateProductInput
	if name, ok := c.GetPostForm("name"); ok {
		input.Patch.Name = &name
	}
	if desc, ok := c.GetPostForm("description"); ok {
		input.Patch.Description = &pgtype.Text{String: desc, Valid: desc != ""}
	}
	if raw, ok := c.GetPostForm("price"); ok {
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_price")
			return
		}
		input.Patch.Price = &price
	}
	if raw, ok := c.GetPostForm("stock_quantity"); ok {
		stock, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_stock_quantity")
			return
		}
		input.Patch.StockQuantity = &stock
	}
	if url, ok := c.GetPostForm("image_url"); ok && url == "" {
		input.Patch.ImageURL = &pgtype.Text{}
	}
	image, err := readImage(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_image")
		return
	}
	input.Image = image

	p, err := s.catalog.Update(c.Request.Context(), id, input)
	if err != nil {
		s.fail(c, "product_update_failed", err, map[string]any{"product_id": id})
		return
	}

	s.logEvent(c, "product_updated", map[string]any{"product_id": id})
	c.JSON(http.StatusOK, toProductResponse(p))
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.catalog.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "product_delete_failed", err, map[string]any{"product_id": id})
		return
	}

	s.logEvent(c, "product_deleted", map[string]any{"product_id": id})
	c.JSON(http.StatusOK, toProductResponse(p))
}

type adjustStockRequest struct {
	Delta *int `json:"delta"`
}

func (s *Server) handleAdjustStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Delta == nil {
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	p, err := s.store.AdjustStock(c.Request.Context(), id, *req.Delta)
	if err != nil {
		s.fail(c, "product_stock_adjust_failed", err, map[string]any{
			"product_id": id,
			"delta":      *req.Delta,
		})
		return
	}

	s.logEvent(c, "product_stock_adjusted", map[string]any{
		"product_id":     id,
		"delta":          *req.Delta,
		"stock_quantity": p.StockQuantity,
	})
	c.JSON(http.StatusOK, toProductResponse(p))
}

// readImage returns the optional "image" upload, or nil when none was sent.
func readImage(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > maxImageBytes {
		return nil, errInvalidImage
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data) > maxImageBytes {
		return nil, errInvalidImage
	}
	if !allowedImageTypes[http.DetectContentType(data)] {
		return nil, errInvalidImage
	}
	return data, nil
}

