package products

import (
	"net/http"
	"strings"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// productForm mirrors the create/edit form.
type productForm struct {
	ID           int64
	SKU          string  `validate:"required,max=50"`
	Name         string  `validate:"required,max=200"`
	Description  string  `validate:"max=2000"`
	Price        float64 `validate:"gt=0"`
	CategoryID   int64   `validate:"required"`
	InitialStock int     `validate:"gte=0"`
	ImageURL     string
}

var formMessages = map[string]string{
	"SKU.required":        "Vui lòng nhập mã SKU",
	"SKU.max":             "Mã SKU tối đa 50 ký tự",
	"Name.required":       "Vui lòng nhập tên sản phẩm",
	"Name.max":            "Tên sản phẩm tối đa 200 ký tự",
	"Description.max":     "Mô tả quá dài",
	"Price.gt":            "Giá bán phải lớn hơn 0",
	"CategoryID.required": "Vui lòng chọn danh mục",
	"InitialStock.gte":    "Tồn kho ban đầu không được âm",
	"Image":               "Ảnh phải là JPG, PNG, GIF hoặc WEBP và không quá 5MB",
}

func formFromProduct(p api.Product) productForm {
	return productForm{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		CategoryID:   p.CategoryID,
		InitialStock: p.StockQuantity,
		ImageURL:     p.ImageURL,
	}
}

func parseForm(r *http.Request) productForm {
	return productForm{
		SKU:          strings.TrimSpace(r.PostFormValue("sku")),
		Name:         strings.TrimSpace(r.PostFormValue("name")),
		Description:  strings.TrimSpace(r.PostFormValue("description")),
		Price:        shared.FormFloat(r, "price"),
		CategoryID:   shared.FormInt64(r, "categoryId"),
		InitialStock: shared.FormInt(r, "initialStock"),
		ImageURL:     strings.TrimSpace(r.PostFormValue("imageUrl")),
	}
}

func (f productForm) request() api.ProductRequest {
	return api.ProductRequest{
		SKU:          f.SKU,
		Name:         f.Name,
		Description:  f.Description,
		Price:        f.Price,
		CategoryID:   f.CategoryID,
		InitialStock: f.InitialStock,
		ImageURL:     f.ImageURL,
	}
}
