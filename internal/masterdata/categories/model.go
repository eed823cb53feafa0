package categories

import (
	"net/http"
	"strings"

	"github.com/salesdesk/salesdesk/internal/api"
)

type categoryForm struct {
	ID          int64
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
}

var formMessages = map[string]string{
	"Name.required":   "Vui lòng nhập tên danh mục",
	"Name.max":        "Tên danh mục tối đa 100 ký tự",
	"Description.max": "Mô tả tối đa 500 ký tự",
}

func parseForm(r *http.Request) categoryForm {
	return categoryForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
}

func (f categoryForm) request() api.CategoryRequest {
	return api.CategoryRequest{Name: f.Name, Description: f.Description}
}
