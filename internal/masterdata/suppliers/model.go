package suppliers

import (
	"net/http"
	"strings"

	"github.com/salesdesk/salesdesk/internal/api"
)

type supplierForm struct {
	ID            int64
	Name          string `validate:"required,max=200"`
	ContactPerson string `validate:"max=100"`
	Email         string `validate:"omitempty,email"`
	PhoneNumber   string `validate:"omitempty,max=20"`
	Address       string `validate:"max=500"`
	IsActive      bool
}

var formMessages = map[string]string{
	"Name.required":   "Vui lòng nhập tên nhà cung cấp",
	"Name.max":        "Tên nhà cung cấp tối đa 200 ký tự",
	"Email.email":     "Email không hợp lệ",
	"PhoneNumber.max": "Số điện thoại không hợp lệ",
}

func formFromSupplier(s api.Supplier) supplierForm {
	return supplierForm{
		ID:            s.ID,
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Email:         s.Email,
		PhoneNumber:   s.PhoneNumber,
		Address:       s.Address,
		IsActive:      s.IsActive,
	}
}

func parseForm(r *http.Request) supplierForm {
	return supplierForm{
		Name:          strings.TrimSpace(r.PostFormValue("name")),
		ContactPerson: strings.TrimSpace(r.PostFormValue("contactPerson")),
		Email:         strings.TrimSpace(r.PostFormValue("email")),
		PhoneNumber:   strings.TrimSpace(r.PostFormValue("phoneNumber")),
		Address:       strings.TrimSpace(r.PostFormValue("address")),
		IsActive:      r.PostFormValue("isActive") == "on",
	}
}

func (f supplierForm) request() api.SupplierRequest {
	return api.SupplierRequest{
		Name:          f.Name,
		ContactPerson: f.ContactPerson,
		Email:         f.Email,
		PhoneNumber:   f.PhoneNumber,
		Address:       f.Address,
		IsActive:      f.IsActive,
	}
}
