package customers

import (
	"net/http"
	"strings"

	"github.com/salesdesk/salesdesk/internal/api"
)

type customerForm struct {
	ID          int64
	FullName    string `validate:"required,max=100"`
	PhoneNumber string `validate:"required,numeric,min=9,max=12"`
	Email       string `validate:"omitempty,email"`
	Address     string `validate:"max=500"`
}

var formMessages = map[string]string{
	"FullName.required":    "Vui lòng nhập tên khách hàng",
	"FullName.max":         "Tên khách hàng tối đa 100 ký tự",
	"PhoneNumber.required": "Vui lòng nhập số điện thoại",
	"PhoneNumber":          "Số điện thoại không hợp lệ",
	"Email.email":          "Email không hợp lệ",
	"Address.max":          "Địa chỉ quá dài",
}

// MsgPhoneTaken is shown when the backend reports a duplicate phone number
// without a message of its own.
const MsgPhoneTaken = "Số điện thoại đã tồn tại"

func formFromCustomer(c api.Customer) customerForm {
	return customerForm{ID: c.ID, FullName: c.FullName, PhoneNumber: c.PhoneNumber, Email: c.Email, Address: c.Address}
}

func parseForm(r *http.Request) customerForm {
	return customerForm{
		FullName:    strings.TrimSpace(r.PostFormValue("fullName")),
		PhoneNumber: normalizePhone(r.PostFormValue("phoneNumber")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		Address:     strings.TrimSpace(r.PostFormValue("address")),
	}
}

// normalizePhone drops the spaces, dots and dashes people type in numbers.
func normalizePhone(raw string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(raw))
}

func (f customerForm) request() api.CustomerRequest {
	return api.CustomerRequest{FullName: f.FullName, PhoneNumber: f.PhoneNumber, Email: f.Email, Address: f.Address}
}
