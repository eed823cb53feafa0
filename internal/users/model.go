package users

import (
	"net/http"
	"strings"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// RoleOption is one choice of the role select. The ids are fixed by the
// backend's seed data.
type RoleOption struct {
	ID   int64
	Name string
}

var roleOptions = []RoleOption{
	{ID: 1, Name: api.RoleAdmin},
	{ID: 2, Name: api.RoleSalesStaff},
	{ID: 3, Name: api.RoleWarehouseStaff},
}

type userForm struct {
	FullName string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	RoleID   int64  `validate:"required,oneof=1 2 3"`
}

var formMessages = map[string]string{
	"FullName.required": "Vui lòng nhập họ tên",
	"FullName.max":      "Họ tên tối đa 100 ký tự",
	"Email.required":    "Vui lòng nhập email",
	"Email.email":       "Email không hợp lệ",
	"Password.required": "Vui lòng nhập mật khẩu",
	"Password.min":      "Mật khẩu tối thiểu 6 ký tự",
	"RoleID":            "Vui lòng chọn vai trò",
}

func parseForm(r *http.Request) userForm {
	return userForm{
		FullName: strings.TrimSpace(r.PostFormValue("fullName")),
		Email:    strings.ToLower(strings.TrimSpace(r.PostFormValue("email"))),
		Password: r.PostFormValue("password"),
		RoleID:   shared.FormInt64(r, "roleId"),
	}
}

func (f userForm) request() api.UserCreateRequest {
	return api.UserCreateRequest{FullName: f.FullName, Email: f.Email, Password: f.Password, RoleID: f.RoleID}
}

// roleTag picks the tag colour for a role name.
func roleTag(role string) string {
	switch role {
	case api.RoleAdmin:
		return "tag-red"
	case api.RoleWarehouseStaff:
		return "tag-orange"
	default:
		return "tag-blue"
	}
}
