package view

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *api.Identity
	Nav         []rbac.MenuNode
	Data        any
}

var printer = message.NewPrinter(language.Vietnamese)

// FormatMoney renders an amount the way the shop writes prices: "1.250.000 VNĐ".
func FormatMoney(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0))) + " VNĐ"
}

// FormatNumber groups digits with the Vietnamese separator.
func FormatNumber(v any) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// StatusLabel translates an order status.
func StatusLabel(status string) string {
	switch status {
	case api.OrderCompleted:
		return "Hoàn thành"
	case api.OrderCancelled:
		return "Đã hủy"
	default:
		return status
	}
}

// RoleLabel translates a role name.
func RoleLabel(role string) string {
	switch role {
	case api.RoleAdmin:
		return "Quản trị viên"
	case api.RoleSalesStaff:
		return "Nhân viên bán hàng"
	case api.RoleWarehouseStaff:
		return "Nhân viên kho"
	default:
		return strings.TrimPrefix(role, "ROLE_")
	}
}

// Funcs is the function map shared by every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"money":       FormatMoney,
		"number":      FormatNumber,
		"statusLabel": StatusLabel,
		"roleLabel":   RoleLabel,
		"isActive": func(node rbac.MenuNode, current string) bool {
			return node.Active(current)
		},
		"add": func(a, b int) int { return a + b },
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict: odd argument count")
			}
			out := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				key, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				out[key] = kv[i+1]
			}
			return out, nil
		},
	}
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(Funcs()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
