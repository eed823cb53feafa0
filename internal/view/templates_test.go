package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err, "Templates should parse without error")

	for _, name := range []string{
		"pages/login.html",
		"pages/forbidden.html",
		"pages/dashboard/index.html",
		"pages/products/list.html",
		"pages/products/form.html",
		"pages/products/low_stock.html",
		"pages/orders/list.html",
		"pages/orders/show.html",
		"pages/orders/new.html",
		"pages/users/list.html",
		"pages/warehouse/receipt.html",
		"pages/warehouse/adjustment.html",
		"pages/audit/timeline.html",
	} {
		assert.NotNil(t, engine.templates.Lookup(name), name)
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1.250.000 VNĐ", FormatMoney(1250000))
	assert.Equal(t, "0 VNĐ", FormatMoney(0))
	assert.Equal(t, "1.000 VNĐ", FormatMoney(999.6))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Đã hủy", StatusLabel(api.OrderCancelled))
	assert.Equal(t, "PENDING", StatusLabel("PENDING"))
	assert.Equal(t, "Nhân viên kho", RoleLabel(api.RoleWarehouseStaff))
	assert.Equal(t, "AUDITOR", RoleLabel("ROLE_AUDITOR"))
}
