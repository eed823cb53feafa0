package warehouse

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/shared"
)

type receiptLine struct {
	ProductID   int64   `validate:"required"`
	ProductName string  `validate:"-"`
	Quantity    int     `validate:"gte=1"`
	EntryPrice  float64 `validate:"gte=0"`
}

func (l receiptLine) Total() float64 { return l.EntryPrice * float64(l.Quantity) }

type receiptForm struct {
	SupplierID int64         `validate:"required"`
	Note       string        `validate:"max=500"`
	Lines      []receiptLine `validate:"required,min=1,dive"`
}

func (f receiptForm) Total() float64 {
	total := 0.0
	for _, l := range f.Lines {
		total += l.Total()
	}
	return total
}

var receiptMessages = map[string]string{
	"SupplierID.required": "Chọn nhà cung cấp",
	"Note.max":            "Ghi chú tối đa 500 ký tự",
	"Lines":               "Chưa có sản phẩm",
	"ProductID.required":  "Chọn sản phẩm cho từng dòng",
	"Quantity.gte":        "Số lượng phải lớn hơn 0",
	"EntryPrice.gte":      "Giá nhập không được âm",
}

// parseReceipt reads the repeated line fields. Rows without a product and
// quantity are blank rows of the form and are skipped.
func parseReceipt(r *http.Request) receiptForm {
	form := receiptForm{
		SupplierID: shared.FormInt64(r, "supplierId"),
		Note:       strings.TrimSpace(r.PostFormValue("note")),
	}
	ids := r.PostForm["productId"]
	names := r.PostForm["productName"]
	qtys := r.PostForm["quantity"]
	prices := r.PostForm["entryPrice"]
	for i := range ids {
		rawID := strings.TrimSpace(ids[i])
		rawQty := strings.TrimSpace(at(qtys, i))
		if rawID == "" && rawQty == "" {
			continue
		}
		id, _ := strconv.ParseInt(rawID, 10, 64)
		qty, _ := strconv.Atoi(rawQty)
		form.Lines = append(form.Lines, receiptLine{
			ProductID:   id,
			ProductName: strings.TrimSpace(at(names, i)),
			Quantity:    qty,
			EntryPrice:  shared.ParseAmount(at(prices, i)),
		})
	}
	return form
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func (f receiptForm) request() api.ReceiptRequest {
	req := api.ReceiptRequest{SupplierID: f.SupplierID, Note: f.Note, Items: make([]api.ReceiptItem, 0, len(f.Lines))}
	for _, l := range f.Lines {
		req.Items = append(req.Items, api.ReceiptItem{ProductID: l.ProductID, Quantity: l.Quantity, EntryPrice: l.EntryPrice})
	}
	return req
}

// draftFromSuggestion prefills the receipt form with matched lines only.
func draftFromSuggestion(s Suggestion) receiptForm {
	form := receiptForm{}
	if s.Supplier != nil {
		form.SupplierID = s.Supplier.ID
	}
	if d := strings.TrimSpace(s.Scan.InvoiceDate); d != "" {
		form.Note = "Hóa đơn ngày " + d
	}
	for _, l := range s.Lines {
		if l.Product == nil {
			continue
		}
		qty := l.Item.Quantity
		if qty <= 0 {
			qty = 1
		}
		form.Lines = append(form.Lines, receiptLine{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    qty,
			EntryPrice:  l.Item.UnitPrice,
		})
	}
	return form
}

type adjustmentForm struct {
	ProductID   int64  `validate:"required"`
	NewQuantity int    `validate:"gte=0"`
	Reason      string `validate:"required,max=500"`
}

var adjustmentMessages = map[string]string{
	"ProductID.required": "Vui lòng chọn sản phẩm",
	"NewQuantity.gte":    "Số lượng thực tế không được âm",
	"Reason.required":    "Vui lòng nhập lý do điều chỉnh",
	"Reason.max":         "Lý do tối đa 500 ký tự",
}

func parseAdjustment(r *http.Request) adjustmentForm {
	qty := -1
	if raw := strings.TrimSpace(r.PostFormValue("newQuantity")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			qty = v
		}
	}
	return adjustmentForm{
		ProductID:   shared.FormInt64(r, "productId"),
		NewQuantity: qty,
		Reason:      strings.TrimSpace(r.PostFormValue("reason")),
	}
}
