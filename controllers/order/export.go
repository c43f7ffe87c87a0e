package orderControllers

import (
	"fmt"
	"io"
	"strings"

	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/tealeg/xlsx"
)

const timeLayout = "2006-01-02 15:04:05"

var exportHeaders = []string{
	"Order ID", "Username", "Receiver", "Phone", "Address", "Items",
	"Payment Method", "Payment Status", "Order Status",
	"Total", "Discount", "Final", "Voucher", "Created At", "Paid At",
}

// WriteOrdersExcel renders one sheet with a row per order.
func WriteOrdersExcel(w io.Writer, orders []models.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetString(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetString(o.ID)
		row.AddCell().SetString(o.Username)
		row.AddCell().SetString(o.ReceiverName)
		row.AddCell().SetString(o.ReceiverPhone)
		row.AddCell().SetString(o.ReceiverAddress)

		lines := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, fmt.Sprintf("%s x%d", it.Title, it.Quantity))
		}
		row.AddCell().SetString(strings.Join(lines, "; "))

		row.AddCell().SetString(o.PaymentMethod)
		row.AddCell().SetString(string(o.PaymentStatus))
		row.AddCell().SetString(string(o.OrderStatus))
		row.AddCell().SetFloat(o.TotalAmount.InexactFloat64())
		row.AddCell().SetFloat(o.DiscountAmount.InexactFloat64())
		row.AddCell().SetFloat(o.FinalAmount.InexactFloat64())
		row.AddCell().SetString(o.VoucherCode)
		row.AddCell().SetString(o.CreatedAt.Format(timeLayout))

		paid := ""
		if o.PaidAt != nil {
			paid = o.PaidAt.Format(timeLayout)
		}
		row.AddCell().SetString(paid)
	}

	return file.Write(w)
}
