// Package receipts renders an order into a PDF receipt with an embedded
// QR code carrying the order reference.
package receipts

import (
	"bytes"
	"fmt"

	"edabot/models"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Build renders the receipt for one order.
func Build(o *models.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("cp1251")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, tr(fmt.Sprintf("Заказ #%d", o.ID)))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr("Дата: "+o.CreatedAt.Format("02.01.2006 15:04")))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Имя: "+o.UserName))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Телефон: "+o.Phone))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Адрес: "+o.Address))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(110, 8, tr("Блюдо"))
	pdf.Cell(25, 8, tr("Кол-во"))
	pdf.Cell(35, 8, tr("Сумма"))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 11)
	for _, it := range o.Items {
		pdf.Cell(110, 7, tr(it.Name))
		pdf.Cell(25, 7, fmt.Sprintf("×%d", it.Qty))
		pdf.Cell(35, 7, fmt.Sprintf("%d", it.Sum()))
		pdf.Ln(7)
	}
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 9, tr(fmt.Sprintf("Итого: %d", o.Total)))
	pdf.Ln(14)

	if err := embedQR(pdf, o); err != nil {
		return nil, fmt.Errorf("embed qr: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func embedQR(pdf *gofpdf.Fpdf, o *models.Order) error {
	png, err := qrcode.Encode(fmt.Sprintf("edabot:order:%d", o.ID), qrcode.Medium, 256)
	if err != nil {
		return err
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	name := fmt.Sprintf("qr-%d", o.ID)
	pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(png))
	x := pdf.GetX()
	y := pdf.GetY()
	pdf.ImageOptions(name, x, y, 30, 30, false, opt, 0, "")
	return pdf.Error()
}
