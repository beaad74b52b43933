package orders

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"cropcart/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// DownloadReceipt renders the order as a PDF. Same visibility rule as GetOrder:
// the buyer or an involved farmer. Farmers get a receipt filtered to their own
// lines.
func (h *Handlers) DownloadReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, ok := h.callerIdentity(ctx, r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	order, err := h.Pipeline.OrderForUser(ctx, ps.ByName("orderid"), user)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "CropCart Order Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Order ID: %s", order.OrderID))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Date: %s", order.Date.Format("02 Jan 2006 15:04")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Buyer: %s", order.Buyer.Name))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s", order.Status))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(80, 8, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Line Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, it := range order.Items {
		pdf.CellFormat(80, 8, it.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%.2f", it.Price*float64(it.Quantity)), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f", order.Total))
	pdf.Ln(12)

	// QR payload lets the order be looked up on a handheld at pickup.
	if png, err := qrcode.Encode(order.OrderID, qrcode.Medium, 256); err == nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("order-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("order-qr", 15, pdf.GetY(), 40, 40, false, opts, 0, "")
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", order.OrderID))
	if err := pdf.Output(w); err != nil {
		http.Error(w, "Failed to generate receipt", http.StatusInternalServerError)
	}
}
