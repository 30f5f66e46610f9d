package excel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/coursebot/internal/database"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

const (
	SheetPayments = "Payments"
	SheetSales    = "Sales"
)

// ReportSource is what the payment report reads
type ReportSource interface {
	ListPayments(ctx context.Context, f resource.PaymentFilter) ([]models.Payment, error)
	GetPaymentDetails(ctx context.Context, id int64) (models.PaymentDetails, error)
}

// SalesSource is implemented by backends that aggregate sales themselves
type SalesSource interface {
	CourseSales(ctx context.Context) ([]database.CourseSales, error)
}

// ReportOptions narrows the payments sheet
type ReportOptions struct {
	Status   models.PaymentStatus // empty means every status
	Currency string
}

// ReportFileName names a report generated at t
func ReportFileName(t time.Time) string {
	return fmt.Sprintf("payments-%s.xlsx", t.Format("2006-01-02"))
}

// WriteReport renders the payments and per-course sales workbook to w
func WriteReport(ctx context.Context, src ReportSource, w io.Writer, opts ReportOptions) error {
	payments, err := src.ListPayments(ctx, resource.PaymentFilter{Status: opts.Status})
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}
	details := make([]models.PaymentDetails, 0, len(payments))
	for _, p := range payments {
		d, err := src.GetPaymentDetails(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to load payment %d: %w", p.ID, err)
		}
		details = append(details, d)
	}

	var sales []database.CourseSales
	if ss, ok := src.(SalesSource); ok && opts.Status == "" {
		if sales, err = ss.CourseSales(ctx); err != nil {
			return fmt.Errorf("failed to get course sales: %w", err)
		}
	} else {
		sales = SalesFromPayments(details)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPayments); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetSales); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	currency := opts.Currency
	if err := writeSheet(f, SheetPayments, header,
		[]interface{}{"ID", "Created", "Student", "Telegram ID", "Course", "Amount", "Currency", "Status", "Screenshot", "Confirmed at"},
		len(details), func(i int) []interface{} {
			d := details[i]
			confirmed := ""
			if d.Payment.ConfirmedAt != nil {
				confirmed = d.Payment.ConfirmedAt.Format(time.DateTime)
			}
			return []interface{}{
				d.Payment.ID,
				d.Payment.CreatedAt.Format(time.DateTime),
				d.Student.Name,
				d.Student.ExternalID,
				d.Course.Title,
				major(d.Payment.Amount),
				currency,
				string(d.Payment.Status),
				d.Payment.ScreenshotRef != "",
				confirmed,
			}
		}); err != nil {
		return err
	}

	if err := writeSheet(f, SheetSales, header,
		[]interface{}{"Course ID", "Course", "Confirmed", "Pending", "Cancelled", "Revenue", "Currency"},
		len(sales), func(i int) []interface{} {
			s := sales[i]
			return []interface{}{s.CourseID, s.Title, s.Confirmed, s.Pending, s.Cancelled, major(s.Revenue), currency}
		}); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, style int, header []interface{}, n int, row func(int) []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 16)
}

// SalesFromPayments aggregates sales per course in first-seen course order
func SalesFromPayments(details []models.PaymentDetails) []database.CourseSales {
	var (
		order []int64
		byID  = make(map[int64]*database.CourseSales)
	)
	for _, d := range details {
		s, ok := byID[d.Course.ID]
		if !ok {
			s = &database.CourseSales{CourseID: d.Course.ID, Title: d.Course.Title}
			byID[d.Course.ID] = s
			order = append(order, d.Course.ID)
		}
		switch d.Payment.Status {
		case models.PaymentConfirmed:
			s.Confirmed++
			s.Revenue += d.Payment.Amount
		case models.PaymentPending:
			s.Pending++
		case models.PaymentCancelled:
			s.Cancelled++
		}
	}
	out := make([]database.CourseSales, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func major(minor int64) float64 {
	return float64(minor) / 100
}
