// services/invoice_export.go
package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"peakone-billing-backend/billing"
	"peakone-billing-backend/models"
)

const exportDateLayout = "2006-01-02"

// WriteInvoiceCSV writes the generic export: line items followed by totals.
func WriteInvoiceCSV(w io.Writer, invoice models.Invoice, customer models.Customer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	_ = writer.Write([]string{"Invoice", invoice.InvoiceNumber})
	_ = writer.Write([]string{"Customer", customer.Name})
	_ = writer.Write([]string{"Period", invoice.PeriodStart.Format(exportDateLayout), invoice.PeriodEnd.Format(exportDateLayout)})
	_ = writer.Write([]string{})

	_ = writer.Write([]string{"Type", "Description", "Quantity", "Unit Price", "Amount"})
	for _, item := range invoice.Items {
		_ = writer.Write([]string{
			item.ItemType,
			item.Description,
			fmt.Sprintf("%.2f", item.Quantity),
			fmt.Sprintf("%.2f", item.UnitPrice),
			fmt.Sprintf("%.2f", item.Amount),
		})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"Subtotal", fmt.Sprintf("%.2f", invoice.Subtotal)})
	_ = writer.Write([]string{"Tax", fmt.Sprintf("%.2f", invoice.Tax)})
	_ = writer.Write([]string{"Total", fmt.Sprintf("%.2f", invoice.Total)})
	_ = writer.Write([]string{"Amount Paid", fmt.Sprintf("%.2f", invoice.AmountPaid)})
	_ = writer.Write([]string{"Balance Due", fmt.Sprintf("%.2f", invoice.BalanceDue)})
	return writer.Error()
}

// WriteAccountingCSV writes the flat accounting-import export: one row per
// line item plus a tax row, no headers beyond the column row.
func WriteAccountingCSV(w io.Writer, invoice models.Invoice, customer models.Customer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	accounts := map[string]string{
		models.ItemTypeSupport: "4000 Support Revenue",
		models.ItemTypeProject: "4100 Project Revenue",
		models.ItemTypeHosting: "4200 Hosting Revenue",
		models.ItemTypeOther:   "4900 Other Revenue",
	}

	_ = writer.Write([]string{"Date", "Invoice No", "Customer", "Account", "Description", "Amount"})
	date := invoice.InvoiceDate.Format(exportDateLayout)
	for _, item := range invoice.Items {
		account, ok := accounts[item.ItemType]
		if !ok {
			account = accounts[models.ItemTypeOther]
		}
		_ = writer.Write([]string{
			date,
			invoice.InvoiceNumber,
			customer.Name,
			account,
			item.Description,
			fmt.Sprintf("%.2f", item.Amount),
		})
	}
	if invoice.Tax != 0 {
		_ = writer.Write([]string{
			date,
			invoice.InvoiceNumber,
			customer.Name,
			"2200 Sales Tax Payable",
			"Sales tax",
			fmt.Sprintf("%.2f", invoice.Tax),
		})
	}
	return writer.Error()
}

// WriteHostingDetailCSV writes the per-site hosting export from the
// immutable snapshot captured at generation time.
func WriteHostingDetailCSV(w io.Writer, invoice models.Invoice) error {
	var snapshot []billing.MonthHostingDetail
	if len(invoice.HostingDetailSnapshot) > 0 {
		if err := json.Unmarshal(invoice.HostingDetailSnapshot, &snapshot); err != nil {
			return err
		}
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	_ = writer.Write([]string{"Month", "Site", "URL", "Billing Type", "Days Active", "Days In Month", "Gross", "Credit Applied", "Net"})
	for _, month := range snapshot {
		for _, charge := range month.Charges {
			credit := "no"
			if charge.CreditApplied {
				credit = "yes"
			}
			_ = writer.Write([]string{
				month.Month,
				charge.PropertyName,
				charge.URL,
				charge.BillingType,
				fmt.Sprintf("%d", charge.DaysActive),
				fmt.Sprintf("%d", charge.DaysInMonth),
				fmt.Sprintf("%.2f", charge.GrossAmount),
				credit,
				fmt.Sprintf("%.2f", charge.NetAmount),
			})
		}
	}
	return writer.Error()
}

// InvoiceDocument mirrors the full invoice record for the JSON export.
type InvoiceDocument struct {
	InvoiceNumber string    `json:"invoiceNumber"`
	Customer      string    `json:"customer"`
	CustomerID    string    `json:"customerId"`
	PeriodStart   string    `json:"periodStart"`
	PeriodEnd     string    `json:"periodEnd"`
	InvoiceDate   string    `json:"invoiceDate"`
	DueDate       string    `json:"dueDate"`
	Status        string    `json:"status"`
	Subtotal      float64   `json:"subtotal"`
	TaxRate       float64   `json:"taxRate"`
	Tax           float64   `json:"tax"`
	Total         float64   `json:"total"`
	AmountPaid    float64   `json:"amountPaid"`
	BalanceDue    float64   `json:"balanceDue"`
	Notes         string    `json:"notes,omitempty"`
	GeneratedAt   time.Time `json:"generatedAt"`

	Items          []InvoiceDocumentItem        `json:"items"`
	HostingDetails []billing.MonthHostingDetail `json:"hostingDetails,omitempty"`
}

type InvoiceDocumentItem struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	Amount      float64  `json:"amount"`
	SortOrder   int      `json:"sortOrder"`
	RequestIDs  []string `json:"requestIds,omitempty"`
}

// BuildInvoiceDocument assembles the JSON export mirror of an invoice,
// including nested items and linked request IDs.
func BuildInvoiceDocument(invoice models.Invoice, customer models.Customer) (InvoiceDocument, error) {
	doc := InvoiceDocument{
		InvoiceNumber: invoice.InvoiceNumber,
		Customer:      customer.Name,
		CustomerID:    invoice.CustomerID.String(),
		PeriodStart:   invoice.PeriodStart.Format(exportDateLayout),
		PeriodEnd:     invoice.PeriodEnd.Format(exportDateLayout),
		InvoiceDate:   invoice.InvoiceDate.Format(exportDateLayout),
		DueDate:       invoice.DueDate.Format(exportDateLayout),
		Status:        invoice.Status,
		Subtotal:      invoice.Subtotal,
		TaxRate:       invoice.TaxRate,
		Tax:           invoice.Tax,
		Total:         invoice.Total,
		AmountPaid:    invoice.AmountPaid,
		BalanceDue:    invoice.BalanceDue,
		Notes:         invoice.Notes,
		GeneratedAt:   time.Now().UTC(),
	}

	for _, item := range invoice.Items {
		docItem := InvoiceDocumentItem{
			Type:        item.ItemType,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
			SortOrder:   item.SortOrder,
		}
		if len(item.RequestIDs) > 0 {
			var ids []string
			if err := json.Unmarshal(item.RequestIDs, &ids); err == nil {
				docItem.RequestIDs = ids
			}
		}
		doc.Items = append(doc.Items, docItem)
	}

	if len(invoice.HostingDetailSnapshot) > 0 {
		if err := json.Unmarshal(invoice.HostingDetailSnapshot, &doc.HostingDetails); err != nil {
			return InvoiceDocument{}, err
		}
	}
	return doc, nil
}
