// services/notifier_service.go
package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"peakone-billing-backend/models"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotifierService runs the daily overdue sweep: sent invoices past their due
// date flip to overdue and the customer gets an SMS payment reminder.
type NotifierService struct {
	db       *gorm.DB
	log      *zap.Logger
	invoices *InvoiceService
	client   *twilio.RestClient
	from     string
}

func NewNotifierService(db *gorm.DB, log *zap.Logger, invoices *InvoiceService) *NotifierService {
	if log == nil {
		log = zap.NewNop()
	}
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &NotifierService{
		db:       db,
		log:      log.Named("notifier.service"),
		invoices: invoices,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		from: os.Getenv("TWILIO_FROM_NUMBER"),
	}
}

// StartScheduler runs the overdue sweep every day at 9 AM.
func (s *NotifierService) StartScheduler() {
	c := cron.New()

	c.AddFunc("0 9 * * *", func() {
		s.RunOverdueSweep(context.Background())
	})

	c.Start()
	s.log.Info("overdue sweep scheduler started")
}

// RunOverdueSweep marks overdue invoices and sends reminders. A failed SMS
// is logged and recorded; it never blocks the rest of the sweep.
func (s *NotifierService) RunOverdueSweep(ctx context.Context) {
	overdue, err := s.invoices.MarkOverdue(ctx, time.Now())
	if err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if len(overdue) == 0 {
		return
	}
	s.log.Info("invoices marked overdue", zap.Int("count", len(overdue)))

	for _, invoice := range overdue {
		s.sendOverdueReminder(ctx, invoice)
	}
}

func (s *NotifierService) sendOverdueReminder(ctx context.Context, invoice models.Invoice) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", invoice.CustomerID).Error; err != nil {
		s.log.Warn("customer lookup failed for reminder",
			zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		return
	}
	if customer.Phone == "" {
		return
	}

	message := fmt.Sprintf(
		"Hi %s, invoice %s for $%.2f was due on %s. Please arrange payment at your earliest convenience.",
		customer.Name, invoice.InvoiceNumber, invoice.BalanceDue, invoice.DueDate.Format("Jan 2, 2006"))

	entry := models.NotificationLog{
		CustomerID: customer.ID,
		InvoiceID:  invoice.ID,
		Type:       "overdue",
		Message:    message,
		Channel:    "sms",
		SentAt:     time.Now(),
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(customer.Phone)
	params.SetFrom(s.from)
	params.SetBody(message)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		s.log.Warn("overdue SMS failed",
			zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		entry.Status = "failed"
		entry.ErrorMessage = err.Error()
	} else {
		entry.Status = "sent"
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Warn("notification log write failed", zap.Error(err))
	}
}
