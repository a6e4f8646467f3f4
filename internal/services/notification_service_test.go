package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/database/testutil"
	"github.com/laundrypro/server/internal/models"
	"github.com/laundrypro/server/internal/whatsapp"
	apperrors "github.com/laundrypro/server/pkg/errors"
)

type fakeSender struct {
	enabled   bool
	results   []whatsapp.SendResult
	templates []whatsapp.TemplateMessage
	texts     []string
}

func (f *fakeSender) Enabled() bool { return f.enabled }

func (f *fakeSender) next() whatsapp.SendResult {
	if len(f.results) == 0 {
		return whatsapp.SendResult{Success: true, MessageID: "wamid.test"}
	}
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result
}

func (f *fakeSender) SendTemplate(_ context.Context, msg whatsapp.TemplateMessage) whatsapp.SendResult {
	f.templates = append(f.templates, msg)
	return f.next()
}

func (f *fakeSender) SendText(_ context.Context, to, body string) whatsapp.SendResult {
	f.texts = append(f.texts, body)
	return f.next()
}

func newNotificationServiceForTest(t *testing.T, sender MessageSender) (*NotificationService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewNotificationService(db, sender, WithBulkDelay(0))
	require.NoError(t, err)
	return svc, db
}

func seedCustomer(t *testing.T, db *gorm.DB, name, phone string) models.Customer {
	t.Helper()

	customer := models.Customer{Name: name, Phone: phone, IsActive: true}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}

func TestSendTemplateNotification(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Asha", "919876543210")

	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:         customer.ID,
		Type:               models.NotificationOrderConfirmation,
		TemplateName:       "order_confirmation",
		TemplateParameters: []string{"Asha", "LP-1001", "450.00"},
	})
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Equal(t, OutcomeSent, outcome.Status)
	require.Equal(t, "wamid.test", outcome.MessageID)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", outcome.NotificationID).Error)
	require.Equal(t, models.StatusSent, stored.Status)
	require.NotNil(t, stored.WhatsAppMessageID)
	require.Equal(t, "wamid.test", *stored.WhatsAppMessageID)
	require.NotNil(t, stored.SentAt)
	require.Contains(t, stored.MessageText, "Asha")
	require.Contains(t, stored.MessageText, "LP-1001")
	require.NotContains(t, stored.MessageText, "{{param")

	require.Len(t, sender.templates, 1)
	require.Equal(t, []string{"Asha", "LP-1001", "450.00"}, sender.templates[0].BodyParams)
}

func TestSendCustomMessage(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Ravi", "919811122233")

	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationCustom,
		CustomMessage: "Your laundry is ready for pickup!",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome.Status)
	require.Len(t, sender.texts, 1)
	require.Equal(t, "Your laundry is ready for pickup!", sender.texts[0])
}

func TestSendRequiresTemplateOrCustomMessage(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Ravi", "919811122233")

	_, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID: customer.ID,
		Type:       models.NotificationCustom,
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSendUnknownCustomer(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, _ := newNotificationServiceForTest(t, sender)

	_, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    "missing-id",
		Type:          models.NotificationCustom,
		CustomMessage: "hello",
	})
	require.ErrorIs(t, err, apperrors.ErrCustomerNotFound)
}

func TestSendUnknownTemplate(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Ravi", "919811122233")

	_, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:   customer.ID,
		Type:         models.NotificationCustom,
		TemplateName: "no_such_template",
	})
	require.ErrorIs(t, err, apperrors.ErrTemplateNotFound)
}

func TestSendNoContactDetails(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "NoPhone", "")

	_, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationCustom,
		CustomMessage: "hello",
	})
	require.ErrorIs(t, err, apperrors.ErrNoContact)
}

func TestSendRejectsTooManyParameters(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Asha", "919876543210")

	params := make([]string, 11)
	for i := range params {
		params[i] = "x"
	}

	_, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:         customer.ID,
		Type:               models.NotificationOrderConfirmation,
		TemplateName:       "order_confirmation",
		TemplateParameters: params,
	})
	require.Error(t, err)
	require.Empty(t, sender.templates)
}

func TestSendOptedOutCreatesNoRecord(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "OptedOut", "919800000001")

	optedOut := false
	_, err := svc.prefs.Update(context.Background(), customer.ID, UpdatePreferencesInput{
		WhatsAppOptedIn: &optedOut,
	})
	require.NoError(t, err)

	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationCustom,
		CustomMessage: "hello",
	})
	require.NoError(t, err)
	require.False(t, outcome.Success)
	require.Equal(t, OutcomeOptedOut, outcome.Status)
	require.Empty(t, sender.texts)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSendCategoryOptOut(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "NoPromos", "919800000002")

	noPromos := false
	_, err := svc.prefs.Update(context.Background(), customer.ID, UpdatePreferencesInput{
		PromotionalMessages: &noPromos,
	})
	require.NoError(t, err)

	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationPromotional,
		CustomMessage: "20% off this week",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeOptedOut, outcome.Status)

	// Order updates remain allowed.
	outcome, err = svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationStatusUpdate,
		CustomMessage: "your order is ready",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome.Status)
}

func TestSendPreferencePhoneOverride(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "AltPhone", "919800000003")

	alt := "919899999999"
	_, err := svc.prefs.Update(context.Background(), customer.ID, UpdatePreferencesInput{
		WhatsAppPhone: &alt,
	})
	require.NoError(t, err)

	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationCustom,
		CustomMessage: "hello",
	})
	require.NoError(t, err)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", outcome.NotificationID).Error)
	require.Equal(t, alt, stored.RecipientPhone)
}

func TestSendScheduledSkipsChannel(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Later", "919800000004")

	future := time.Now().Add(2 * time.Hour)
	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationCustom,
		CustomMessage: "pickup tomorrow",
		ScheduledAt:   &future,
	})
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Equal(t, OutcomeScheduled, outcome.Status)
	require.Empty(t, sender.texts)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", outcome.NotificationID).Error)
	require.Equal(t, models.StatusPending, stored.Status)
}

func TestSendChannelFailureRecorded(t *testing.T) {
	sender := &fakeSender{
		enabled: true,
		results: []whatsapp.SendResult{{Success: false, Error: "rate limited"}},
	}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Unlucky", "919800000005")

	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:    customer.ID,
		Type:          models.NotificationCustom,
		CustomMessage: "hello",
	})
	require.NoError(t, err)
	require.False(t, outcome.Success)
	require.Equal(t, OutcomeFailed, outcome.Status)
	require.Equal(t, "rate limited", outcome.Error)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", outcome.NotificationID).Error)
	require.Equal(t, models.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	require.Equal(t, "rate limited", *stored.ErrorMessage)
	require.Nil(t, stored.SentAt)
}

func TestSendBulkOverCapRejectedBeforeAnySend(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, _ := newNotificationServiceForTest(t, sender)

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = "id"
	}

	_, err := svc.SendBulk(context.Background(), BulkNotificationInput{
		CustomerIDs:   ids,
		Type:          models.NotificationPromotional,
		CustomMessage: "sale",
	})
	require.Error(t, err)
	require.Empty(t, sender.texts)
	require.Empty(t, sender.templates)
}

func TestSendBulkIsolatesFailures(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	good := seedCustomer(t, db, "Good", "919800000006")
	other := seedCustomer(t, db, "Other", "919800000007")

	report, err := svc.SendBulk(context.Background(), BulkNotificationInput{
		CustomerIDs:   []string{good.ID, "missing-customer", other.ID},
		Type:          models.NotificationPromotional,
		CustomMessage: "sale on saturday",
	})
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 2, report.Sent)
	require.Equal(t, 1, report.Failed)
	require.Len(t, sender.texts, 2)
	require.Equal(t, OutcomeFailed, report.Outcomes["missing-customer"].Status)
}

func TestSendBulkCountsOptOutsAsSkipped(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	in := seedCustomer(t, db, "In", "919800000008")
	out := seedCustomer(t, db, "Out", "919800000009")

	optedOut := false
	_, err := svc.prefs.Update(context.Background(), out.ID, UpdatePreferencesInput{
		WhatsAppOptedIn: &optedOut,
	})
	require.NoError(t, err)

	report, err := svc.SendBulk(context.Background(), BulkNotificationInput{
		CustomerIDs:   []string{in.ID, out.ID},
		Type:          models.NotificationCustom,
		CustomMessage: "hello",
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Sent)
	require.Equal(t, 1, report.Skipped)
	require.Zero(t, report.Failed)
}

func TestRetryFailedRespectsCeiling(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Retry", "919800000010")

	eligible := models.Notification{
		CustomerID:     customer.ID,
		Type:           models.NotificationCustom,
		RecipientPhone: customer.Phone,
		MessageText:    "first",
		Status:         models.StatusFailed,
		RetryCount:     1,
	}
	exhausted := models.Notification{
		CustomerID:     customer.ID,
		Type:           models.NotificationCustom,
		RecipientPhone: customer.Phone,
		MessageText:    "second",
		Status:         models.StatusFailed,
		RetryCount:     3,
	}
	require.NoError(t, db.Create(&eligible).Error)
	require.NoError(t, db.Create(&exhausted).Error)

	report, err := svc.RetryFailed(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, report.Attempted)
	require.Equal(t, 1, report.Sent)

	var retried models.Notification
	require.NoError(t, db.First(&retried, "id = ?", eligible.ID).Error)
	require.Equal(t, models.StatusSent, retried.Status)
	require.Equal(t, 2, retried.RetryCount)

	var untouched models.Notification
	require.NoError(t, db.First(&untouched, "id = ?", exhausted.ID).Error)
	require.Equal(t, models.StatusFailed, untouched.Status)
	require.Equal(t, 3, untouched.RetryCount)
}

func TestRetryFailedIncrementsCountOnFailure(t *testing.T) {
	sender := &fakeSender{
		enabled: true,
		results: []whatsapp.SendResult{{Success: false, Error: "still down"}},
	}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Retry", "919800000011")

	failed := models.Notification{
		CustomerID:     customer.ID,
		Type:           models.NotificationCustom,
		RecipientPhone: customer.Phone,
		MessageText:    "oops",
		Status:         models.StatusFailed,
	}
	require.NoError(t, db.Create(&failed).Error)

	report, err := svc.RetryFailed(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", failed.ID).Error)
	require.Equal(t, 1, stored.RetryCount)
	require.Equal(t, models.StatusFailed, stored.Status)
}

func TestDispatchDueSendsScheduled(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Due", "919800000012")

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	due := models.Notification{
		CustomerID:     customer.ID,
		Type:           models.NotificationPickupReminder,
		RecipientPhone: customer.Phone,
		MessageText:    "pickup now",
		Status:         models.StatusPending,
		ScheduledAt:    &past,
	}
	notYet := models.Notification{
		CustomerID:     customer.ID,
		Type:           models.NotificationPickupReminder,
		RecipientPhone: customer.Phone,
		MessageText:    "pickup later",
		Status:         models.StatusPending,
		ScheduledAt:    &future,
	}
	require.NoError(t, db.Create(&due).Error)
	require.NoError(t, db.Create(&notYet).Error)

	sent, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", due.ID).Error)
	require.Equal(t, models.StatusSent, stored.Status)

	stored = models.Notification{}
	require.NoError(t, db.First(&stored, "id = ?", notYet.ID).Error)
	require.Equal(t, models.StatusPending, stored.Status)
}

func TestDispatchDueKeepsHeaderParameters(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Header", "919800000022")

	future := time.Now().Add(time.Hour)
	outcome, err := svc.Send(context.Background(), SendNotificationInput{
		CustomerID:         customer.ID,
		Type:               models.NotificationOrderConfirmation,
		TemplateName:       "order_confirmation",
		TemplateParameters: []string{"Header", "LP-3001", "120.00"},
		HeaderParameters:   []string{"Monsoon Offer"},
		ScheduledAt:        &future,
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeScheduled, outcome.Status)
	require.Empty(t, sender.templates)

	require.NoError(t, db.Model(&models.Notification{}).
		Where("id = ?", outcome.NotificationID).
		Update("scheduled_at", time.Now().Add(-time.Minute)).Error)

	sent, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	require.Len(t, sender.templates, 1)
	require.Equal(t, []string{"Monsoon Offer"}, sender.templates[0].HeaderParams)
	require.Equal(t, []string{"Header", "LP-3001", "120.00"}, sender.templates[0].BodyParams)
}

func TestStatsComputesRates(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Stats", "919800000013")

	rows := []models.MessageStatus{
		models.StatusSent,
		models.StatusDelivered,
		models.StatusRead,
		models.StatusFailed,
	}
	for _, status := range rows {
		require.NoError(t, db.Create(&models.Notification{
			CustomerID:     customer.ID,
			Type:           models.NotificationCustom,
			RecipientPhone: customer.Phone,
			MessageText:    "m",
			Status:         status,
		}).Error)
	}
	require.NoError(t, db.Create(&models.Notification{
		CustomerID:     customer.ID,
		Type:           models.NotificationCustom,
		RecipientPhone: customer.Phone,
		MessageText:    "pending",
		Status:         models.StatusPending,
	}).Error)

	stats, err := svc.Stats(context.Background(), 30, "")
	require.NoError(t, err)
	require.Equal(t, int64(4), stats.TotalSent)
	require.Equal(t, int64(2), stats.TotalDelivered)
	require.Equal(t, int64(1), stats.TotalRead)
	require.Equal(t, int64(1), stats.TotalFailed)
	require.Equal(t, int64(1), stats.TotalPending)
	require.InDelta(t, 50.0, stats.DeliveryRate, 0.01)
	// Read rate is measured against delivered messages, not all dispatches.
	require.InDelta(t, 50.0, stats.ReadRate, 0.01)
	require.InDelta(t, 25.0, stats.FailureRate, 0.01)
	require.Equal(t, int64(4), stats.Last24Hours)
}

func TestStatsZeroSendsAvoidsDivisionByZero(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, _ := newNotificationServiceForTest(t, sender)

	stats, err := svc.Stats(context.Background(), 30, "")
	require.NoError(t, err)
	require.Zero(t, stats.TotalSent)
	require.Zero(t, stats.DeliveryRate)
	require.Zero(t, stats.ReadRate)
	require.Zero(t, stats.FailureRate)
}

func TestStatsReadRateZeroWhenNothingDelivered(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Undelivered", "919800000023")

	for _, status := range []models.MessageStatus{models.StatusSent, models.StatusFailed} {
		require.NoError(t, db.Create(&models.Notification{
			CustomerID:     customer.ID,
			Type:           models.NotificationCustom,
			RecipientPhone: customer.Phone,
			MessageText:    "m",
			Status:         status,
		}).Error)
	}

	stats, err := svc.Stats(context.Background(), 30, "")
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalSent)
	require.Zero(t, stats.TotalDelivered)
	require.Zero(t, stats.ReadRate)
	require.InDelta(t, 50.0, stats.FailureRate, 0.01)
}

func TestSendOrderNotificationMapsEvent(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Meera", "919800000014")

	order := models.Order{
		CustomerID:  customer.ID,
		TrackingID:  "LP-2042",
		Status:      "processing",
		FinalAmount: 325.50,
	}
	require.NoError(t, db.Create(&order).Error)

	outcome, err := svc.SendOrderNotification(context.Background(), order.ID, OrderEventCreated)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome.Status)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", outcome.NotificationID).Error)
	require.Equal(t, models.NotificationOrderConfirmation, stored.Type)
	require.NotNil(t, stored.OrderID)
	require.Equal(t, order.ID, *stored.OrderID)
	require.Contains(t, stored.MessageText, "Meera")
	require.Contains(t, stored.MessageText, "LP-2042")
	require.Contains(t, stored.MessageText, "325.50")
}

func TestSendOrderNotificationUnknownEvent(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Meera", "919800000015")

	order := models.Order{CustomerID: customer.ID, TrackingID: "LP-2043"}
	require.NoError(t, db.Create(&order).Error)

	_, err := svc.SendOrderNotification(context.Background(), order.ID, OrderEvent("bogus"))
	require.Error(t, err)
}

func TestSendLoyaltyNotification(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Loyal", "919800000016")
	require.NoError(t, db.Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Update("loyalty_points", 120).Error)

	outcome, err := svc.SendLoyaltyNotification(context.Background(), customer.ID, 20, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome.Status)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", outcome.NotificationID).Error)
	require.Equal(t, models.NotificationLoyaltyUpdate, stored.Type)
	require.Contains(t, stored.MessageText, "20")

	outcome, err = svc.SendLoyaltyNotification(context.Background(), customer.ID, 0, "Gold")
	require.NoError(t, err)
	stored = models.Notification{}
	require.NoError(t, db.First(&stored, "id = ?", outcome.NotificationID).Error)
	require.Contains(t, stored.MessageText, "Gold")
}

func TestListNotificationsFilters(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	a := seedCustomer(t, db, "A", "919800000017")
	b := seedCustomer(t, db, "B", "919800000018")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Notification{
			CustomerID:     a.ID,
			Type:           models.NotificationCustom,
			RecipientPhone: a.Phone,
			MessageText:    "m",
			Status:         models.StatusSent,
		}).Error)
	}
	require.NoError(t, db.Create(&models.Notification{
		CustomerID:     b.ID,
		Type:           models.NotificationPromotional,
		RecipientPhone: b.Phone,
		MessageText:    "promo",
		Status:         models.StatusFailed,
	}).Error)

	rows, total, err := svc.List(context.Background(), ListNotificationsInput{CustomerID: a.ID})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, rows, 3)

	rows, total, err = svc.List(context.Background(), ListNotificationsInput{Status: models.StatusFailed})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, models.NotificationPromotional, rows[0].Type)

	rows, total, err = svc.List(context.Background(), ListNotificationsInput{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
	require.Len(t, rows, 2)
}

func TestCleanupOlderThanKeepsPending(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, db := newNotificationServiceForTest(t, sender)
	customer := seedCustomer(t, db, "Old", "919800000019")

	old := time.Now().AddDate(0, 0, -120)
	stale := models.Notification{
		BaseModel:      models.BaseModel{CreatedAt: old},
		CustomerID:     customer.ID,
		Type:           models.NotificationCustom,
		RecipientPhone: customer.Phone,
		MessageText:    "stale",
		Status:         models.StatusSent,
	}
	pending := models.Notification{
		BaseModel:      models.BaseModel{CreatedAt: old},
		CustomerID:     customer.ID,
		Type:           models.NotificationCustom,
		RecipientPhone: customer.Phone,
		MessageText:    "still pending",
		Status:         models.StatusPending,
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&pending).Error)

	removed, err := svc.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
