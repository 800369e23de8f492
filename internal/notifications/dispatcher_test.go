package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	"github.com/partnerly/dispatch-backend/pkg/logger"
	"github.com/partnerly/dispatch-backend/pkg/mailer"
)

type fakeNotificationsRepo struct {
	rows      []models.Notification
	createErr error
}

func (f *fakeNotificationsRepo) Create(ctx context.Context, notification *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, *notification)
	return nil
}

func (f *fakeNotificationsRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Notification, error) {
	return f.rows, nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeNotificationsRepo, *mailer.Recorder) {
	t.Helper()

	repo := &fakeNotificationsRepo{}
	recorder := mailer.NewRecorder()
	dispatcher, err := NewDispatcher(repo, recorder, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return dispatcher, repo, recorder
}

func TestDispatchRendersPerRecipientLocale(t *testing.T) {
	dispatcher, repo, recorder := newTestDispatcher(t)
	requestID := uuid.New()

	result, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		RequestID: requestID,
		Type:      enums.NotificationTypeDispatch,
		Template:  enums.TemplateAssigned,
		Recipients: []Recipient{
			{Email: "english@example.com", Locale: enums.LocaleEnglish},
			{Email: "arabic@example.com", Locale: enums.LocaleArabic},
		},
		Data: TemplateData{RequestNumber: 1042, PartnerName: "Sparkle Cleaners", TimeoutMinutes: 30},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resultErr := result.Err(); resultErr != nil {
		t.Fatalf("expected clean delivery, got %v", resultErr)
	}

	sent := recorder.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Subject, "#1042") {
		t.Fatalf("english subject missing request number: %q", sent[0].Subject)
	}
	if !strings.Contains(sent[1].Subject, "1042") {
		t.Fatalf("arabic subject missing request number: %q", sent[1].Subject)
	}
	if !strings.Contains(sent[1].HTML, "dir=\"rtl\"") {
		t.Fatal("arabic body should be right-to-left")
	}
	if sent[0].Text == "" || strings.Contains(sent[0].Text, "<p>") {
		t.Fatalf("messages should carry a plain-text part, got %q", sent[0].Text)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(repo.rows))
	}
	for _, row := range repo.rows {
		if !row.Delivered || row.SentAt == nil {
			t.Fatalf("expected delivered row, got %+v", row)
		}
	}
}

func TestDispatchSkipsSyntheticRecipients(t *testing.T) {
	dispatcher, repo, recorder := newTestDispatcher(t)

	result, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		RequestID: uuid.New(),
		Type:      enums.NotificationTypeDispatch,
		Template:  enums.TemplateAccepted,
		Recipients: []Recipient{
			{Email: "971500000001@placeholder.invalid", Locale: enums.LocaleArabic, Synthetic: true},
			{Email: "real@example.com", Locale: enums.LocaleEnglish},
		},
		Data: TemplateData{RequestNumber: 7, PartnerName: "Sparkle Cleaners"},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	// A skipped synthetic address is not a failure.
	if resultErr := result.Err(); resultErr != nil {
		t.Fatalf("synthetic skip must not fail the result: %v", resultErr)
	}
	sent := recorder.Sent()
	if len(sent) != 1 || sent[0].To != "real@example.com" {
		t.Fatalf("expected only the real recipient, got %+v", sent)
	}
	// A skipped synthetic address leaves no row; it is not a failure.
	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(repo.rows))
	}
}

func TestDispatchRecordsFailureAndContinues(t *testing.T) {
	dispatcher, repo, recorder := newTestDispatcher(t)
	recorder.FailFor["down@example.com"] = errors.New("sendgrid returned 502")

	result, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		RequestID: uuid.New(),
		Type:      enums.NotificationTypeSLA,
		Template:  enums.TemplateSLATimeout,
		Recipients: []Recipient{
			{Email: "down@example.com", Locale: enums.LocaleEnglish},
			{Email: "up@example.com", Locale: enums.LocaleEnglish},
		},
		Data: TemplateData{RequestNumber: 9, PartnerName: "Sparkle Cleaners", TimeoutMinutes: 30},
	})
	if err != nil {
		t.Fatalf("send failures must not fail the dispatch: %v", err)
	}

	// The failure is visible to the caller as a per-recipient result.
	resultErr := result.Err()
	if resultErr == nil {
		t.Fatal("expected the failed recipient to surface in the result")
	}
	if !strings.Contains(resultErr.Error(), "down@example.com") {
		t.Fatalf("result error should name the failed recipient: %v", resultErr)
	}
	var failedResults, deliveredResults int
	for _, delivery := range result.Deliveries {
		if delivery.Err != nil {
			failedResults++
		} else {
			deliveredResults++
		}
	}
	if failedResults != 1 || deliveredResults != 1 {
		t.Fatalf("expected 1 failed and 1 delivered result, got %d/%d", failedResults, deliveredResults)
	}

	sent := recorder.Sent()
	if len(sent) != 1 || sent[0].To != "up@example.com" {
		t.Fatalf("expected the healthy recipient delivered, got %+v", sent)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("expected both attempts recorded, got %d", len(repo.rows))
	}
	var failed, delivered int
	for _, row := range repo.rows {
		if row.Delivered {
			delivered++
		} else {
			failed++
			if row.Error == nil || !strings.Contains(*row.Error, "502") {
				t.Fatalf("failed row should carry the send error, got %+v", row)
			}
		}
	}
	if failed != 1 || delivered != 1 {
		t.Fatalf("expected 1 failed and 1 delivered, got %d/%d", failed, delivered)
	}
}

func TestDispatchReturnsRepoErrors(t *testing.T) {
	dispatcher, repo, _ := newTestDispatcher(t)
	repo.createErr = errors.New("db unavailable")

	_, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		RequestID:  uuid.New(),
		Type:       enums.NotificationTypeDispatch,
		Template:   enums.TemplateCompleted,
		Recipients: []Recipient{{Email: "real@example.com", Locale: enums.LocaleEnglish}},
		Data:       TemplateData{RequestNumber: 3},
	})
	if err == nil {
		t.Fatal("expected record-keeping error")
	}
}
