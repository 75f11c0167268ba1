package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	created  []Notification
	enabled  bool
	from     string
	settings error
}

func (m *memStore) CreateNotification(ctx context.Context, tenantID, userID, ntype, title, body string) error {
	m.created = append(m.created, Notification{Type: ntype, Title: title, Body: body})
	return nil
}

func (m *memStore) ListNotifications(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	return m.created, nil
}

func (m *memStore) CountNotifications(ctx context.Context, tenantID, userID string) (int, error) {
	return len(m.created), nil
}

func (m *memStore) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	return nil
}

func (m *memStore) EmailSettings(ctx context.Context, tenantID string) (bool, string, error) {
	return m.enabled, m.from, m.settings
}

func (m *memStore) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	m.enabled, m.from = enabled, from
	return nil
}

type fakeMailer struct {
	to, from, subject string
	err               error
}

func (f *fakeMailer) Send(ctx context.Context, from, to, subject, body string) error {
	f.from, f.to, f.subject = from, to, subject
	return f.err
}

func TestSendRendersAndStores(t *testing.T) {
	store := &memStore{enabled: true}
	mailer := &fakeMailer{}
	svc := New(store, mailer)

	err := svc.Send(context.Background(), Recipient{TenantID: "t1", UserID: "u1", Email: "ana@example.com"}, TemplateReportReady, map[string]string{
		"name":      "Ana",
		"cycleName": "2026 H1",
	})
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, "Your 2026 H1 results are ready", store.created[0].Title)
	assert.Contains(t, store.created[0].Body, "Hello Ana")
	assert.Equal(t, "ana@example.com", mailer.to)
	assert.Equal(t, svc.DefaultFrom, mailer.from)
}

func TestSendSkipsMailWhenDisabled(t *testing.T) {
	store := &memStore{enabled: false}
	mailer := &fakeMailer{}
	svc := New(store, mailer)

	require.NoError(t, svc.Send(context.Background(), Recipient{TenantID: "t1", UserID: "u1", Email: "ana@example.com"}, TemplateEvaluationAssigned, nil))
	assert.Empty(t, mailer.to)
}

func TestSendReportsMailFailure(t *testing.T) {
	store := &memStore{enabled: true, from: "hr@acme.test"}
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := New(store, mailer)

	err := svc.Send(context.Background(), Recipient{TenantID: "t1", Email: "ana@example.com"}, TemplateCalibrationClosed, nil)
	require.Error(t, err)
	assert.Equal(t, "hr@acme.test", mailer.from)
}

func TestSendRejectsUnknownTemplateAndAddresslessRecipient(t *testing.T) {
	svc := New(&memStore{}, nil)
	assert.ErrorIs(t, svc.Send(context.Background(), Recipient{TenantID: "t1", UserID: "u1"}, "nope", nil), ErrUnknownTemplate)
	assert.ErrorIs(t, svc.Send(context.Background(), Recipient{TenantID: "t1"}, TemplateReportReady, nil), ErrNoAddress)
}
