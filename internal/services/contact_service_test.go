package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/internal/database/testutil"
	"github.com/canopyhq/canopy/pkg/mail"
)

type captureMailer struct {
	sent []mail.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestSubmitStoresAndNotifies(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &captureMailer{}

	svc, err := NewContactService(db, mailer, "ops@example.com")
	require.NoError(t, err)

	message, err := svc.Submit(context.Background(), ContactInput{
		Name:    "Dana Reyes",
		Email:   "Dana@Example.com",
		Subject: "Pricing question",
		Body:    "How much?",
	})
	require.NoError(t, err)
	require.Equal(t, "dana@example.com", message.Email)
	require.False(t, message.IsRead)

	require.Len(t, mailer.sent, 1)
	require.Equal(t, []string{"ops@example.com"}, mailer.sent[0].To)
	require.Contains(t, mailer.sent[0].Subject, "Pricing question")
}

func TestSubmitSurvivesMailerFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &captureMailer{err: errors.New("smtp down")}

	svc, err := NewContactService(db, mailer, "ops@example.com")
	require.NoError(t, err)

	message, err := svc.Submit(context.Background(), ContactInput{
		Name:  "Dana",
		Email: "dana@example.com",
		Body:  "hello",
	})
	require.NoError(t, err)
	require.NotEmpty(t, message.ID)
}

func TestSubmitWithoutMailerConfigured(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewContactService(db, nil, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), ContactInput{
		Name:  "Dana",
		Email: "dana@example.com",
		Body:  "hello",
	})
	require.NoError(t, err)
}

func TestListUnreadAndMarkRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewContactService(db, nil, "")
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.Submit(ctx, ContactInput{Name: "A", Email: "a@example.com", Body: "x"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, ContactInput{Name: "B", Email: "b@example.com", Body: "y"})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)

	unread, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "b@example.com", unread[0].Email)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err = svc.Get(ctx, first.ID)
	require.Error(t, err)
}
