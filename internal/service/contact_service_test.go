package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository/memory"
	"inbox-pilot/internal/service"
)

func TestIsKnownContactMatchesBareAddress(t *testing.T) {
	contactRepo := memory.NewInMemoryContactRepository()
	svc := service.NewContactService(contactRepo)
	ctx := context.Background()

	require.NoError(t, contactRepo.Upsert(ctx, model.NewContact("user-1", "alex@example.com", "Alex", 5, time.Now())))

	known, err := svc.IsKnownContact(ctx, "user-1", "Alex Doe <alex@example.com>")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = svc.IsKnownContact(ctx, "user-1", "Alex Doe <ALEX@EXAMPLE.COM>")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = svc.IsKnownContact(ctx, "user-1", "stranger@example.com")
	require.NoError(t, err)
	assert.False(t, known)

	// Contacts do not leak across users.
	known, err = svc.IsKnownContact(ctx, "user-2", "alex@example.com")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestAddContactMakesSenderKnown(t *testing.T) {
	contactRepo := memory.NewInMemoryContactRepository()
	svc := service.NewContactService(contactRepo)
	ctx := context.Background()

	contact, err := svc.AddContact(ctx, "user-1", "Bea Ray <bea@example.com>", "Bea")
	require.NoError(t, err)
	assert.Equal(t, "bea@example.com", contact.Email)

	known, err := svc.IsKnownContact(ctx, "user-1", "bea@example.com")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestAddContactRejectsInvalidAddress(t *testing.T) {
	svc := service.NewContactService(memory.NewInMemoryContactRepository())

	_, err := svc.AddContact(context.Background(), "user-1", "not an address", "")
	assert.True(t, apperr.IsValidationError(err))
}

func TestAddContactUpdatesExistingName(t *testing.T) {
	contactRepo := memory.NewInMemoryContactRepository()
	svc := service.NewContactService(contactRepo)
	ctx := context.Background()

	require.NoError(t, contactRepo.Upsert(ctx, model.NewContact("user-1", "alex@example.com", "", 7, time.Now())))

	contact, err := svc.AddContact(ctx, "user-1", "alex@example.com", "Alex Doe")
	require.NoError(t, err)
	assert.Equal(t, "Alex Doe", contact.Name)
	assert.Equal(t, 7, contact.MessageCount)
}

func TestRemoveContact(t *testing.T) {
	contactRepo := memory.NewInMemoryContactRepository()
	svc := service.NewContactService(contactRepo)
	ctx := context.Background()

	require.NoError(t, contactRepo.Upsert(ctx, model.NewContact("user-1", "alex@example.com", "Alex", 5, time.Now())))
	require.NoError(t, svc.RemoveContact(ctx, "user-1", "alex@example.com"))

	known, err := svc.IsKnownContact(ctx, "user-1", "alex@example.com")
	require.NoError(t, err)
	assert.False(t, known)

	err = svc.RemoveContact(ctx, "user-1", "alex@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
