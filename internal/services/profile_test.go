package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VivreleHpi/crohn-companion-app/internal/common"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

func TestProfileService_LoadCreatesOnce(t *testing.T) {
	sp := session.NewStatic(ana)
	m, store := newManager(sp)
	svc := NewProfileService(m, sp, logging.Discard())
	ctx := context.Background()

	p, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, p.ID)
	assert.Equal(t, ana.Email, p.Email)
	assert.Equal(t, ana.FullName, p.FullName)

	again, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, 1, countRows(t, store, "profiles"))
}

func TestProfileService_Update(t *testing.T) {
	sp := session.NewStatic(ana)
	m, _ := newManager(sp)
	svc := NewProfileService(m, sp, logging.Discard())
	ctx := context.Background()

	phone := "+34 600 000 000"
	info := "Ileocolonic, diagnosed 2019"
	p, err := svc.Update(ctx, ProfileUpdate{PhoneNumber: &phone, MedicalInfo: &info})
	require.NoError(t, err)

	assert.Equal(t, ana.ID, p.ID)
	assert.Equal(t, ana.FullName, p.FullName)
	assert.Equal(t, phone, p.PhoneNumber)
	assert.Equal(t, info, p.MedicalInfo)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestProfileService_SignedOut(t *testing.T) {
	sp := session.NewStatic(session.Identity{})
	m, store := newManager(sp)
	svc := NewProfileService(m, sp, logging.Discard())

	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)

	name := "x"
	_, err = svc.Update(context.Background(), ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Zero(t, countRows(t, store, "profiles"))
}
