package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/common"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/repositories"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

// ProfileUpdate carries the fields to change; nil fields are left alone.
type ProfileUpdate struct {
	FullName    *string
	Email       *string
	PhoneNumber *string
	MedicalInfo *string
}

func (u ProfileUpdate) patch() backend.Row {
	p := backend.Row{}
	if u.FullName != nil {
		p["full_name"] = *u.FullName
	}
	if u.Email != nil {
		p["email"] = *u.Email
	}
	if u.PhoneNumber != nil {
		p["phone_number"] = *u.PhoneNumber
	}
	if u.MedicalInfo != nil {
		p["medical_info"] = *u.MedicalInfo
	}
	return p
}

type ProfileService struct {
	profiles *repositories.ProfileRepository
	session  session.Provider
	log      logging.Logger
}

func NewProfileService(m *repositories.Manager, sp session.Provider, log logging.Logger) *ProfileService {
	return &ProfileService{profiles: m.Profiles, session: sp, log: log}
}

// Load returns the signed-in user's profile, creating it from the identity
// on first access.
func (s *ProfileService) Load(ctx context.Context) (models.Profile, error) {
	ident, ok := s.session.CurrentIdentity(ctx)
	if !ok {
		return models.Profile{}, common.ErrNotAuthenticated
	}

	p, err := s.profiles.Get(ctx, ident.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return models.Profile{}, err
	}

	s.log.Info(ctx, "creating missing profile", "user_id", ident.ID)
	return s.profiles.Create(ctx, models.Profile{
		ID:       ident.ID,
		Email:    ident.Email,
		FullName: ident.FullName,
	})
}

func (s *ProfileService) Update(ctx context.Context, u ProfileUpdate) (models.Profile, error) {
	ident, ok := s.session.CurrentIdentity(ctx)
	if !ok {
		return models.Profile{}, common.ErrNotAuthenticated
	}
	if _, err := s.Load(ctx); err != nil {
		return models.Profile{}, err
	}

	updated, err := s.profiles.Update(ctx, ident.ID, u.patch())
	if err != nil {
		return models.Profile{}, err
	}
	if len(updated) == 0 {
		return models.Profile{}, fmt.Errorf("profile %s: %w", ident.ID, common.ErrNotFound)
	}
	return updated[0], nil
}
