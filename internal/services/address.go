package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

// AddressService maintains each user's single saved pickup address
type AddressService struct {
	store storage.Store
	log   *zap.Logger
}

func NewAddressService(store storage.Store, log *zap.Logger) *AddressService {
	return &AddressService{store: store, log: log}
}

// Upsert validates the input and updates the user's latest address in
// place, creating one when none exists.
func (s *AddressService) Upsert(ctx context.Context, userID uint, in models.AddressInput) (*models.Address, error) {
	if err := validateAddress(in); err != nil {
		return nil, err
	}

	address, err := s.store.GetLatestAddress(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		address = &models.Address{UserID: userID}
	case err != nil:
		return nil, fmt.Errorf("load address: %w", err)
	}

	address.Apply(in)
	if err := s.store.SaveAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("save address: %w", err)
	}

	s.log.Debug("address saved", zap.Uint("user_id", userID), zap.Uint("address_id", address.ID))
	return address, nil
}

// Get returns the user's latest address, or nil when none was saved.
func (s *AddressService) Get(ctx context.Context, userID uint) (*models.Address, error) {
	address, err := s.store.GetLatestAddress(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}
	return address, nil
}

// MigrationReport summarizes a legacy address migration run
type MigrationReport struct {
	Migrated int
	Skipped  int
	Invalid  map[uint]string
}

// MigrateLegacy splits users' combined legacy address strings into
// structured rows. Users who already have a structured address are skipped.
func (s *AddressService) MigrateLegacy(ctx context.Context, dryRun bool) (*MigrationReport, error) {
	users, err := s.store.GetUsersWithLegacyAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("list legacy users: %w", err)
	}

	report := &MigrationReport{Invalid: map[uint]string{}}
	for _, u := range users {
		if existing, _ := s.Get(ctx, u.ID); existing != nil {
			report.Skipped++
			continue
		}

		in, err := models.ParseLegacyAddress(u.LegacyAddress)
		if err != nil {
			report.Invalid[u.ID] = err.Error()
			continue
		}
		if !dryRun {
			address := &models.Address{UserID: u.ID}
			address.Apply(in)
			if err := s.store.SaveAddress(ctx, address); err != nil {
				return report, fmt.Errorf("save address for user %d: %w", u.ID, err)
			}
		}
		report.Migrated++
	}

	s.log.Info("legacy address migration finished",
		zap.Int("migrated", report.Migrated),
		zap.Int("skipped", report.Skipped),
		zap.Int("invalid", len(report.Invalid)),
		zap.Bool("dry_run", dryRun),
	)
	return report, nil
}

func validateAddress(in models.AddressInput) error {
	err := in.Validate()
	var fe *models.FieldError
	if errors.As(err, &fe) {
		return invalid(fe.Field, "%s", fe.Message)
	}
	return err
}
