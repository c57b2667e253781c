package service

import (
	"context"
	"errors"
	"time"

	"homehelp/internal/ekyc"
	profilemodels "homehelp/internal/profile/models"
	profilestore "homehelp/internal/profile/store"
	"homehelp/internal/verification/models"
	id "homehelp/pkg/domain"
	dErrors "homehelp/pkg/domain-errors"
)

// materialize writes the verified identity into the durable profile for the
// flow's class. The actor's existing profile, if any, is refreshed in place;
// otherwise a new one is created. Re-running with the same payload is a
// no-op beyond bumping timestamps, so a retried verify cannot double-create.
func (svc *Service) materialize(ctx context.Context, actorID id.UserID, flow models.Flow, governmentID string, identity ekyc.IdentityPayload) (*profilemodels.Profile, error) {
	class := flow.ProfileClass()
	now := time.Now().UTC()

	existing, err := svc.profiles.GetByUser(ctx, actorID, class)
	if err != nil && !errors.Is(err, profilestore.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "profile lookup failed")
	}

	if existing != nil {
		applyIdentity(existing, governmentID, identity, now)
		if err := svc.profiles.Update(ctx, existing); err != nil {
			if errors.Is(err, profilestore.ErrDuplicateIdentity) {
				return nil, dErrors.New(dErrors.CodeDuplicateIdentity, "this id is already registered to another account")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
		}
		svc.countMaterialized(class)
		return existing, nil
	}

	profile := &profilemodels.Profile{
		ID:          id.NewProfileID(),
		Class:       class,
		OwnerUserID: actorID,
		CreatedAt:   now,
	}
	applyIdentity(profile, governmentID, identity, now)
	if err := svc.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, profilestore.ErrDuplicateIdentity) {
			// Another account holds this id within the class; their profile
			// is left untouched.
			return nil, dErrors.New(dErrors.CodeDuplicateIdentity, "this id is already registered to another account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}
	svc.countMaterialized(class)
	return profile, nil
}

// applyIdentity overwrites the profile's identity fields from the provider
// payload and marks it verified.
func applyIdentity(p *profilemodels.Profile, governmentID string, identity ekyc.IdentityPayload, now time.Time) {
	p.GovernmentID = governmentID
	p.Status = profilemodels.StatusVerified
	p.VerifiedAt = &now
	p.Name = identity.Name
	p.CareOf = identity.CareOf
	p.DateOfBirth = identity.DateOfBirth
	p.YearOfBirth = identity.YearOfBirth
	p.Gender = identity.Gender
	p.Photo = identity.Photo
	p.FullAddress = identity.FullAddress
	p.Address = profilemodels.Address{
		House:       identity.Address.House,
		Landmark:    identity.Address.Landmark,
		Street:      identity.Address.Street,
		Subdistrict: identity.Address.Subdistrict,
		VTC:         identity.Address.VTC,
		District:    identity.Address.District,
		State:       identity.Address.State,
		Pincode:     identity.Address.Pincode,
		PostOffice:  identity.Address.PostOffice,
		Country:     identity.Address.Country,
	}
	p.Legacy = profilemodels.DeriveLegacyAddress(p.Address)
	p.UpdatedAt = now
}

func (svc *Service) countMaterialized(class profilemodels.Class) {
	if svc.metrics != nil {
		svc.metrics.IncrementProfilesMaterialized(string(class))
	}
}
