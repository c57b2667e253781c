//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homehelp/internal/profile/models"
	"homehelp/internal/profile/store"
	id "homehelp/pkg/domain"
	"homehelp/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	s := store.NewPostgresStore(pc.DB)
	ctx := context.Background()

	fullProfile := func(class models.Class, governmentID string) *models.Profile {
		now := time.Now().UTC().Truncate(time.Second)
		address := models.Address{
			House:    "12",
			Landmark: "Near Metro",
			Street:   "MG Road",
			VTC:      "Bengaluru",
			District: "Bengaluru Urban",
			State:    "Karnataka",
			Pincode:  "560038",
			Country:  "India",
		}
		return &models.Profile{
			ID:           id.NewProfileID(),
			Class:        class,
			OwnerUserID:  id.NewUserID(),
			GovernmentID: governmentID,
			Status:       models.StatusVerified,
			VerifiedAt:   &now,
			Name:         "Asha Kumari",
			CareOf:       "C/O Ram Kumar",
			DateOfBirth:  "1990-05-15",
			YearOfBirth:  1990,
			Gender:       "F",
			FullAddress:  "12 MG Road, Bengaluru",
			Address:      address,
			Legacy:       models.DeriveLegacyAddress(address),
		}
	}

	t.Run("create and read back", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))

		profile := fullProfile(models.ClassOwner, "123456789012")
		require.NoError(t, s.Create(ctx, profile))

		got, err := s.GetByID(ctx, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, profile.Name, got.Name)
		assert.Equal(t, profile.GovernmentID, got.GovernmentID)
		assert.Equal(t, "Bengaluru Urban", got.Legacy.City)
		assert.Equal(t, "Karnataka", got.Address.State)
		require.NotNil(t, got.VerifiedAt)

		byUser, err := s.GetByUser(ctx, profile.OwnerUserID, models.ClassOwner)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, byUser.ID)

		byGovID, err := s.GetByGovernmentID(ctx, models.ClassOwner, "123456789012")
		require.NoError(t, err)
		assert.Equal(t, profile.ID, byGovID.ID)
	})

	t.Run("duplicate identity within class", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))

		require.NoError(t, s.Create(ctx, fullProfile(models.ClassOwner, "123456789012")))
		err := s.Create(ctx, fullProfile(models.ClassOwner, "123456789012"))
		assert.ErrorIs(t, err, store.ErrDuplicateIdentity)

		// Same id in the helper class is a different identity space.
		require.NoError(t, s.Create(ctx, fullProfile(models.ClassHelper, "123456789012")))
	})

	t.Run("update in place", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))

		profile := fullProfile(models.ClassHelper, "999988887777")
		require.NoError(t, s.Create(ctx, profile))

		profile.Name = "Asha K"
		profile.Address.Pincode = "560001"
		profile.Legacy = models.DeriveLegacyAddress(profile.Address)
		require.NoError(t, s.Update(ctx, profile))

		got, err := s.GetByID(ctx, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha K", got.Name)
		assert.Equal(t, "560001", got.Address.Pincode)
	})

	t.Run("update missing profile", func(t *testing.T) {
		err := s.Update(ctx, fullProfile(models.ClassOwner, "000011112222"))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetByID(ctx, id.NewProfileID())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
