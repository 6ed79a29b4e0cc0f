package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

func inTx(t *testing.T, b *Backend, fn func(tx *sql.Tx) error) error {
	t.Helper()
	return b.withTx(context.Background(), "test", fn)
}

func TestTryAdmit(t *testing.T) {
	ctx := context.Background()

	t.Run("takes lowest room with space and skips full rooms", func(t *testing.T) {
		b := setupBackend(t)
		load(t, b, types.RoomTable, "id,department,capacity,occupancy\n1,M,1,1\n2,P,5,0\n3,M,2,0\n4,M,2,0\n")

		var got int64
		require.NoError(t, inTx(t, b, func(tx *sql.Tx) error {
			var err error
			got, err = tryAdmit(ctx, tx, types.DepartmentCats)
			return err
		}))
		assert.Equal(t, int64(3), got)
		assert.Equal(t, 1, roomOccupancy(t, b, 3))
		assert.Equal(t, 0, roomOccupancy(t, b, 4))
	})

	t.Run("no capacity leaves rooms unchanged", func(t *testing.T) {
		b := setupBackend(t)
		load(t, b, types.RoomTable, "id,department,capacity,occupancy\n1,M,1,1\n2,P,5,0\n")

		err := inTx(t, b, func(tx *sql.Tx) error {
			_, err := tryAdmit(ctx, tx, types.DepartmentCats)
			return err
		})
		assert.ErrorIs(t, err, types.ErrNoCapacity)
		assert.Equal(t, 1, roomOccupancy(t, b, 1))
		assert.Equal(t, 0, roomOccupancy(t, b, 2))
	})

	t.Run("zero capacity room is never chosen", func(t *testing.T) {
		b := setupBackend(t)
		load(t, b, types.RoomTable, "id,department,capacity\n1,P,0\n")

		err := inTx(t, b, func(tx *sql.Tx) error {
			_, err := tryAdmit(ctx, tx, types.DepartmentDogs)
			return err
		})
		assert.ErrorIs(t, err, types.ErrNoCapacity)
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	load(t, b, types.RoomTable, "id,department,capacity,occupancy\n1,M,3,1\n")

	require.NoError(t, inTx(t, b, func(tx *sql.Tx) error { return release(ctx, tx, 1) }))
	assert.Equal(t, 0, roomOccupancy(t, b, 1))

	err := inTx(t, b, func(tx *sql.Tx) error { return release(ctx, tx, 1) })
	assert.ErrorIs(t, err, types.ErrOccupancyUnderflow)
	assert.Equal(t, 0, roomOccupancy(t, b, 1))

	err = inTx(t, b, func(tx *sql.Tx) error { return release(ctx, tx, 99) })
	assert.ErrorIs(t, err, types.ErrOccupancyUnderflow)
}

func TestRoomCheckConstraint(t *testing.T) {
	b := setupBackend(t)
	load(t, b, types.RoomTable, "id,department,capacity,occupancy\n1,M,1,1\n")

	_, err := b.db.Exec("UPDATE room SET occupancy = 2 WHERE id = 1")
	assert.True(t, isConstraintViolation(err))
	_, err = b.db.Exec("UPDATE room SET occupancy = -1 WHERE id = 1")
	assert.True(t, isConstraintViolation(err))
}

func TestAuditOccupancy(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent ledger has no violations", func(t *testing.T) {
		b := setupReferenceBackend(t)
		_, err := b.Intake(ctx, catIntake("Mici"))
		require.NoError(t, err)

		violations, err := b.AuditOccupancy(ctx)
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("drift and over capacity are reported", func(t *testing.T) {
		b := setupBackend(t)
		load(t, b, types.RoomTable, "id,department,capacity,occupancy\n1,M,1,1\n2,M,2,0\n")
		load(t, b, types.AnimalTable, "id,name,department,sex\n1,A,M,F\n2,B,M,F\n")
		// Simulate damage made outside the ledger.
		removeTrigger(t, b, "housing_within_occupancy")
		load(t, b, types.HousingTable, "animal_id,room_id\n1,1\n2,1\n")

		violations, err := b.AuditOccupancy(ctx)
		require.NoError(t, err)

		rules := map[string]int64{}
		for _, v := range violations {
			rules[v.Rule] = v.EntityID
		}
		assert.Equal(t, map[string]int64{RuleOccupancyDrift: 1, RuleOverCapacity: 1}, rules)
	})

	t.Run("adopted animal still housed is reported", func(t *testing.T) {
		b := setupBackend(t)
		load(t, b, types.RoomTable, "id,department,capacity,occupancy\n1,P,2,1\n")
		load(t, b, types.AnimalTable, "id,name,department,sex\n1,Rex,P,M\n")
		load(t, b, types.PersonTable, "id,first_name,last_name\n1,Ana,Novak\n")
		load(t, b, types.HousingTable, "animal_id,room_id\n1,1\n")
		removeTrigger(t, b, "adoption_not_housed")
		load(t, b, types.AdoptionTable, "animal_id,person_id,date\n1,1,2024-01-01\n")

		violations, err := b.AuditOccupancy(ctx)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleAdoptedHoused, violations[0].Rule)
		assert.Equal(t, types.SeverityBlock, violations[0].Severity)
		assert.Equal(t, int64(1), violations[0].EntityID)
	})
}
