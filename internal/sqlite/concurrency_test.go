package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

func TestConcurrentIntake(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrency stress in short mode")
	}
	tests := []struct {
		name     string
		rooms    string
		callers  int
		capacity int
	}{
		{"more callers than places", "id,department,capacity\n1,M,5\n", 20, 5},
		{"places spread over rooms", "id,department,capacity\n1,M,2\n2,P,4\n3,M,3\n", 12, 5},
		{"fewer callers than places", "id,department,capacity\n1,M,10\n", 4, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := setupBackend(t)
			load(t, b, types.RoomTable, tt.rooms)

			var ok, full, other atomic.Int64
			var wg sync.WaitGroup
			for i := range tt.callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := b.Intake(ctx, catIntake(fmt.Sprintf("cat-%d", i)))
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, types.ErrNoCapacity):
						full.Add(1)
					default:
						other.Add(1)
						t.Errorf("intake %d: %v", i, err)
					}
				}()
			}
			wg.Wait()

			want := min(tt.callers, tt.capacity)
			assert.Equal(t, int64(want), ok.Load())
			assert.Equal(t, int64(tt.callers-want), full.Load())
			assert.Zero(t, other.Load())

			assert.Equal(t, want, countRows(t, b, "SELECT COALESCE(SUM(occupancy), 0) FROM room WHERE department = 'M'"))
			assert.Equal(t, want, countRows(t, b, "SELECT COUNT(*) FROM housing"))
			assert.Equal(t, want, countRows(t, b, "SELECT COUNT(*) FROM animal"))

			violations, err := b.AuditOccupancy(ctx)
			require.NoError(t, err)
			assert.Empty(t, violations)
		})
	}
}

func TestConcurrentAdoption(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	load(t, b, types.RoomTable, "id,department,capacity\n1,P,2\n")

	a, err := b.Intake(ctx, types.Animal{Name: "Rex", Department: types.DepartmentDogs, Sex: types.SexMale})
	require.NoError(t, err)

	const callers = 10
	persons := make([]int64, callers)
	for i := range persons {
		p, err := b.AddPerson(ctx, types.Person{FirstName: fmt.Sprintf("P%d", i), LastName: "Test"})
		require.NoError(t, err)
		persons[i] = p.ID
	}

	var ok, adopted atomic.Int64
	var wg sync.WaitGroup
	for _, personID := range persons {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Adopt(ctx, a.ID, personID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, types.ErrAlreadyAdopted):
				adopted.Add(1)
			default:
				t.Errorf("adopt: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), ok.Load())
	assert.Equal(t, int64(callers-1), adopted.Load())
	assert.Equal(t, 1, countRows(t, b, "SELECT COUNT(*) FROM adoption WHERE animal_id = ?", a.ID))
	assert.Equal(t, 0, roomOccupancy(t, b, 1))
}

func TestConcurrentIntakeAndAdoption(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrency stress in short mode")
	}
	ctx := context.Background()
	b := setupBackend(t)
	load(t, b, types.RoomTable, "id,department,capacity\n1,M,3\n")
	p, err := b.AddPerson(ctx, types.Person{FirstName: "Ana", LastName: "Novak"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := b.Intake(ctx, catIntake(fmt.Sprintf("cat-%d", i)))
			if errors.Is(err, types.ErrNoCapacity) {
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			_, err = b.Adopt(ctx, a.ID, p.ID, time.Time{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	occupancy := roomOccupancy(t, b, 1)
	assert.GreaterOrEqual(t, occupancy, 0)
	assert.LessOrEqual(t, occupancy, 3)
	assert.Equal(t, 0, occupancy, "every admitted animal was adopted")

	violations, err := b.AuditOccupancy(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}
