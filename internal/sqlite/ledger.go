// This file implements the capacity ledger: room admission and release
// inside a caller transaction, and the read-only occupancy audit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// tryAdmit claims one place in a room of department and returns the room.
// The free-capacity test and the increment are one conditional UPDATE, so
// a room another writer filled in the meantime simply matches zero rows and
// the next candidate is tried. Candidates are tried lowest id first, at most
// once each.
func tryAdmit(ctx context.Context, tx *sql.Tx, department types.Department) (int64, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM room WHERE department = ? AND occupancy < capacity ORDER BY id",
		string(department))
	if err != nil {
		return 0, storageErr("selecting rooms", err)
	}
	var candidates []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, storageErr("selecting rooms", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Close(); err != nil {
		return 0, storageErr("selecting rooms", err)
	}
	if err := rows.Err(); err != nil {
		return 0, storageErr("selecting rooms", err)
	}

	for _, id := range candidates {
		res, err := tx.ExecContext(ctx,
			"UPDATE room SET occupancy = occupancy + 1 WHERE id = ? AND occupancy < capacity", id)
		if err != nil {
			return 0, storageErr("admitting", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, storageErr("admitting", err)
		}
		if n == 1 {
			return id, nil
		}
	}
	return 0, types.ErrNoCapacity
}

// release frees one place in room. Releasing an empty room is a logic error
// and aborts the caller's transaction.
func release(ctx context.Context, tx *sql.Tx, roomID int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE room SET occupancy = occupancy - 1 WHERE id = ? AND occupancy > 0", roomID)
	if err != nil {
		return storageErr("releasing", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("releasing", err)
	}
	if n == 0 {
		return fmt.Errorf("room %d: %w", roomID, types.ErrOccupancyUnderflow)
	}
	return nil
}

// Audit rule names.
const (
	RuleOccupancyDrift   = "occupancy_drift"
	RuleOverCapacity     = "over_capacity"
	RuleAdoptedHoused    = "adopted_housed"
	RuleDepartmentMixing = "department_mixing"
)

// AuditOccupancy checks the ledger against the housing records and returns
// every inconsistency found. An empty result means the ledger is sound.
func (b *Backend) AuditOccupancy(ctx context.Context) ([]types.Violation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrShelterDetached
	}

	var violations []types.Violation

	rooms, err := b.db.QueryContext(ctx, `SELECT r.id, r.capacity, r.occupancy, COUNT(h.animal_id)
FROM room r LEFT JOIN housing h ON h.room_id = r.id
GROUP BY r.id ORDER BY r.id`)
	if err != nil {
		return nil, storageErr("audit", err)
	}
	defer rooms.Close()
	for rooms.Next() {
		var id int64
		var capacity, occupancy, housed int
		if err := rooms.Scan(&id, &capacity, &occupancy, &housed); err != nil {
			return nil, storageErr("audit", err)
		}
		if housed != occupancy {
			violations = append(violations, types.Violation{
				Rule:     RuleOccupancyDrift,
				Severity: types.SeverityWarn,
				Message:  fmt.Sprintf("room %d records occupancy %d but houses %d animals", id, occupancy, housed),
				Entity:   types.RoomTable,
				EntityID: id,
			})
		}
		if housed > capacity {
			violations = append(violations, types.Violation{
				Rule:     RuleOverCapacity,
				Severity: types.SeverityBlock,
				Message:  fmt.Sprintf("room %d over capacity: %d/%d occupants", id, housed, capacity),
				Entity:   types.RoomTable,
				EntityID: id,
			})
		}
	}
	if err := rooms.Err(); err != nil {
		return nil, storageErr("audit", err)
	}

	more, err := b.auditAnimals(ctx)
	if err != nil {
		return nil, err
	}
	return append(violations, more...), nil
}

func (b *Backend) auditAnimals(ctx context.Context) ([]types.Violation, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT a.id, h.room_id, a.department, r.department,
    EXISTS (SELECT 1 FROM adoption d WHERE d.animal_id = a.id)
FROM housing h
JOIN animal a ON a.id = h.animal_id
JOIN room r ON r.id = h.room_id
ORDER BY a.id`)
	if err != nil {
		return nil, storageErr("audit", err)
	}
	defer rows.Close()

	var violations []types.Violation
	for rows.Next() {
		var animalID, roomID int64
		var animalDept, roomDept string
		var adopted bool
		if err := rows.Scan(&animalID, &roomID, &animalDept, &roomDept, &adopted); err != nil {
			return nil, storageErr("audit", err)
		}
		if adopted {
			violations = append(violations, types.Violation{
				Rule:     RuleAdoptedHoused,
				Severity: types.SeverityBlock,
				Message:  fmt.Sprintf("animal %d is adopted but still housed in room %d", animalID, roomID),
				Entity:   types.AnimalTable,
				EntityID: animalID,
			})
		}
		if animalDept != roomDept {
			violations = append(violations, types.Violation{
				Rule:     RuleDepartmentMixing,
				Severity: types.SeverityBlock,
				Message:  fmt.Sprintf("animal %d (%s) housed in room %d (%s)", animalID, animalDept, roomID, roomDept),
				Entity:   types.AnimalTable,
				EntityID: animalID,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("audit", err)
	}
	return violations, nil
}
