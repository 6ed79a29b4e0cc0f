package types

// Room is a housing unit. Occupancy is maintained only by admission and
// release and always satisfies 0 <= Occupancy <= Capacity.
type Room struct {
	ID         int64      `json:"id"`
	Department Department `json:"department"`
	Capacity   int        `json:"capacity"`
	Occupancy  int        `json:"occupancy"`
}

// Free returns the number of places left.
func (r Room) Free() int {
	return r.Capacity - r.Occupancy
}

// HousingAssignment places one animal in one room. It exists iff the animal
// currently occupies the room.
type HousingAssignment struct {
	AnimalID int64 `json:"animal_id"`
	RoomID   int64 `json:"room_id"`
}
