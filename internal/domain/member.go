package domain

// Member represents a user's presence in one room.
// No transport or lifecycle logic here.
type Member struct {
	Room RoomID
	User UserID
}
