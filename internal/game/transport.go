package game

// Transport is the connection layer the controller talks through. Groups are
// keyed by room code.
type Transport interface {
	// Emit sends an event to a single connection.
	Emit(connID, event string, payload any)
	// Broadcast sends an event to every member of a group.
	Broadcast(group, event string, payload any)
	// BroadcastExcept sends an event to every member of a group but one.
	BroadcastExcept(group, except, event string, payload any)
	JoinGroup(connID, group string)
	LeaveGroup(connID, group string)
}
