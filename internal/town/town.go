package town

// Summary is one publicly listed town as returned by the directory listing.
// Summaries are snapshot values and are never mutated after a read.
type Summary struct {
	ID               string
	FriendlyName     string
	CurrentOccupancy int
	MaximumOccupancy int
	IsPubliclyListed bool
}

// IsFull reports whether the town has no room left.
func (s Summary) IsFull() bool {
	return s.CurrentOccupancy >= s.MaximumOccupancy
}

// CreateRequest asks the record service for a new town.
type CreateRequest struct {
	FriendlyName     string
	IsPubliclyListed bool
}

// Created is the record service's answer to a create request. Password is
// the capability password that authorizes later updates and deletion.
type Created struct {
	TownID   string
	Password string
}

// UpdateRequest changes a town's name and listing. Password is compared by
// the record service and is not retained after the call.
type UpdateRequest struct {
	TownID           string
	Password         string
	FriendlyName     string
	IsPubliclyListed bool
}

// DeleteRequest removes a town record.
type DeleteRequest struct {
	TownID   string
	Password string
}

// JoinInitData is the bootstrap payload for one join. ProviderCredential is
// a one-time token for the real-time provider and must be consumed at most
// once.
type JoinInitData struct {
	TownID             string
	UserID             string
	SessionToken       string
	ProviderCredential string
	FriendlyName       string
	IsPubliclyListed   bool
}
