package storage

// Access is the capability passed to every user-owned read or write.
// Elevated bypasses ownership; ScopedTo restricts rows to the caller.
type Access struct {
	scoped bool
	userID string
	token  string
}

func Elevated() Access {
	return Access{}
}

func ScopedTo(userID, token string) Access {
	return Access{scoped: true, userID: userID, token: token}
}

func (a Access) IsElevated() bool { return !a.scoped }

// UserID is the caller the access is scoped to; empty when elevated.
func (a Access) UserID() string { return a.userID }

func (a Access) Token() string { return a.token }

// Permits reports whether a row owned by ownerID is visible through this access.
func (a Access) Permits(ownerID string) bool {
	return !a.scoped || a.userID == ownerID
}

func (a Access) String() string {
	if !a.scoped {
		return "elevated"
	}
	return "scoped:" + a.userID
}
