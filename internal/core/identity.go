package core

import "strings"

// anonymousPrefix tags anonymous callers in stored userId fields. The
// prefix only exists at the storage boundary; code passes Identity values
// around instead of parsing strings.
const anonymousPrefix = "anonymous_"

// Identity is the caller's identity: either an authenticated Firebase user
// or an anonymous visitor. The zero value is an empty anonymous identity.
type Identity struct {
	userID    string
	visitorID string
}

// Authenticated returns the identity of a signed-in user.
func Authenticated(userID string) Identity {
	return Identity{userID: userID}
}

// Anonymous returns the identity of an unauthenticated visitor.
func Anonymous(visitorID string) Identity {
	return Identity{visitorID: visitorID}
}

// IsAnonymous reports whether the caller is not signed in.
func (i Identity) IsAnonymous() bool {
	return i.userID == ""
}

// UserID returns the Firebase UID, or "" for anonymous callers.
func (i Identity) UserID() string {
	return i.userID
}

// StorageID returns the value stored in a record's userId field: the
// Firebase UID, or the tagged visitor id for anonymous callers.
func (i Identity) StorageID() string {
	if i.userID != "" {
		return i.userID
	}
	return anonymousPrefix + i.visitorID
}

// IdentityFromStorageID reverses StorageID, so anonymous history can be
// matched back to an Identity without string comparisons leaking elsewhere.
func IdentityFromStorageID(stored string) Identity {
	if visitorID, ok := strings.CutPrefix(stored, anonymousPrefix); ok {
		return Anonymous(visitorID)
	}
	return Authenticated(stored)
}
