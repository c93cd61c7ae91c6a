package entity

const (
	cartKeyPrefix  = "cart:"
	userKeyPrefix  = cartKeyPrefix + "user:"
	guestKeyPrefix = cartKeyPrefix + "guest:"
)

// Identity is the actor a cart belongs to. UserID is set for authenticated
// requests; SessionID is the anonymous session active for the request.
type Identity struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func UserIdentity(userID, sessionID string) Identity {
	return Identity{UserID: userID, SessionID: sessionID}
}

func GuestIdentity(sessionID string) Identity {
	return Identity{SessionID: sessionID}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != ""
}

func (i Identity) Validate() error {
	if i.UserID == "" && i.SessionID == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// CartKey resolves the store key for the identity. Authenticated users always
// get their user key, whatever session they are on.
func (i Identity) CartKey() string {
	if i.IsAuthenticated() {
		return UserCartKey(i.UserID)
	}
	return GuestCartKey(i.SessionID)
}

// Owner returns the user id as a nullable owner value for cart metadata.
func (i Identity) Owner() *string {
	if !i.IsAuthenticated() {
		return nil
	}
	owner := i.UserID
	return &owner
}

func UserCartKey(userID string) string {
	return userKeyPrefix + userID
}

func GuestCartKey(sessionID string) string {
	return guestKeyPrefix + sessionID
}
