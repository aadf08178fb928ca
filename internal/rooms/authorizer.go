package rooms

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/olechat/chatbridge/internal/membership"
)

// Authorizer decides at join time whether a user may subscribe to a room.
// The decision is not re-validated on later broadcasts; a member removed
// after joining keeps the live subscription until disconnect.
type Authorizer struct {
	members membership.Store
}

func NewAuthorizer(members membership.Store) *Authorizer {
	return &Authorizer{members: members}
}

// Allow dispatches on the room kind. Chat rooms need a synchronous
// membership lookup; user rooms are a local compare.
func (a *Authorizer) Allow(ctx context.Context, userID int64, room Room) (bool, error) {
	switch r := room.(type) {
	case ChatRoom:
		ok, err := a.members.IsMember(ctx, r.ChatID, userID)
		if err != nil {
			log.WithField("prefix", "Authorizer.Allow").
				Errorf("membership lookup for %s failed: %v", room.Name(), err)
			return false, err
		}
		return ok, nil
	case UserRoom:
		return r.UserID == userID, nil
	default:
		return false, nil
	}
}
