package rooms

import (
	"fmt"
	"strconv"
	"strings"
)

// Room is a closed set of subscribable room kinds. Each kind carries the
// identifier embedded in its name and owns its authorization rule.
type Room interface {
	Name() string
	room()
}

// ChatRoom receives events scoped to one chat; only current members may join.
type ChatRoom struct {
	ChatID int64
}

func (r ChatRoom) Name() string { return fmt.Sprintf("chat.%d", r.ChatID) }
func (ChatRoom) room()          {}

// UserRoom receives events addressed to one user; only that user may join.
type UserRoom struct {
	UserID int64
}

func (r UserRoom) Name() string { return fmt.Sprintf("user.%d", r.UserID) }
func (UserRoom) room()          {}

// ErrUnknownRoom is returned for any name outside the recognized shapes.
// Unrecognized patterns are never joinable.
var ErrUnknownRoom = fmt.Errorf("unknown room name")

// ParseRoom maps a room name to its kind. Only "chat.{id}" and "user.{id}"
// with a decimal id are recognized.
func ParseRoom(name string) (Room, error) {
	if id, ok := cutID(name, "chat."); ok {
		return ChatRoom{ChatID: id}, nil
	}
	if id, ok := cutID(name, "user."); ok {
		return UserRoom{UserID: id}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRoom, name)
}

func cutID(name, prefix string) (int64, bool) {
	rest, found := strings.CutPrefix(name, prefix)
	if !found || rest == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
