package rooms

import (
	"context"
	"testing"

	"github.com/olechat/chatbridge/internal/membership"
)

func TestParseRoom(t *testing.T) {
	tests := []struct {
		name string
		want Room
	}{
		{"chat.7", ChatRoom{ChatID: 7}},
		{"user.42", UserRoom{UserID: 42}},
		{"chat.007", ChatRoom{ChatID: 7}},
	}
	for _, tt := range tests {
		got, err := ParseRoom(tt.name)
		if err != nil {
			t.Fatalf("ParseRoom(%q) returned error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseRoom(%q) = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestParseRoomRejectsUnknownShapes(t *testing.T) {
	for _, name := range []string{
		"", "chat.", "user.", "chat.abc", "user.-1", "presence.1",
		"chats.7", "chat.7.extra", "admin", "chat7", "test-channel",
	} {
		if _, err := ParseRoom(name); err == nil {
			t.Errorf("ParseRoom(%q) succeeded, want rejection", name)
		}
	}
}

func TestAuthorizerUserRoom(t *testing.T) {
	a := NewAuthorizer(membership.NewMemStore())

	ok, err := a.Allow(context.Background(), 42, UserRoom{UserID: 42})
	if err != nil || !ok {
		t.Fatalf("own user room: got (%v, %v), want allowed", ok, err)
	}

	ok, err = a.Allow(context.Background(), 42, UserRoom{UserID: 43})
	if err != nil || ok {
		t.Fatalf("foreign user room: got (%v, %v), want denied", ok, err)
	}
}

func TestAuthorizerChatRoom(t *testing.T) {
	members := membership.NewMemStore()
	members.AddMember(7, 42)
	a := NewAuthorizer(members)

	ok, err := a.Allow(context.Background(), 42, ChatRoom{ChatID: 7})
	if err != nil || !ok {
		t.Fatalf("member: got (%v, %v), want allowed", ok, err)
	}

	ok, err = a.Allow(context.Background(), 43, ChatRoom{ChatID: 7})
	if err != nil || ok {
		t.Fatalf("non-member: got (%v, %v), want denied", ok, err)
	}

	members.RemoveMember(7, 42)
	ok, err = a.Allow(context.Background(), 42, ChatRoom{ChatID: 7})
	if err != nil || ok {
		t.Fatalf("removed member: got (%v, %v), want denied", ok, err)
	}
}
