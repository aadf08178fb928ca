package membership

import (
	"context"
	"testing"
)

func TestMemStoreMembership(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	if ok, _ := s.IsMember(ctx, 7, 42); ok {
		t.Fatal("empty store reported a member")
	}

	s.AddMember(7, 42)
	if ok, _ := s.IsMember(ctx, 7, 42); !ok {
		t.Fatal("added member not reported")
	}
	if ok, _ := s.IsMember(ctx, 7, 43); ok {
		t.Fatal("other user reported as member")
	}
	if ok, _ := s.IsMember(ctx, 8, 42); ok {
		t.Fatal("other chat reported membership")
	}

	s.RemoveMember(7, 42)
	if ok, _ := s.IsMember(ctx, 7, 42); ok {
		t.Fatal("removed member still reported")
	}
}
