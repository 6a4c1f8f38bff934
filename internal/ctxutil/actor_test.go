package ctxutil

import (
	"context"
	"testing"
)

func TestActorFromContext(t *testing.T) {
	ctx := context.Background()
	if got := ActorFromContext(ctx); got != "" {
		t.Errorf("ActorFromContext(empty) = %q, want empty", got)
	}

	ctx = WithActorID(ctx, " user-7 ")
	if got := ActorFromContext(ctx); got != "user-7" {
		t.Errorf("ActorFromContext = %q, want %q", got, "user-7")
	}
}

func TestResolveActor(t *testing.T) {
	ctx := WithActorID(context.Background(), "ctx-user")

	tests := []struct {
		name     string
		ctx      context.Context
		explicit string
		want     string
	}{
		{"explicit wins", ctx, "crew-1", "crew-1"},
		{"falls back to context", ctx, "  ", "ctx-user"},
		{"nothing known", context.Background(), "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveActor(tt.ctx, tt.explicit); got != tt.want {
				t.Errorf("ResolveActor = %q, want %q", got, tt.want)
			}
		})
	}
}
