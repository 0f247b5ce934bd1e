package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ActorHeader names the agent a request acts for. The value ends up in the
// audit trail of every change the request makes.
const ActorHeader = "X-Taskboard-Agent"

// AnonymousActor is recorded when a request carries no usable actor.
const AnonymousActor = "anonymous"

// maxActorLen bounds the stored actor; longer values are cut.
const maxActorLen = 150

type actorKey struct{}

// Actor resolves the acting agent of each request and stores it in the
// request context.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), actorKey{}, actorOf(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFrom returns the actor stored by Actor, or AnonymousActor.
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		return actor
	}
	return AnonymousActor
}

func actorOf(r *http.Request) string {
	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	if actor == "" {
		return AnonymousActor
	}
	if len(actor) > maxActorLen {
		actor = strings.ToValidUTF8(actor[:maxActorLen], "")
	}
	return actor
}
