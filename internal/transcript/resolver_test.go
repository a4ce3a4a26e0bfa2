package transcript

import (
	"context"
	"strings"
	"testing"

	"github.com/krishkalaria12/echo-interview/internal/data/repos/identity"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/interviews"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/testutil"
	"github.com/krishkalaria12/echo-interview/internal/domain"
)

func TestResolveShortCircuitsOnEmpty(t *testing.T) {
	log := testutil.Logger(t)
	// nil repos: any query attempt would panic, proving the short-circuit.
	r := NewResolver(log, nil, nil)

	out, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
}

func TestResolveAttachesUsersAgentsAndUnknown(t *testing.T) {
	log := testutil.Logger(t)
	gdb := testutil.MemDB(t)
	users := identity.NewUserRepo(gdb, log)
	agents := interviews.NewAgentRepo(gdb, log)

	ctx := context.Background()

	user := &domain.User{Name: "Ada Lovelace", Email: "ada@example.com", AvatarURL: "https://img.example/ada.png"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	agent := &domain.Agent{Name: "Interviewer", UserID: user.ID, Instructions: "ask things"}
	if err := agents.Create(ctx, agent); err != nil {
		t.Fatalf("create agent: %v", err)
	}

	r := NewResolver(log, users, agents)
	items := []Utterance{
		{SpeakerID: user.ID.String(), Text: "hello"},
		{SpeakerID: agent.ID.String(), Text: "welcome"},
		{SpeakerID: "nobody-here", Text: "???"},
	}

	out, err := r.Resolve(ctx, items)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out[0].User == nil || out[0].User.Name != "Ada Lovelace" || out[0].User.Image != "https://img.example/ada.png" {
		t.Fatalf("user not resolved: %+v", out[0].User)
	}
	if out[1].User == nil || out[1].User.Name != "Interviewer" {
		t.Fatalf("agent not resolved: %+v", out[1].User)
	}
	if out[2].User == nil || out[2].User.Name != "unknown" {
		t.Fatalf("expected unknown placeholder, got %+v", out[2].User)
	}
}

func TestResolveMatchesCaseSensitively(t *testing.T) {
	log := testutil.Logger(t)
	gdb := testutil.MemDB(t)
	users := identity.NewUserRepo(gdb, log)
	agents := interviews.NewAgentRepo(gdb, log)

	ctx := context.Background()
	user := &domain.User{Name: "Grace", Email: "grace@example.com"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	r := NewResolver(log, users, agents)
	upper := strings.ToUpper(user.ID.String())
	out, err := r.Resolve(ctx, []Utterance{{SpeakerID: upper, Text: "hi"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out[0].User == nil || out[0].User.Name != "unknown" {
		t.Fatalf("uppercase id must not match, got %+v", out[0].User)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	log := testutil.Logger(t)
	gdb := testutil.MemDB(t)
	users := identity.NewUserRepo(gdb, log)
	agents := interviews.NewAgentRepo(gdb, log)

	r := NewResolver(log, users, agents)
	items := []Utterance{{SpeakerID: "x", Text: "hi"}}
	if _, err := r.Resolve(context.Background(), items); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if items[0].User != nil {
		t.Fatal("input slice was mutated")
	}
}
