package transcript

import (
	"context"

	"github.com/google/uuid"

	"github.com/krishkalaria12/echo-interview/internal/data/repos/identity"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/interviews"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

const unknownSpeaker = "unknown"

// Resolver attaches display identities to transcript speakers by batch
// lookup against the user and agent tables.
type Resolver struct {
	log    *logger.Logger
	users  identity.UserRepo
	agents interviews.AgentRepo
}

func NewResolver(log *logger.Logger, users identity.UserRepo, agents interviews.AgentRepo) *Resolver {
	return &Resolver{
		log:    log.With("service", "SpeakerResolver"),
		users:  users,
		agents: agents,
	}
}

// Resolve fills each utterance's User from the users and agents tables.
// Speaker ids are matched case-sensitively; ids that match neither table get
// the literal "unknown" placeholder. Zero utterances short-circuits without
// any queries.
func (r *Resolver) Resolve(ctx context.Context, items []Utterance) ([]Utterance, error) {
	if len(items) == 0 {
		return items, nil
	}

	seen := make(map[string]bool, len(items))
	var ids []uuid.UUID
	for i := range items {
		sid := items[i].SpeakerID
		if sid == "" || seen[sid] {
			continue
		}
		seen[sid] = true
		if id, err := uuid.Parse(sid); err == nil {
			ids = append(ids, id)
		}
	}

	members := make(map[string]*Member, len(ids))
	if len(ids) > 0 {
		users, err := r.users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			members[u.ID.String()] = &Member{Name: u.Name, Image: u.AvatarURL}
		}

		agents, err := r.agents.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, a := range agents {
			members[a.ID.String()] = &Member{Name: a.Name}
		}
	}

	out := make([]Utterance, len(items))
	copy(out, items)
	for i := range out {
		if m, ok := members[out[i].SpeakerID]; ok {
			mm := *m
			out[i].User = &mm
			continue
		}
		out[i].User = &Member{Name: unknownSpeaker}
	}
	return out, nil
}
