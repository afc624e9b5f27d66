package services

import (
	"context"
	"sort"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// Matcher finds the canonical member record for an event's contact fields.
// Matching is deterministic: phone equality OR email equality on normalized
// values, nothing fuzzy.
type Matcher struct {
	persons repos.PersonRepo
	log     *logger.Logger
}

func NewMatcher(persons repos.PersonRepo, baseLog *logger.Logger) *Matcher {
	return &Matcher{persons: persons, log: baseLog.With("service", "Matcher")}
}

// Find returns the single matching person, or the distinct conflicting
// candidates when phone and email point at different records. A nil person
// with no candidates means no match.
func (m *Matcher) Find(ctx context.Context, phone, email string) (*types.Person, []*types.Person, error) {
	phone = NormalizePhone(phone)
	email = NormalizeEmail(email)
	if phone == "" && email == "" {
		return nil, nil, nil
	}

	found, err := m.persons.FindByContact(ctx, phone, email)
	if err != nil {
		return nil, nil, err
	}

	// The store can return the same record through both clauses.
	distinct := make([]*types.Person, 0, len(found))
	seen := map[string]bool{}
	for _, p := range found {
		if p == nil || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		distinct = append(distinct, p)
	}

	switch len(distinct) {
	case 0:
		return nil, nil, nil
	case 1:
		return distinct[0], nil, nil
	default:
		sort.Slice(distinct, func(i, j int) bool { return distinct[i].ID < distinct[j].ID })
		m.log.Warn("ambiguous identity match",
			"phone", phone,
			"email", email,
			"candidates", len(distinct),
		)
		return nil, distinct, nil
	}
}
