// Package auth decides who may use the administrator commands.
package auth

import "sort"

type Policy struct {
	admins map[int64]struct{}
}

func NewPolicy(adminIDs []int64) *Policy {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Policy{admins: admins}
}

func (p *Policy) IsAuthorized(userID int64) bool {
	_, ok := p.admins[userID]
	return ok
}

func (p *Policy) Admins() []int64 {
	ids := make([]int64, 0, len(p.admins))
	for id := range p.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
