/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package roster

import (
	"sort"
	"time"
)

// FindGroups clusters controllers that share at least one work-area,
// transitively. Controllers with only rest periods belong to no group.
// Groups and members keep the order in which controllers first appear.
func FindGroups(periods []Period) []Group {
	var (
		order   []Controller
		index   = make(map[string]int)
		areas   []map[string]struct{}
		ownPers [][]Period
	)

	for _, p := range periods {
		i, ok := index[p.Controller.ID]
		if !ok {
			i = len(order)
			index[p.Controller.ID] = i
			order = append(order, p.Controller)
			areas = append(areas, make(map[string]struct{}))
			ownPers = append(ownPers, nil)
		}
		ownPers[i] = append(ownPers[i], p)
		if !p.IsRest() {
			areas[i][p.WorkArea] = struct{}{}
		}
	}

	sets := newDisjointSet(len(order))
	owner := make(map[string]int)
	for i := range order {
		for area := range areas[i] {
			if j, seen := owner[area]; seen {
				sets.union(i, j)
				continue
			}
			owner[area] = i
		}
	}

	var groups []Group
	groupOf := make(map[int]int)
	for i, c := range order {
		if len(areas[i]) == 0 {
			continue
		}
		root := sets.find(i)
		gi, ok := groupOf[root]
		if !ok {
			gi = len(groups)
			groupOf[root] = gi
			groups = append(groups, Group{})
		}
		own := append([]Period(nil), ownPers[i]...)
		sort.SliceStable(own, func(a, b int) bool { return own[a].Start.Before(own[b].Start) })
		groups[gi].Members = append(groups[gi].Members, Member{Controller: c, Periods: own})
	}

	for gi := range groups {
		finishGroup(&groups[gi], areas, index)
	}
	return groups
}

func finishGroup(g *Group, areas []map[string]struct{}, index map[string]int) {
	covered := make(map[string]struct{})
	var start, end time.Time
	for _, m := range g.Members {
		for area := range areas[index[m.Controller.ID]] {
			covered[area] = struct{}{}
		}
		for _, p := range m.Periods {
			if start.IsZero() || p.Start.Before(start) {
				start = p.Start
			}
			if end.IsZero() || p.End.After(end) {
				end = p.End
			}
		}
	}

	g.WorkAreas = make([]string, 0, len(covered))
	for area := range covered {
		g.WorkAreas = append(g.WorkAreas, area)
	}
	sort.Strings(g.WorkAreas)
	g.Start = start
	g.End = end
	g.Duration = int(end.Sub(start) / time.Minute)
}

// disjointSet is a union-find over controller indexes.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]]
		x = ds.parent[x]
	}
	return x
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
}
