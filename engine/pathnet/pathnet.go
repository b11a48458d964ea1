// Package pathnet plans routes over the network of path stops.
package pathnet

import (
	"container/heap"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// blockedPenalty is added to the cost of a blocked link. Routes avoid
// blocked links while any alternative exists, but still go through them
// when nothing else connects, so the follower can react to the blockage.
const blockedPenalty = 1e6

type link struct {
	to      int
	cost    float64
	blocked bool
}

// Graph is the path network. It implements mob.Planner.
type Graph struct {
	names []string
	pos   []types.Point
	links [][]link
	index map[string]int
}

// New builds a graph from loaded stops. Links to unknown stops are
// skipped with a warning.
func New(stops []types.PathStopDef) *Graph {
	g := &Graph{
		names: make([]string, len(stops)),
		pos:   make([]types.Point, len(stops)),
		links: make([][]link, len(stops)),
		index: make(map[string]int, len(stops)),
	}
	for i, st := range stops {
		g.names[i] = st.Name
		g.pos[i] = st.Pos
		g.index[st.Name] = i
	}
	for i, st := range stops {
		for _, l := range st.Links {
			to, ok := g.index[l.To]
			if !ok {
				logger.Log.WithFields(logrus.Fields{"stop": st.Name, "to": l.To}).Warn("link to unknown stop skipped")
				continue
			}
			g.links[i] = append(g.links[i], link{to: to, cost: mob.Dist(st.Pos, g.pos[to]), blocked: l.Blocked})
		}
	}
	return g
}

// Len is the number of stops.
func (g *Graph) Len() int { return len(g.pos) }

// Name returns a stop's name.
func (g *Graph) Name(stop int) string { return g.names[stop] }

// StopPos returns a stop's position.
func (g *Graph) StopPos(stop int) types.Point {
	if stop < 0 || stop >= len(g.pos) {
		return types.Point{}
	}
	return g.pos[stop]
}

// Blocked reports whether the link from one stop to another is blocked.
// A missing link counts as blocked.
func (g *Graph) Blocked(from, to int) bool {
	if from < 0 || from >= len(g.links) {
		return true
	}
	for _, l := range g.links[from] {
		if l.to == to {
			return l.blocked
		}
	}
	return true
}

// SetBlocked toggles a link by stop index.
func (g *Graph) SetBlocked(from, to int, blocked bool) bool {
	if from < 0 || from >= len(g.links) {
		return false
	}
	for i := range g.links[from] {
		if g.links[from][i].to == to {
			g.links[from][i].blocked = blocked
			return true
		}
	}
	return false
}

// SetLinkBlocked toggles a link by stop name.
func (g *Graph) SetLinkBlocked(from, to string, blocked bool) bool {
	a, okA := g.index[from]
	b, okB := g.index[to]
	if !okA || !okB {
		return false
	}
	return g.SetBlocked(a, b, blocked)
}

// Closest returns the stop nearest to p, or -1 on an empty graph.
func (g *Graph) Closest(p types.Point) int {
	best, bestDist := -1, math.Inf(1)
	for i, sp := range g.pos {
		if d := mob.Dist(p, sp); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Plan returns the stop sequence from the stop closest to from to the
// stop closest to to. With no graph, or when both ends share a stop, the
// plan is direct. An unreachable goal yields an empty plan.
func (g *Graph) Plan(from, to types.Point) mob.Plan {
	start, goal := g.Closest(from), g.Closest(to)
	if start < 0 || start == goal {
		return mob.Plan{Direct: true}
	}
	stops, ok := g.astar(start, goal)
	if !ok {
		return mob.Plan{}
	}
	return mob.Plan{Stops: stops}
}

type node struct {
	stop   int
	g      float64
	f      float64
	index  int
	parent *node
}

type queue []*node

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool { return q[i].f < q[j].f }

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	n := x.(*node)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

func (g *Graph) astar(start, goal int) ([]int, bool) {
	open := &queue{}
	heap.Init(open)
	heap.Push(open, &node{stop: start, f: mob.Dist(g.pos[start], g.pos[goal])})
	gScore := map[int]float64{start: 0}
	closed := map[int]bool{}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.stop] {
			continue
		}
		closed[cur.stop] = true
		if cur.stop == goal {
			return reconstruct(cur), true
		}

		for _, l := range g.links[cur.stop] {
			if closed[l.to] {
				continue
			}
			cost := cur.g + l.cost
			if l.blocked {
				cost += blockedPenalty
			}
			if prev, ok := gScore[l.to]; ok && cost >= prev {
				continue
			}
			gScore[l.to] = cost
			heap.Push(open, &node{
				stop:   l.to,
				g:      cost,
				f:      cost + mob.Dist(g.pos[l.to], g.pos[goal]),
				parent: cur,
			})
		}
	}
	return nil, false
}

func reconstruct(end *node) []int {
	var path []int
	for n := end; n != nil; n = n.parent {
		path = append(path, n.stop)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
