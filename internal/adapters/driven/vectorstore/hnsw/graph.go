package hnsw

import (
	"math"
	"math/rand"

	"github.com/bits-and-blooms/bitset"
)

// Graph defaults.
const (
	DefaultM              = 32
	DefaultEfConstruction = 128
	DefaultEfSearch       = 64
)

// node is one row of the graph. links[l] holds the neighbours on layer l.
type node struct {
	vector []float32
	level  int
	links  [][]uint32
}

// graph is an HNSW index over fixed-dimension vectors. It is not safe for
// concurrent mutation; the Store serialises access.
type graph struct {
	dim            int
	m              int
	mMax0          int
	efConstruction int
	ml             float64
	entry          int
	maxLevel       int
	nodes          []*node
	rng            *rand.Rand
}

func newGraph(dim, m, efConstruction int, seed int64) *graph {
	if m < 2 {
		m = 2
	}
	if efConstruction < m {
		efConstruction = m
	}
	return &graph{
		dim:            dim,
		m:              m,
		mMax0:          2 * m,
		efConstruction: efConstruction,
		ml:             1 / math.Log(float64(m)),
		entry:          -1,
		rng:            rand.New(rand.NewSource(seed)), //nolint:gosec // level sampling only
	}
}

func (g *graph) len() int { return len(g.nodes) }

func (g *graph) vector(id uint32) []float32 { return g.nodes[id].vector }

func (g *graph) randomLevel() int {
	return int(math.Floor(-math.Log(1-g.rng.Float64()) * g.ml))
}

func (g *graph) maxLinks(level int) int {
	if level == 0 {
		return g.mMax0
	}
	return g.m
}

// insert adds v as a new row and returns its id. v is stored as given.
func (g *graph) insert(v []float32) uint32 {
	id := uint32(len(g.nodes))
	level := g.randomLevel()
	n := &node{vector: v, level: level, links: make([][]uint32, level+1)}
	g.nodes = append(g.nodes, n)

	if g.entry < 0 {
		g.entry = int(id)
		g.maxLevel = level
		return id
	}

	ep := item{node: uint32(g.entry), dist: squaredL2(v, g.vector(uint32(g.entry)))}
	for l := g.maxLevel; l > level; l-- {
		ep = g.greedy(v, ep, l)
	}

	eps := []item{ep}
	for l := min(level, g.maxLevel); l >= 0; l-- {
		found := g.searchLayer(v, eps, g.efConstruction, l, id)
		neighbours := g.selectNeighbours(found, g.m)
		n.links[l] = make([]uint32, len(neighbours))
		for i, nb := range neighbours {
			n.links[l][i] = nb.node
			g.link(nb.node, id, l)
		}
		eps = found
	}

	if level > g.maxLevel {
		g.entry = int(id)
		g.maxLevel = level
	}
	return id
}

// greedy walks layer l towards q and returns the closest node reached.
func (g *graph) greedy(q []float32, cur item, l int) item {
	for changed := true; changed; {
		changed = false
		for _, nb := range g.nodes[cur.node].links[l] {
			if d := squaredL2(q, g.vector(nb)); d < cur.dist {
				cur = item{node: nb, dist: d}
				changed = true
			}
		}
	}
	return cur
}

// searchLayer is the ef-bounded best-first search of layer l. skip is
// excluded from the results (the node being inserted). Results are nearest first.
func (g *graph) searchLayer(q []float32, eps []item, ef, l int, skip uint32) []item {
	visited := bitset.New(uint(len(g.nodes)))
	visited.Set(uint(skip))

	candidates := newQueue(false, ef)
	results := newQueue(true, ef+1)
	for _, ep := range eps {
		if visited.Test(uint(ep.node)) {
			continue
		}
		visited.Set(uint(ep.node))
		candidates.push(ep)
		results.push(ep)
	}
	for results.Len() > ef {
		results.pop()
	}

	for candidates.Len() > 0 {
		c := candidates.pop()
		if results.Len() >= ef && c.dist > results.top().dist {
			break
		}
		links := g.nodes[c.node].links
		if l >= len(links) {
			continue
		}
		for _, nb := range links[l] {
			if visited.Test(uint(nb)) {
				continue
			}
			visited.Set(uint(nb))
			d := squaredL2(q, g.vector(nb))
			if results.Len() < ef || d < results.top().dist {
				it := item{node: nb, dist: d}
				candidates.push(it)
				results.push(it)
				if results.Len() > ef {
					results.pop()
				}
			}
		}
	}
	return results.sorted()
}

// selectNeighbours applies the diversity heuristic to candidates (nearest
// first): a candidate is kept only if it is closer to the base than to every
// neighbour already kept. Pruned candidates fill any remaining slots.
func (g *graph) selectNeighbours(candidates []item, m int) []item {
	if len(candidates) <= m {
		return candidates
	}
	kept := make([]item, 0, m)
	pruned := make([]item, 0, len(candidates))
	for _, c := range candidates {
		if len(kept) >= m {
			break
		}
		good := true
		for _, k := range kept {
			if squaredL2(g.vector(c.node), g.vector(k.node)) < c.dist {
				good = false
				break
			}
		}
		if good {
			kept = append(kept, c)
		} else {
			pruned = append(pruned, c)
		}
	}
	for i := 0; len(kept) < m && i < len(pruned); i++ {
		kept = append(kept, pruned[i])
	}
	return kept
}

// link adds to as a neighbour of from on layer l, shrinking the list when full.
func (g *graph) link(from, to uint32, l int) {
	n := g.nodes[from]
	n.links[l] = append(n.links[l], to)
	limit := g.maxLinks(l)
	if len(n.links[l]) <= limit {
		return
	}

	q := newQueue(false, len(n.links[l]))
	for _, nb := range n.links[l] {
		q.push(item{node: nb, dist: squaredL2(n.vector, g.vector(nb))})
	}
	kept := g.selectNeighbours(q.sorted(), limit)
	n.links[l] = n.links[l][:0]
	for _, k := range kept {
		n.links[l] = append(n.links[l], k.node)
	}
}

// search returns up to k nodes nearest to q, nearest first.
func (g *graph) search(q []float32, k, ef int) []item {
	if g.entry < 0 || k <= 0 {
		return nil
	}
	if ef < k {
		ef = k
	}
	ep := item{node: uint32(g.entry), dist: squaredL2(q, g.vector(uint32(g.entry)))}
	for l := g.maxLevel; l > 0; l-- {
		ep = g.greedy(q, ep, l)
	}
	found := g.searchLayer(q, []item{ep}, ef, 0, uint32(len(g.nodes)))
	if len(found) > k {
		found = found[:k]
	}
	return found
}

// bruteForce scans every node. It backs tests and small graphs.
func (g *graph) bruteForce(q []float32, k int) []item {
	if k <= 0 {
		return nil
	}
	best := newQueue(true, k+1)
	for i, n := range g.nodes {
		d := squaredL2(q, n.vector)
		if best.Len() < k {
			best.push(item{node: uint32(i), dist: d})
		} else if d < best.top().dist {
			best.pop()
			best.push(item{node: uint32(i), dist: d})
		}
	}
	return best.sorted()
}
