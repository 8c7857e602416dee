package hnsw

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
)

var (
	_ gob.GobEncoder = (*graph)(nil)
	_ gob.GobDecoder = (*graph)(nil)
)

type nodeState struct {
	Vector []float32
	Level  int
	Links  [][]uint32
}

type graphState struct {
	Dim            int
	M              int
	EfConstruction int
	Entry          int
	MaxLevel       int
	Nodes          []nodeState
}

// GobEncode serialises the graph structure and vectors.
func (g *graph) GobEncode() ([]byte, error) {
	st := graphState{
		Dim:            g.dim,
		M:              g.m,
		EfConstruction: g.efConstruction,
		Entry:          g.entry,
		MaxLevel:       g.maxLevel,
		Nodes:          make([]nodeState, len(g.nodes)),
	}
	for i, n := range g.nodes {
		st.Nodes[i] = nodeState{Vector: n.vector, Level: n.level, Links: n.links}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores a graph written by GobEncode and validates its links.
func (g *graph) GobDecode(data []byte) error {
	var st graphState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	if st.M < 2 {
		return errors.New("hnsw: invalid graph parameters")
	}
	if len(st.Nodes) == 0 {
		st.Entry = -1
	} else if st.Entry < 0 || st.Entry >= len(st.Nodes) {
		return errors.New("hnsw: entry point out of range")
	}

	nodes := make([]*node, len(st.Nodes))
	for i, ns := range st.Nodes {
		if len(ns.Vector) != st.Dim {
			return errors.New("hnsw: vector dimension does not match graph")
		}
		links := ns.Links
		if len(links) < ns.Level+1 {
			links = append(links, make([][]uint32, ns.Level+1-len(links))...)
		}
		for _, layer := range links {
			for _, nb := range layer {
				if int(nb) >= len(st.Nodes) {
					return errors.New("hnsw: link out of range")
				}
			}
		}
		nodes[i] = &node{vector: ns.Vector, level: ns.Level, links: links}
	}

	*g = graph{
		dim:            st.Dim,
		m:              st.M,
		mMax0:          2 * st.M,
		efConstruction: st.EfConstruction,
		ml:             1 / math.Log(float64(st.M)),
		entry:          st.Entry,
		maxLevel:       st.MaxLevel,
		nodes:          nodes,
		rng:            rand.New(rand.NewSource(int64(len(nodes)))), //nolint:gosec // level sampling only
	}
	return nil
}
