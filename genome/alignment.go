/* SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * Zymatik HAlign - A Hierarchical Genome Alignment library for Go.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published
 * by the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package genome

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/zymatik-com/halign/bulkio"
	"github.com/zymatik-com/halign/container"
	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/halerr"
	"github.com/zymatik-com/halign/metadata"
	"github.com/zymatik-com/halign/newick"
	"github.com/zymatik-com/halign/segment"
)

type treeNode struct {
	name         string
	parent       string
	children     []string
	branchLength float64
	hasLength    bool
}

// Alignment is a rooted tree of named Genomes plus alignment-wide
// metadata (spec §3's "Alignment"). Genomes are opened lazily and cached;
// openGenome/closeGenome implement the caching contract of spec §4.8.
type Alignment struct {
	mu      sync.Mutex
	dir     string
	backend container.Backend
	nodes   map[string]*treeNode
	root    string
	open    map[string]*Genome
	meta    metadata.Store
	logger  *slog.Logger
}

// Create starts a brand new alignment on disk, rooted at rootName with no
// branch length (spec: "branch length defined for every non-root node").
func Create(dir string, rootName string, backend container.Backend) (*Alignment, error) {
	if err := os.MkdirAll(filepath.Join(dir, "genomes"), 0o755); err != nil {
		return nil, fmt.Errorf("genome: create alignment dir: %w", err)
	}

	a := &Alignment{
		dir:     dir,
		backend: backend,
		nodes:   map[string]*treeNode{rootName: {name: rootName}},
		root:    rootName,
		open:    make(map[string]*Genome),
		meta:    metadata.New(),
		logger:  slog.Default(),
	}

	if err := ensureDir(genomeDir(dir, rootName)); err != nil {
		return nil, err
	}

	return a, a.persistTree()
}

// Open attaches to an existing on-disk alignment, parsing its phylogeny
// group (spec §6).
func Open(dir string, backend container.Backend) (*Alignment, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "phylogeny.nwk"))
	if err != nil {
		return nil, fmt.Errorf("genome: read phylogeny: %w", err)
	}

	root, err := newick.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("genome: parse phylogeny: %w", err)
	}

	a := &Alignment{
		dir:     dir,
		backend: backend,
		nodes:   make(map[string]*treeNode),
		open:    make(map[string]*Genome),
		logger:  slog.Default(),
	}

	a.root = root.Name
	var register func(n *newick.Node, parent string)
	register = func(n *newick.Node, parent string) {
		tn := &treeNode{name: n.Name, parent: parent, branchLength: n.BranchLength, hasLength: n.HasLength}
		for _, c := range n.Children {
			tn.children = append(tn.children, c.Name)
		}
		a.nodes[n.Name] = tn
		for _, c := range n.Children {
			register(c, n.Name)
		}
	}
	register(root, "")

	meta, err := metadata.Open(filepath.Join(dir, "metadata.gob"))
	if err != nil {
		return nil, err
	}
	a.meta = meta

	return a, nil
}

// Metadata returns the alignment-wide key/value store.
func (a *Alignment) Metadata() metadata.Store { return a.meta }

// RootName returns the name of the alignment's root genome.
func (a *Alignment) RootName() string { return a.root }

// GenomeNames returns every genome name in the alignment, in no
// particular order.
func (a *Alignment) GenomeNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.nodes))
	for n := range a.nodes {
		names = append(names, n)
	}
	return names
}

// BranchLength returns the branch length above name.
func (a *Alignment) BranchLength(name string) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.nodes[name]
	if !ok {
		return 0, fmt.Errorf("genome: %q: %w", name, halerr.ErrNotFound)
	}
	if !n.hasLength {
		return 0, fmt.Errorf("genome: %q has no branch length (root): %w", name, halerr.ErrInvalidArgument)
	}
	return n.branchLength, nil
}

// IsRoot/IsLeaf/ChildNames are convenience accessors over the tree shape.
func (a *Alignment) IsRoot(name string) bool { return name == a.root }

func (a *Alignment) ChildNames(name string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.nodes[name]
	if !ok {
		return nil, fmt.Errorf("genome: %q: %w", name, halerr.ErrNotFound)
	}
	return append([]string{}, n.children...), nil
}

func (a *Alignment) IsLeaf(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.nodes[name]
	return ok && len(n.children) == 0
}

// NewickTree renders the current tree as a newick string.
func (a *Alignment) NewickTree() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return newick.Write(a.toNewick(a.root))
}

func (a *Alignment) toNewick(name string) *newick.Node {
	tn := a.nodes[name]
	n := &newick.Node{Name: tn.name, BranchLength: tn.branchLength, HasLength: tn.hasLength}
	for _, c := range tn.children {
		n.Children = append(n.Children, a.toNewick(c))
	}
	return n
}

func (a *Alignment) persistTree() error {
	return os.WriteFile(filepath.Join(a.dir, "phylogeny.nwk"), []byte(a.NewickTree()), 0o644)
}

func (a *Alignment) childSlot(parentName, childName string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.nodes[parentName]
	if !ok {
		return -1
	}
	for i, c := range n.children {
		if c == childName {
			return i
		}
	}
	return -1
}

func (a *Alignment) parentOf(name string) (*Genome, error) {
	a.mu.Lock()
	n, ok := a.nodes[name]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("genome: %q: %w", name, halerr.ErrNotFound)
	}
	if n.parent == "" {
		return nil, nil
	}
	return a.openGenome(n.parent)
}

func (a *Alignment) childOf(name string, slot int) (*Genome, error) {
	a.mu.Lock()
	n, ok := a.nodes[name]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("genome: %q: %w", name, halerr.ErrNotFound)
	}
	if slot < 0 || slot >= len(n.children) {
		return nil, nil
	}
	return a.openGenome(n.children[slot])
}

// AddChild grows the tree with a new leaf genome under parentName,
// creating its on-disk directory. The caller must still call
// SetDimensions on the returned genome before using its arrays.
func (a *Alignment) AddChild(parentName, name string, branchLength float64) (*Genome, error) {
	a.mu.Lock()
	parent, ok := a.nodes[parentName]
	if !ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("genome: parent %q: %w", parentName, halerr.ErrNotFound)
	}
	if _, exists := a.nodes[name]; exists {
		a.mu.Unlock()
		return nil, fmt.Errorf("genome: %q already exists: %w", name, halerr.ErrInvalidArgument)
	}
	parent.children = append(parent.children, name)
	a.nodes[name] = &treeNode{name: name, parent: parentName, branchLength: branchLength, hasLength: true}
	a.mu.Unlock()

	if err := ensureDir(genomeDir(a.dir, name)); err != nil {
		return nil, err
	}
	if err := a.persistTree(); err != nil {
		return nil, err
	}

	// Adding a child changes the parent's bottom-record shape (one more
	// child slot); existing bottom records gain a NONE/false slot.
	if err := a.growParentChildSlot(parentName); err != nil {
		return nil, err
	}

	return a.openGenome(name)
}

func (a *Alignment) growParentChildSlot(parentName string) error {
	parent, err := a.openGenome(parentName)
	if err != nil {
		return err
	}
	if parent.botArr == nil {
		return nil // parent has no segments yet; nothing to rewrite
	}

	newPath := filepath.Join(genomeDir(a.dir, parentName), "bottom.bin.new")
	newN := parent.numChildSlots + 1
	recordCount := parent.botArr.Len()

	_, err = bulkio.RewriteBottomArray(newPath, a.backend, parent.botArr, newN, defaultSegChunk, defaultSegWindow,
		func(rec segment.BottomRecord) segment.BottomRecord {
			out := rec
			out.ChildIndex = append(append([]int64{}, rec.ChildIndex...), segment.NullIndex)
			out.ChildReversed = append(append([]bool{}, rec.ChildReversed...), false)
			return out
		}, false)
	if err != nil {
		return err
	}

	if err := parent.botArr.Close(); err != nil {
		return err
	}
	oldPath := filepath.Join(genomeDir(a.dir, parentName), "bottom.bin")
	if err := os.Rename(newPath, oldPath); err != nil {
		return err
	}

	reloaded, err := container.Load[segment.BottomRecord](oldPath, a.backend, segment.BottomCodec{NumChildren: newN}, recordCount, defaultSegChunk, defaultSegWindow)
	if err != nil {
		return err
	}

	parent.botArr = reloaded
	parent.numChildSlots = newN
	return nil
}

// RemoveGenome removes a leaf genome, rebuilding its parent with one
// fewer child slot (spec §4.8). Only legal for genomes with no children.
func (a *Alignment) RemoveGenome(name string) error {
	a.mu.Lock()
	n, ok := a.nodes[name]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("genome: %q: %w", name, halerr.ErrNotFound)
	}
	if len(n.children) > 0 {
		a.mu.Unlock()
		return fmt.Errorf("genome: %q has children, cannot remove: %w", name, halerr.ErrInvalidArgument)
	}
	parentName := n.parent
	a.mu.Unlock()

	if g, open := a.open[name]; open {
		if err := g.close(); err != nil {
			return err
		}
		delete(a.open, name)
	}

	if parentName != "" {
		slot := a.childSlot(parentName, name)
		if err := a.dropParentChildSlot(parentName, slot); err != nil {
			return err
		}
	}

	a.mu.Lock()
	delete(a.nodes, name)
	if parentName != "" {
		p := a.nodes[parentName]
		for i, c := range p.children {
			if c == name {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	a.mu.Unlock()

	if err := os.RemoveAll(genomeDir(a.dir, name)); err != nil {
		return err
	}

	return a.persistTree()
}

func (a *Alignment) dropParentChildSlot(parentName string, slot int) error {
	parent, err := a.openGenome(parentName)
	if err != nil {
		return err
	}
	if parent.botArr == nil || slot < 0 {
		return nil
	}

	newPath := filepath.Join(genomeDir(a.dir, parentName), "bottom.bin.new")
	newN := parent.numChildSlots - 1
	recordCount := parent.botArr.Len()

	_, err = bulkio.RewriteBottomArray(newPath, a.backend, parent.botArr, newN, defaultSegChunk, defaultSegWindow,
		bulkio.DropChildSlot(slot), true)
	if err != nil {
		return err
	}

	if err := parent.botArr.Close(); err != nil {
		return err
	}
	oldPath := filepath.Join(genomeDir(a.dir, parentName), "bottom.bin")
	if err := os.Rename(newPath, oldPath); err != nil {
		return err
	}

	reloaded, err := container.Load[segment.BottomRecord](oldPath, a.backend, segment.BottomCodec{NumChildren: newN}, recordCount, defaultSegChunk, defaultSegWindow)
	if err != nil {
		return err
	}

	parent.botArr = reloaded
	parent.numChildSlots = newN
	return nil
}

// openGenome returns a cached Genome, loading it from disk on first
// access; reopening the same name always returns the same pointer (spec
// §4.8).
func (a *Alignment) openGenome(name string) (*Genome, error) {
	a.mu.Lock()
	if g, ok := a.open[name]; ok {
		a.mu.Unlock()
		return g, nil
	}
	_, known := a.nodes[name]
	a.mu.Unlock()

	if !known {
		return nil, fmt.Errorf("genome: %q: %w", name, halerr.ErrNotFound)
	}

	g, err := a.loadGenome(name)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.open[name] = g
	a.mu.Unlock()

	return g, nil
}

// OpenGenome is the exported form of openGenome.
func (a *Alignment) OpenGenome(name string) (*Genome, error) { return a.openGenome(name) }

// CloseGenome flushes a genome's dirty state and drops it from the cache.
// Neighbouring genomes never cache a direct Go pointer to it (Parent/
// Child always resolve through the Alignment), so no separate
// invalidation pass over neighbours is needed to avoid dangling
// pointers -- the next access to it from a neighbour just reopens it.
func (a *Alignment) CloseGenome(g *Genome) error {
	if err := g.close(); err != nil {
		return err
	}

	a.mu.Lock()
	delete(a.open, g.name)
	a.mu.Unlock()

	return nil
}

func (a *Alignment) loadGenome(name string) (*Genome, error) {
	dir := genomeDir(a.dir, name)

	a.mu.Lock()
	numChildren := len(a.nodes[name].children)
	a.mu.Unlock()

	g := &Genome{align: a, name: name, dir: dir, backend: a.backend, numChildSlots: numChildren}

	metaPath := filepath.Join(dir, "metadata.gob")
	meta, err := metadata.Open(metaPath)
	if err != nil {
		return nil, err
	}
	g.meta = meta

	// The sequence directory carries the genome's total length and is
	// read first: it, not the segment arrays, is the source of truth for
	// how many records the top/bottom/DNA stores hold.
	if _, err := os.Stat(filepath.Join(dir, "seqidx.bin")); err == nil {
		if err := g.loadSequenceDirectory(); err != nil {
			return nil, err
		}
	}

	if numTopStr, ok := g.meta.Get(numTopKey); ok {
		numTop, err := strconv.Atoi(numTopStr)
		if err != nil {
			return nil, fmt.Errorf("genome: %s: invalid top count: %w", name, halerr.ErrInconsistent)
		}
		if numTop > 0 {
			topArr, err := container.Load[segment.TopRecord](filepath.Join(dir, "top.bin"), a.backend, segment.TopCodec{}, numTop, defaultSegChunk, defaultSegWindow)
			if err != nil {
				return nil, err
			}
			g.topArr = topArr
		}
	}

	if numBottomStr, ok := g.meta.Get(numBottomKey); ok {
		numBottom, err := strconv.Atoi(numBottomStr)
		if err != nil {
			return nil, fmt.Errorf("genome: %s: invalid bottom count: %w", name, halerr.ErrInconsistent)
		}
		if numBottom > 0 {
			botArr, err := container.Load[segment.BottomRecord](filepath.Join(dir, "bottom.bin"), a.backend, segment.BottomCodec{NumChildren: numChildren}, numBottom, defaultSegChunk, defaultSegWindow)
			if err != nil {
				return nil, err
			}
			g.botArr = botArr
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "dna.bin")); err == nil {
		dnaAccess, err := dna.Load(filepath.Join(dir, "dna.bin"), a.backend, g.length, defaultSegChunk*dnaChunkScale, defaultSegWindow)
		if err != nil {
			return nil, err
		}
		g.dnaAccess = dnaAccess
	}

	if g.topArr != nil || g.botArr != nil {
		if err := g.buildCaches(); err != nil {
			return nil, err
		}
	}

	return g, nil
}
