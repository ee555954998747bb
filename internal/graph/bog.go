package graph

import (
	"strings"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// PathError signals a custom target output path that escapes its
// permitted root (§4.6, §9 File-path handling).
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return "output path escapes private build directory: " + e.Path
}

func newPathEscapeError(p string) error { return &PathError{Path: p} }

// CycleError names the offending targets in order (§4.6 "refuse edges that
// would introduce a cycle with a diagnostic naming the cycle's targets").
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "cyclic target dependency: " + strings.Join(e.Cycle, " -> ")
}

// node adapts a Target's identity to gonum's graph.Node interface.
type node struct {
	id int64
	t  *Target
}

func (n *node) ID() int64 { return n.id }

// InstallEntry is one (source, destination, mode, strip, follow-symlinks)
// install manifest row (§4.7).
type InstallEntry struct {
	Source         string
	Destination    string
	Mode           uint32
	Strip          bool
	FollowSymlinks bool
}

// TestEntry is one test or benchmark registration.
type TestEntry struct {
	Name       string
	Target     *Target
	Args       []string
	IsBenchmark bool
}

// SubprojectRecord is one entered subproject's metadata for introspection.
type SubprojectRecord struct {
	Name       string
	Version    string
	ParentName string
}

// BOG is the frozen Build Object Graph (§3): targets, custom commands,
// plus global metadata. Acyclicity is enforced incrementally as edges are
// added, mirroring internal/batch/batch.go's gonum-backed cycle handling —
// here a detected cycle is rejected rather than broken, since BOG cycles
// are a hard configuration error (§4.6/§8), not a schedulable conflict.
type BOG struct {
	ProjectName    string
	ProjectVersion string

	Targets        []*Target // declaration order (§4.7 determinism)
	CustomCommands []*CustomCommand
	GeneratedLists []*GeneratedList // generator.process(...) results consumed as target sources

	Installs     []InstallEntry
	Tests        []TestEntry
	IncludeDirs  []string
	Subprojects  []SubprojectRecord

	g         *simple.DirectedGraph
	nodeByKey map[Identity]*node
	nextID    int64
}

// NewBOG constructs an empty graph for one configuration run.
func NewBOG(projectName, version string) *BOG {
	return &BOG{
		ProjectName:    projectName,
		ProjectVersion: version,
		g:              simple.NewDirectedGraph(),
		nodeByKey:      map[Identity]*node{},
	}
}

// AddTarget registers t, enforcing the (subproject, name) uniqueness
// invariant (§3 Target, §8 "Target uniqueness").
func (b *BOG) AddTarget(t *Target) error {
	if _, exists := b.nodeByKey[t.Identity]; exists {
		return xerrors.Errorf("duplicate target name %q in subproject %q", t.Name, t.Subproject)
	}
	n := &node{id: b.nextID, t: t}
	b.nextID++
	b.nodeByKey[t.Identity] = n
	b.g.AddNode(n)
	b.Targets = append(b.Targets, t)
	return nil
}

// AddLinkEdge records a link-with edge from -> to, refusing it (and
// leaving the graph unchanged) if it would introduce a cycle (§4.6).
func (b *BOG) AddLinkEdge(from, to *Target) error {
	fn, ok := b.nodeByKey[from.Identity]
	if !ok {
		return xerrors.Errorf("internal invariant violation: unknown target %q", from.Name)
	}
	tn, ok := b.nodeByKey[to.Identity]
	if !ok {
		return xerrors.Errorf("internal invariant violation: unknown target %q", to.Name)
	}
	edge := b.g.NewEdge(fn, tn)
	b.g.SetEdge(edge)
	if _, err := topo.Sort(b.g); err != nil {
		b.g.RemoveEdge(fn.ID(), tn.ID())
		if uo, ok := err.(topo.Unorderable); ok {
			return &CycleError{Cycle: cycleNames(uo)}
		}
		return xerrors.Errorf("checking acyclicity: %w", err)
	}
	return nil
}

func cycleNames(uo topo.Unorderable) []string {
	var names []string
	for _, component := range uo {
		for _, n := range component {
			names = append(names, n.(*node).t.Name)
		}
	}
	return names
}

// AddCustomCommand registers a custom target, validating its output paths
// first (§4.6).
func (b *BOG) AddCustomCommand(c *CustomCommand) error {
	if err := c.ValidateOutputs(); err != nil {
		return err
	}
	b.CustomCommands = append(b.CustomCommands, c)
	return nil
}

// AddGeneratedList records a generator.process(...) result consumed as a
// target source, skipping a list already recorded (the same
// generator.process() return value can be passed as a source to more than
// one target, and must still lower to only one set of build statements).
func (b *BOG) AddGeneratedList(l *GeneratedList) {
	for _, existing := range b.GeneratedLists {
		if existing == l {
			return
		}
	}
	b.GeneratedLists = append(b.GeneratedLists, l)
}

// FindTarget looks up a previously added target by identity.
func (b *BOG) FindTarget(id Identity) (*Target, bool) {
	n, ok := b.nodeByKey[id]
	if !ok {
		return nil, false
	}
	return n.t, true
}
