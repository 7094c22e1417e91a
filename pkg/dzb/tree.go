package dzb

import "fmt"

// Roots returns the indices of groups with no parent.
func (d *DZB) Roots() []int {
	var roots []int
	for i, g := range d.Groups {
		if g.ParentIndex == NoGroup {
			roots = append(roots, i)
		}
	}
	return roots
}

// Children returns the indices of the direct children of group i by walking
// its sibling chain. A chain that loops is cut at the first repeat.
func (d *DZB) Children(i int) []int {
	if i < 0 || i >= len(d.Groups) {
		return nil
	}
	var children []int
	seen := make(map[int]bool)
	for c := d.Groups[i].FirstChildIndex; c != NoGroup; c = d.Groups[c].NextSiblingIndex {
		if int(c) >= len(d.Groups) || c < 0 || seen[int(c)] {
			break
		}
		seen[int(c)] = true
		children = append(children, int(c))
	}
	return children
}

// Walk visits every group reachable from the roots depth-first, parents
// before children. It stops at the first error returned by fn. A group
// reached twice means the links form a cycle and Walk returns ErrGroupCycle.
// Once the roots are done, every group must have been visited: one caught in
// a parent loop is reported as ErrGroupCycle, any other as ErrBadGroupLink.
func (d *DZB) Walk(fn func(index, depth int) error) error {
	visited := make([]bool, len(d.Groups))

	var visit func(i, depth int) error
	visit = func(i, depth int) error {
		if visited[i] {
			return fmt.Errorf("%w: group %d reached twice", ErrGroupCycle, i)
		}
		visited[i] = true
		if err := fn(i, depth); err != nil {
			return err
		}
		for _, c := range d.childChain(i) {
			if err := visit(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range d.Roots() {
		if err := visit(r, 0); err != nil {
			return err
		}
	}
	for i, ok := range visited {
		if !ok {
			return d.unreachable(i)
		}
	}
	return nil
}

// unreachable explains why group i was not found under any root.
func (d *DZB) unreachable(i int) error {
	seen := make(map[int]bool)
	for g := i; g >= 0 && g < len(d.Groups); g = int(d.Groups[g].ParentIndex) {
		if seen[g] {
			return fmt.Errorf("%w: group %d has no root ancestor", ErrGroupCycle, i)
		}
		seen[g] = true
	}
	return fmt.Errorf("%w: group %d is missing from its parent's child list", ErrBadGroupLink, i)
}

// childChain is Children without repeat detection, bounded by the group
// count so a looping chain still terminates and Walk can report it.
func (d *DZB) childChain(i int) []int {
	var chain []int
	for c := d.Groups[i].FirstChildIndex; c != NoGroup && len(chain) <= len(d.Groups); c = d.Groups[c].NextSiblingIndex {
		if c < 0 || int(c) >= len(d.Groups) {
			break
		}
		chain = append(chain, int(c))
	}
	return chain
}

// GroupByName returns the first group called name.
func (d *DZB) GroupByName(name string) (*Group, bool) {
	for _, g := range d.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// AttachGroup makes child the last child of parent, unlinking it from any
// previous parent first. A nil parent turns child into a root. Both groups
// must belong to d and parent may not be child or one of its descendants.
func (d *DZB) AttachGroup(child, parent *Group) error {
	ci := d.IndexOfGroup(child)
	if ci < 0 {
		return preconditionError("attach group", fmt.Errorf("child: %w", ErrNotOwned))
	}
	pi := -1
	if parent != nil {
		if pi = d.IndexOfGroup(parent); pi < 0 {
			return preconditionError("attach group", fmt.Errorf("parent: %w", ErrNotOwned))
		}
		for a, steps := pi, 0; a >= 0 && a < len(d.Groups) && steps <= len(d.Groups); a, steps = int(d.Groups[a].ParentIndex), steps+1 {
			if a == ci {
				return preconditionError("attach group", fmt.Errorf("%w: group %d is an ancestor of group %d", ErrGroupCycle, ci, pi))
			}
		}
	}

	d.detachGroup(ci)
	if pi < 0 {
		return nil
	}

	child.ParentIndex = int16(pi)
	kids := d.Children(pi)
	if len(kids) == 0 {
		parent.FirstChildIndex = int16(ci)
	} else {
		d.Groups[kids[len(kids)-1]].NextSiblingIndex = int16(ci)
	}
	return nil
}

// detachGroup removes group i from its parent's child chain.
func (d *DZB) detachGroup(i int) {
	g := d.Groups[i]
	if p := int(g.ParentIndex); p >= 0 && p < len(d.Groups) {
		parent := d.Groups[p]
		if int(parent.FirstChildIndex) == i {
			parent.FirstChildIndex = g.NextSiblingIndex
		} else {
			kids := d.Children(p)
			for k, c := range kids {
				if c == i && k > 0 {
					d.Groups[kids[k-1]].NextSiblingIndex = g.NextSiblingIndex
					break
				}
			}
		}
	}
	g.ParentIndex = NoGroup
	g.NextSiblingIndex = NoGroup
}
