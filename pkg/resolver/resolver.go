// Package resolver computes install plans: deterministic dependency
// resolution over the package index, producing a reverse-topological
// sequence of (package, version) pairs with dependencies ahead of their
// dependents.
//
// The traversal is an iterative depth-first walk with an explicit stack,
// so resolution depth is bounded by memory rather than the call stack
// and dependency cycles are detected on all inputs.
package resolver

import (
	"sort"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/index"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/version"
)

// Step is one entry of an install plan.
type Step struct {
	Package string
	Version string
}

// Plan is a reverse-topological install sequence; each package appears
// at most once.
type Plan []Step

// edge is one dependency requirement of a chosen version.
type edge struct {
	pkg string
	req version.Requirement
}

// frame is one element of the explicit traversal stack.
type frame struct {
	pkg  string
	deps []edge
	idx  int

	// emit is true on the first visit of a package; only first visits
	// append to the plan.
	emit bool
}

// Root names one requested package and its requirement string.
type Root struct {
	Package     string
	Requirement string
}

// Resolve produces the install plan for a single root.
func Resolve(doc *index.Document, root, rootReq string) (Plan, error) {
	return ResolveAll(doc, []Root{{Package: root, Requirement: rootReq}})
}

// ResolveAll resolves several roots against one shared choice set, so a
// version chosen for an earlier root must satisfy every later
// requirement on the same package. Resolution performs no I/O beyond
// index reads and depends only on the index and the requirements, never
// on history.
func ResolveAll(doc *index.Document, roots []Root) (Plan, error) {
	r := &resolution{
		doc:      doc,
		chosen:   map[string]string{},
		visiting: map[string]bool{},
	}
	for _, root := range roots {
		if err := r.walk(root.Package, version.ParseRequirement(root.Requirement)); err != nil {
			return nil, err
		}
	}
	return r.plan, nil
}

// walk runs the stack machine to completion for one root.
func (r *resolution) walk(root string, req version.Requirement) error {
	if err := r.enter(root, req); err != nil {
		return err
	}

	for len(r.stack) > 0 {
		top := &r.stack[len(r.stack)-1]
		if top.idx < len(top.deps) {
			e := top.deps[top.idx]
			top.idx++
			if err := r.enter(e.pkg, e.req); err != nil {
				return err
			}
			continue
		}

		done := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		delete(r.visiting, done.pkg)
		if done.emit {
			r.plan = append(r.plan, Step{Package: done.pkg, Version: r.chosen[done.pkg]})
		}
	}
	return nil
}

type resolution struct {
	doc      *index.Document
	chosen   map[string]string
	visiting map[string]bool
	stack    []frame
	plan     Plan
}

// enter pushes a frame for pkg under req, choosing a version on the
// first visit.
func (r *resolution) enter(pkg string, req version.Requirement) error {
	if r.visiting[pkg] {
		return operr.NewError(operr.KindDependencyCycle,
			"dependency cycle detected", nil).WithPackage(pkg)
	}
	r.visiting[pkg] = true

	if v, ok := r.chosen[pkg]; ok {
		if !req.Satisfies(v) {
			return operr.NewError(operr.KindVersionConflict,
				"chosen version "+v+" does not satisfy requirement "+req.String(), nil).
				WithPackage(pkg)
		}
		// Already resolved: its dependencies were already visited.
		r.stack = append(r.stack, frame{pkg: pkg})
		return nil
	}

	entry, err := r.doc.Entry(pkg)
	if err != nil {
		return err
	}
	candidates := entry.Satisfying(req)
	if len(candidates) == 0 {
		return operr.NewError(operr.KindNoSatisfyingVersion,
			"no available version satisfies "+req.String(), nil).WithPackage(pkg)
	}

	best := candidates[0]
	for _, rec := range candidates[1:] {
		if version.Compare(rec.Version, best.Version) > 0 {
			best = rec
		}
	}
	r.chosen[pkg] = best.Version

	deps := make([]edge, 0, len(best.Dependencies))
	for name, reqStr := range best.Dependencies {
		deps = append(deps, edge{pkg: name, req: version.ParseRequirement(reqStr)})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].pkg < deps[j].pkg })

	r.stack = append(r.stack, frame{pkg: pkg, deps: deps, emit: true})
	return nil
}
