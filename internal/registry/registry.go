// Package registry implements the process-wide Handler Registry: two
// namespace tables, tool and node, mapping a handler name to its
// constructor. This is an explicit value constructed at startup and
// threaded through the dispatcher — not a package-level mutable map
// populated by decorator side effects at import time. Call Register* from
// a single init_handlers()-style bootstrap function in cmd/orbitflowd.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/orbitflow/orbitflow/internal/handler"
)

// entry pairs a registration with its cached static ParameterSpec list,
// derived once and cached for the life of the registry.
type entry struct {
	reg   handler.Registration
	specs []handler.ParameterSpec
}

// Registry holds the Tools and Nodes namespace tables. The zero value is not
// usable; construct with New. Safe for concurrent use: registration takes a
// write lock, lookups take a read lock — registration happens once at
// process start and is thereafter read without contention.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*entry
	nodes map[string]*entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]*entry),
		nodes: make(map[string]*entry),
	}
}

// SpecDeriver derives a handler's ParameterSpec list at registration time,
// either from the handler's own handler.Spec implementation or by falling
// back to some other static source (struct tags, decorator metadata). The
// registry delegates derivation rather than hard-coding reflection so
// internal/validate owns the actual introspection strategy.
type SpecDeriver func(h handler.Handler) []handler.ParameterSpec

// RegisterTool registers a handler constructor under the tool namespace.
func (r *Registry) RegisterTool(name string, reg handler.Registration, derive SpecDeriver) {
	r.register(r.tools, name, reg, derive)
}

// RegisterNode registers a handler constructor under the node namespace.
func (r *Registry) RegisterNode(name string, reg handler.Registration, derive SpecDeriver) {
	r.register(r.nodes, name, reg, derive)
}

func (r *Registry) register(table map[string]*entry, name string, reg handler.Registration, derive SpecDeriver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var specs []handler.ParameterSpec
	if derive != nil {
		inst := reg.Constructor()
		specs = derive(inst)
	}
	table[name] = &entry{reg: reg, specs: specs}
}

// GetTool resolves a handler by exact name in the tool namespace.
func (r *Registry) GetTool(name string) (handler.Handler, []handler.ParameterSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return nil, nil, &NotFoundError{
			Namespace: "tool",
			Tried:     []string{name},
			Available: namesOf(r.tools),
		}
	}
	inst, err := instantiate(name, e.reg.Constructor)
	if err != nil {
		return nil, nil, err
	}
	return inst, e.specs, nil
}

// GetNode resolves a handler in the node namespace, trying three keys in
// order to preserve back-compat for callers that persist either the long
// ("node.action") or short ("node" / "action") form.
func (r *Registry) GetNode(node, action string) (handler.Handler, []handler.ParameterSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tried := make([]string, 0, 3)
	tryKey := func(key string) (*entry, bool) {
		if key == "" {
			return nil, false
		}
		tried = append(tried, key)
		e, ok := r.nodes[key]
		return e, ok
	}

	long := node
	if action != "" {
		long = node + "." + action
	}

	var e *entry
	var ok bool
	if e, ok = tryKey(long); !ok {
		if e, ok = tryKey(node); !ok {
			e, ok = tryKey(action)
		}
	}
	if !ok {
		return nil, nil, &NotFoundError{
			Namespace: "node",
			Tried:     tried,
			Available: namesOf(r.nodes),
		}
	}

	inst, err := instantiate(tried[len(tried)-1], e.reg.Constructor)
	if err != nil {
		return nil, nil, err
	}
	return inst, e.specs, nil
}

// Status summarizes registry state for observability.
type Status struct {
	Tools   []string
	Nodes   []string
	Scanned int
}

// Status enumerates the currently-registered handler names.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := namesOf(r.tools)
	nodes := namesOf(r.nodes)
	return Status{
		Tools:   tools,
		Nodes:   nodes,
		Scanned: len(tools) + len(nodes),
	}
}

func namesOf(table map[string]*entry) []string {
	names := make([]string, 0, len(table))
	for k := range table {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func instantiate(name string, ctor handler.Constructor) (h handler.Handler, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &InstantiationError{Name: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	h = ctor()
	if h == nil {
		return nil, &InstantiationError{Name: name, Err: fmt.Errorf("constructor returned nil")}
	}
	return h, nil
}

// SplitName splits a "Domain.action" name into its two parts. A handler
// name is globally unique and takes the form Domain.action or a single
// token; a single token (no dot) returns ("", token).
func SplitName(name string) (domain, action string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
