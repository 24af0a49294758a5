// Package arrayports implements pure array-input slot maintenance:
// contiguous renumbering of connected slots and the always-one-trailing-
// empty-slot invariant.
package arrayports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// Expand replaces every array=true port in inputs with a single slot
// "name[0]" carrying ArrayParent=name, ArrayIndex=0.
func Expand(inputs []schema.PortDefinition) []schema.PortDefinition {
	out := make([]schema.PortDefinition, 0, len(inputs))
	for _, p := range inputs {
		if !p.Array {
			out = append(out, p)
			continue
		}
		idx := 0
		slot := p
		slot.Name = slotName(p.Name, idx)
		slot.Array = false
		slot.ArrayParent = p.Name
		slot.ArrayIndex = &idx
		out = append(out, slot)
	}
	return out
}

// OnConnect appends a new empty trailing slot "name[k+1]" if the just
// connected handle was the highest-index slot of its array.
func OnConnect(inputs []schema.PortDefinition, handle string, edges []schema.WorkflowEdge) []schema.PortDefinition {
	port, ok := findSlot(inputs, handle)
	if !ok || port.ArrayParent == "" {
		return inputs
	}

	highest := highestIndex(inputs, port.ArrayParent)
	if *port.ArrayIndex != highest {
		return inputs
	}

	next := highest + 1
	newSlot := schema.PortDefinition{
		Name:        slotName(port.ArrayParent, next),
		Type:        port.Type,
		Required:    false,
		ArrayParent: port.ArrayParent,
		ArrayIndex:  &next,
	}
	out := make([]schema.PortDefinition, len(inputs), len(inputs)+1)
	copy(out, inputs)
	return append(out, newSlot)
}

// HandleRemap maps an old handle id to its new one after Cleanup
// renumbers connected slots.
type HandleRemap map[string]string

// Cleanup renumbers connected slots of every array port contiguously from
// 0 preserving order, appends exactly one empty trailing slot per array
// (never collapsed to zero, even when the port has no connections), and
// returns the old->new handle id map for the caller to apply to edges.
func Cleanup(inputs []schema.PortDefinition, edges []schema.WorkflowEdge) ([]schema.PortDefinition, HandleRemap) {
	connectedHandles := make(map[string]bool)
	for _, e := range edges {
		connectedHandles[stripDirection(e.TargetHandle)] = true
	}

	byParent := make(map[string][]schema.PortDefinition)
	var order []string
	var nonArray []schema.PortDefinition
	for _, p := range inputs {
		if p.ArrayParent == "" {
			nonArray = append(nonArray, p)
			continue
		}
		if _, seen := byParent[p.ArrayParent]; !seen {
			order = append(order, p.ArrayParent)
		}
		byParent[p.ArrayParent] = append(byParent[p.ArrayParent], p)
	}

	remap := make(HandleRemap)
	out := append([]schema.PortDefinition{}, nonArray...)

	for _, parent := range order {
		slots := byParent[parent]
		sort.Slice(slots, func(i, j int) bool { return *slots[i].ArrayIndex < *slots[j].ArrayIndex })

		var connected []schema.PortDefinition
		for _, s := range slots {
			if connectedHandles["input:"+s.Name] {
				connected = append(connected, s)
			}
		}

		for newIdx, s := range connected {
			newName := slotName(parent, newIdx)
			if newName != s.Name {
				remap["input:"+s.Name] = "input:" + newName
			}
			renamed := s
			renamed.Name = newName
			idx := newIdx
			renamed.ArrayIndex = &idx
			out = append(out, renamed)
		}

		trailingIdx := len(connected)
		trailingType := schema.ValueAny
		if len(slots) > 0 {
			trailingType = slots[0].Type
		}
		out = append(out, schema.PortDefinition{
			Name:        slotName(parent, trailingIdx),
			Type:        trailingType,
			ArrayParent: parent,
			ArrayIndex:  &trailingIdx,
		})
	}

	return out, remap
}

// ApplyRemap rewrites every edge's TargetHandle through remap, leaving
// unmapped handles unchanged.
func ApplyRemap(edges []schema.WorkflowEdge, remap HandleRemap) []schema.WorkflowEdge {
	out := make([]schema.WorkflowEdge, len(edges))
	for i, e := range edges {
		if newHandle, ok := remap[stripDirection(e.TargetHandle)]; ok {
			e.TargetHandle = newHandle
		}
		out[i] = e
	}
	return out
}

func slotName(parent string, idx int) string {
	return fmt.Sprintf("%s[%d]", parent, idx)
}

func findSlot(inputs []schema.PortDefinition, handle string) (schema.PortDefinition, bool) {
	name := strings.TrimPrefix(stripDirection(handle), "input:")
	for _, p := range inputs {
		if p.Name == name {
			return p, true
		}
	}
	return schema.PortDefinition{}, false
}

func highestIndex(inputs []schema.PortDefinition, parent string) int {
	highest := -1
	for _, p := range inputs {
		if p.ArrayParent == parent && p.ArrayIndex != nil && *p.ArrayIndex > highest {
			highest = *p.ArrayIndex
		}
	}
	return highest
}

func stripDirection(handle string) string {
	return strings.TrimSuffix(handle, ":internal")
}
