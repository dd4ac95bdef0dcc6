// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

// EventKind identifies a file lifecycle event.
type EventKind int

const (
	EventFileAdded EventKind = iota + 1
	EventFileUpdated
	EventFileRemoved
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventFileAdded:
		return "file_added"
	case EventFileUpdated:
		return "file_updated"
	case EventFileRemoved:
		return "file_removed"
	default:
		return "unknown"
	}
}

// Event is delivered to every listener when a file changes.
type Event struct {
	Kind EventKind
	Path string
}

// Listener receives workspace events. Listeners run synchronously, in
// subscription order, on the goroutine that changed the workspace.
type Listener func(Event)

// Subscribe registers l for every later event.
func (w *Workspace) Subscribe(l Listener) {
	if l == nil {
		return
	}
	w.listeners = append(w.listeners, l)
}

func (w *Workspace) emit(kind EventKind, path string) {
	ev := Event{Kind: kind, Path: path}
	for _, l := range w.listeners {
		l(ev)
	}
}
