package sync

import "github.com/dmitrijs2005/pintask/internal/client/models"

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
	changeClear
)

// change is one queued local-origin mutation. The reconciler pushes
// deltas, one gateway call per change, never the whole collection.
type change struct {
	kind changeKind
	task models.Task // for deletes only the id matters; unused for clear
}

// coalesce collapses a drained batch so each task id maps to at most one
// outbound call. Later changes win; an insert followed by an update stays
// an insert carrying the latest fields; an insert followed by a delete
// cancels out entirely; a clear supersedes everything queued before it.
func coalesce(batch []change) []change {
	out := make([]change, 0, len(batch))
	index := make(map[int64]int) // task id -> position in out

	for _, c := range batch {
		if c.kind == changeClear {
			out = out[:0]
			clear(index)
			out = append(out, c)
			continue
		}

		i, seen := index[c.task.ID]
		if !seen {
			index[c.task.ID] = len(out)
			out = append(out, c)
			continue
		}

		prev := out[i]
		switch {
		case prev.kind == changeInsert && c.kind == changeUpdate:
			out[i] = change{kind: changeInsert, task: c.task}
		case prev.kind == changeInsert && c.kind == changeDelete:
			// never reached the server; nothing to delete there
			out[i] = change{kind: changeKind(-1)}
		default:
			out[i] = c
		}
	}

	// drop cancelled slots
	result := out[:0]
	for _, c := range out {
		if c.kind >= 0 {
			result = append(result, c)
		}
	}
	return result
}
