package routines

import "sort"

// Document is the on-disk shape: time of day -> destination -> entry.
type Document map[string]map[int64]Entry

// Entry keeps the "mensagem" key of files written by earlier deployments.
type Entry struct {
	Message string `json:"mensagem" yaml:"mensagem"`
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for t, dests := range d {
		m := make(map[int64]Entry, len(dests))
		for id, e := range dests {
			m[id] = e
		}
		out[t] = m
	}
	return out
}

// Routines flattens d, sorted by time of day then destination.
func (d Document) Routines() []Routine {
	out := make([]Routine, 0, len(d))
	for t, dests := range d {
		for id, e := range dests {
			out = append(out, Routine{TimeOfDay: t, Destination: id, Message: e.Message})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeOfDay != out[j].TimeOfDay {
			return out[i].TimeOfDay < out[j].TimeOfDay
		}
		return out[i].Destination < out[j].Destination
	})
	return out
}
