package journal

// MergeCollection reconciles two entity sequences by id.
//
// Local items are indexed first; a duplicate id within local keeps the first
// position and the last value. A remote item is taken when its id is unknown
// locally or when its Timestamp is strictly greater than the current one, so
// equal timestamps keep the local value. Items without an id are dropped.
//
// Output order is local ids in their original order followed by remote-only
// ids in remote order.
func MergeCollection[T Entity](local, remote []T) []T {
	out := make([]T, 0, len(local)+len(remote))
	index := make(map[string]int, len(local)+len(remote))

	for _, item := range local {
		id := item.EntityID()
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			out[i] = item
			continue
		}
		index[id] = len(out)
		out = append(out, item)
	}

	for _, item := range remote {
		id := item.EntityID()
		if id == "" {
			continue
		}
		i, ok := index[id]
		if !ok {
			index[id] = len(out)
			out = append(out, item)
			continue
		}
		if item.Timestamp() > out[i].Timestamp() {
			out[i] = item
		}
	}
	return out
}

// MergeRemoteState merges a remote document into a local one and returns a
// new document; neither input is modified.
//
// Collections merge per item with MergeCollection, and sections additionally
// pass through EnsureSystemSections. Settings take remote values as the base
// with every local key laid on top. Flags are local only.
func MergeRemoteState(local, remote *Document) *Document {
	if local == nil {
		local = &Document{}
	}
	if remote == nil {
		remote = &Document{}
	}
	l := local.Clone()
	r := remote.Clone()

	merged := &Document{
		Memories: MergeCollection(l.Memories, r.Memories),
		People:   MergeCollection(l.People, r.People),
		Places:   MergeCollection(l.Places, r.Places),
		Sections: EnsureSystemSections(MergeCollection(l.Sections, r.Sections)),
		Settings: make(map[string]any, len(r.Settings)+len(l.Settings)),
		Flags:    make(map[string]bool, len(l.Flags)),
	}
	for k, v := range r.Settings {
		merged.Settings[k] = v
	}
	for k, v := range l.Settings {
		merged.Settings[k] = v
	}
	for k, v := range l.Flags {
		merged.Flags[k] = v
	}
	return merged
}
