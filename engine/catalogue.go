package engine

import "github.com/rs/zerolog"

// fields is a shallow set of named MediaItem field updates, matching the
// role Python's media_update(id, **kwargs) dict merge plays: only the keys
// present are changed, everything else on the item is preserved.
type fields map[string]any

// catalogue is the authoritative id -> MediaItem map. It is owned
// exclusively by the dispatcher goroutine (§5's single-writer rule); every
// mutation both updates the map and publishes exactly one Event carrying
// only the changed fields, so ordering and the I3 invariant (no update
// before an upsert) hold by construction.
type catalogue struct {
	items map[string]*MediaItem
	bus   *eventBus
	log   zerolog.Logger
}

func newCatalogue(bus *eventBus, log zerolog.Logger) *catalogue {
	return &catalogue{
		items: make(map[string]*MediaItem),
		bus:   bus,
		log:   log.With().Str("component", "catalogue").Logger(),
	}
}

// upsert creates the item if absent (re-scanning an already-catalogued
// path therefore updates in place rather than duplicating a row) and
// applies f on top of whatever already exists, then publishes a
// media_update event carrying exactly f.
func (c *catalogue) upsert(id string, f fields) *MediaItem {
	item, exists := c.items[id]
	if !exists {
		item = &MediaItem{ID: id}
		c.items[id] = item
	}
	applyFields(item, f)

	c.log.Debug().Str("id", id).Interface("fields", f).Bool("cached", exists).Msg("media_update")
	c.bus.publish(Event{Kind: EventMediaUpdate, ID: id, Fields: map[string]any(f)})
	return item
}

// delete removes id from the catalogue and publishes media_delete. It is a
// no-op if id was never upserted (defensive; callers are expected to check
// lookup first).
func (c *catalogue) delete(id string) {
	if _, ok := c.items[id]; !ok {
		return
	}
	delete(c.items, id)
	c.bus.publish(Event{Kind: EventMediaDelete, ID: id})
}

func (c *catalogue) lookup(id string) (*MediaItem, bool) {
	item, ok := c.items[id]
	return item, ok
}

// all returns every catalogued item. The returned slice is a new slice of
// pointers into the catalogue's own items — callers must not mutate the
// pointees outside the catalogue's owning goroutine.
func (c *catalogue) all() []*MediaItem {
	out := make([]*MediaItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	return out
}

// idsInState returns the ids of every item currently in the given state,
// in map iteration order; the order is not defined and is not sorted.
func (c *catalogue) idsInState(state State) []string {
	var out []string
	for id, item := range c.items {
		if item.State == state {
			out = append(out, id)
		}
	}
	return out
}

// applyFields performs the shallow merge of f onto item, the Go analogue
// of Python's dict.update(**kwargs): only keys present in f are touched.
func applyFields(item *MediaItem, f fields) {
	for k, v := range f {
		switch k {
		case "id":
			item.ID = v.(string)
		case "kind":
			item.Kind = v.(Kind)
		case "path":
			item.Path = v.(string)
		case "dirpath":
			item.DirPath = v.(string)
		case "filename":
			item.Filename = v.(string)
		case "displayname":
			item.DisplayName = v.(string)
		case "framerate":
			item.Framerate = v.(Rational)
		case "resolution":
			item.Resolution = v.(Resolution)
		case "codec":
			item.Codec = v.(string)
		case "pixfmt":
			item.PixFmt = v.(string)
		case "colorspace":
			item.Colorspace = v.(string)
		case "duration":
			item.Duration = v.(float64)
		case "filesize":
			item.FileSize = v.(int64)
		case "thumbnail":
			item.Thumbnail = v.([]byte)
		case "progress":
			item.Progress = v.(float64)
		case "state":
			item.State = v.(State)
		case "outpath":
			item.OutPath = v.(string)
		case "seqstart":
			item.SeqStart = v.(int)
		}
	}
}
