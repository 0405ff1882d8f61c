// Package gazetteer builds the per-event name directory: a mapping from every
// spelling a commentator might use for a person, club or venue to that
// entity's canonical form.
//
// The directory is built fresh for each event from its [event.Labels] and,
// optionally, merged with the learned correction cache. Event entries always
// take priority over learned ones.
package gazetteer

import (
	"slices"
	"strings"

	"github.com/MrWong99/touchline/internal/event"
)

// Origin records where a directory entry came from.
type Origin uint8

const (
	// OriginEvent marks entries derived from the event's own metadata.
	OriginEvent Origin = iota

	// OriginLearned marks entries merged from the learned cache.
	OriginLearned
)

// String returns "event" or "learned".
func (o Origin) String() string {
	if o == OriginLearned {
		return "learned"
	}
	return "event"
}

// Entry is one directory value.
type Entry struct {
	Canonical string
	Origin    Origin
}

// Directory maps name variants to their canonical form. Every canonical name
// is also a key mapping to itself. A Directory is read-only once built.
type Directory struct {
	entries map[string]Entry
	lower   map[string]string
	keys    []string
}

// Learned is the read side of the learned correction cache the builder
// merges from. *learned.Store satisfies it.
type Learned interface {
	Canonicals() map[string]string
}

// BuildOptions configures [Build].
type BuildOptions struct {
	// Learned, when non-nil, is merged into the directory for keys not
	// already present.
	Learned Learned
}

// Build returns the directory for one event. A nil labels value yields a
// directory containing only learned entries (or nothing). Missing fields are
// skipped.
func Build(labels *event.Labels, opts BuildOptions) *Directory {
	b := newBuilder()
	if labels != nil {
		b.addLabels(labels)
	}
	if opts.Learned != nil {
		learned := opts.Learned.Canonicals()
		keys := make([]string, 0, len(learned))
		for k := range learned {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			b.addLearned(k, learned[k])
		}
	}
	return b.finish()
}

// FromMap builds a directory of event-origin entries from variant →
// canonical pairs. Each canonical is also registered as mapping to itself.
func FromMap(m map[string]string) *Directory {
	b := newBuilder()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.add(m[k], k)
	}
	return b.finish()
}

// Surname returns every token after the first, or the whole name if it is a
// single token. "Kevin De Bruyne" → "De Bruyne".
func Surname(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) <= 1 {
		return strings.TrimSpace(fullName)
	}
	return strings.Join(parts[1:], " ")
}

// Lookup returns the entry for an exact key.
func (d *Directory) Lookup(key string) (Entry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

// LookupFold returns the entry whose key equals key case-insensitively.
// When several keys fold to the same string, event entries win over learned
// ones, then the lexically smallest key wins.
func (d *Directory) LookupFold(key string) (Entry, bool) {
	k, ok := d.lower[strings.ToLower(key)]
	if !ok {
		return Entry{}, false
	}
	return d.entries[k], true
}

// Canonical returns the canonical form for an exact key.
func (d *Directory) Canonical(key string) (string, bool) {
	e, ok := d.entries[key]
	return e.Canonical, ok
}

// Keys returns all variant keys in lexical order. The slice must not be
// modified.
func (d *Directory) Keys() []string {
	return d.keys
}

// Len returns the number of keys.
func (d *Directory) Len() int {
	return len(d.entries)
}

// CountOrigin returns the number of keys with origin o.
func (d *Directory) CountOrigin(o Origin) int {
	n := 0
	for _, e := range d.entries {
		if e.Origin == o {
			n++
		}
	}
	return n
}

type builder struct {
	entries    map[string]Entry
	canonicals map[string]bool
}

func newBuilder() *builder {
	return &builder{
		entries:    map[string]Entry{},
		canonicals: map[string]bool{},
	}
}

// add registers canonical → itself and each non-empty variant → canonical.
// A variant never displaces a key that is itself a canonical name.
func (b *builder) add(canonical string, variants ...string) {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return
	}
	b.entries[canonical] = Entry{Canonical: canonical, Origin: OriginEvent}
	b.canonicals[canonical] = true
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" || b.canonicals[v] {
			continue
		}
		b.entries[v] = Entry{Canonical: canonical, Origin: OriginEvent}
	}
}

func (b *builder) addPerson(p event.Person) {
	switch {
	case strings.TrimSpace(p.LongName) != "":
		b.add(p.LongName, p.ShortName, p.Name, Surname(p.LongName))
	case strings.TrimSpace(p.ShortName) != "":
		b.add(p.ShortName, p.Name)
	}
}

func (b *builder) addLabels(l *event.Labels) {
	for _, side := range []event.Lineup{l.Lineup.Home, l.Lineup.Away} {
		for _, p := range side.Players {
			b.addPerson(p)
		}
		for _, c := range side.Coach {
			if strings.TrimSpace(c.LongName) != "" {
				b.addPerson(c)
			}
		}
	}

	for _, ref := range l.Referees() {
		if strings.TrimSpace(ref) != "" {
			b.add(ref, Surname(ref))
		}
	}

	b.add(l.GameHomeTeam)
	b.add(l.GameAwayTeam)
	for _, team := range []event.Team{l.Home, l.Away} {
		primary := strings.TrimSpace(team.Name)
		b.add(primary)
		for _, alt := range team.Names {
			alt = strings.TrimSpace(alt)
			if alt == "" {
				continue
			}
			if primary == "" {
				b.add(alt)
				continue
			}
			b.add(primary, alt)
		}
	}

	for _, venue := range l.Venue {
		b.add(venue)
	}
}

// addLearned merges one cache entry unless the key is already present.
func (b *builder) addLearned(key, canonical string) {
	if key == "" || canonical == "" {
		return
	}
	if _, ok := b.entries[key]; ok {
		return
	}
	b.entries[key] = Entry{Canonical: canonical, Origin: OriginLearned}
}

func (b *builder) finish() *Directory {
	d := &Directory{
		entries: b.entries,
		lower:   make(map[string]string, len(b.entries)),
		keys:    make([]string, 0, len(b.entries)),
	}
	for k := range b.entries {
		d.keys = append(d.keys, k)
	}
	slices.Sort(d.keys)
	for _, k := range d.keys {
		lk := strings.ToLower(k)
		prev, ok := d.lower[lk]
		if !ok || (d.entries[prev].Origin == OriginLearned && d.entries[k].Origin == OriginEvent) {
			d.lower[lk] = k
		}
	}
	return d
}
