package model

import (
	"fmt"
	"strings"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/util"
)

// Location types in the canonical hierarchical schema
const (
	LocationRoom = "room"
	LocationRack = "rack"
	LocationSlot = "slot"
)

// UsageStats are the derived per-location counters. They are recomputed
// by the reconciler from the files collection and are never authoritative.
type UsageStats struct {
	Total     int
	Available int
	Borrowed  int
	Archived  int
}

// LocationRecord is a physical storage slot, rack or room. The canonical
// shape is the hierarchical {Name, Type, ParentID} form; legacy
// {room, rack, slot} documents are converted by MigrateLegacy before
// they reach the rest of the pipeline.
type LocationRecord struct {
	DocID             string
	Name              string
	Type              string
	ParentID          string
	Available         bool
	Description       string
	DepartmentDefault string // set only on reconciler-created defaults
	Stats             UsageStats
	Legacy            bool // decoded from a legacy-schema document
}

// DecodeLocation builds a LocationRecord from a raw document, migrating
// legacy-schema documents to the canonical form. An absent is_available
// field decodes as available.
func DecodeLocation(doc docstore.Document) (*LocationRecord, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: location document without id", util.ErrMalformedDocument)
	}

	loc := &LocationRecord{
		DocID:             doc.ID,
		Name:              asString(doc.Data, "name"),
		Type:              asString(doc.Data, "type"),
		ParentID:          asString(doc.Data, "parent_id"),
		Available:         asBool(doc.Data, "is_available", true),
		Description:       asString(doc.Data, "description"),
		DepartmentDefault: asString(doc.Data, "department_default"),
	}

	if stats, ok := doc.Data["usage_stats"].(map[string]any); ok {
		loc.Stats = UsageStats{
			Total:     asInt(stats, "total"),
			Available: asInt(stats, "available"),
			Borrowed:  asInt(stats, "borrowed"),
			Archived:  asInt(stats, "archived"),
		}
	}

	if loc.Name == "" {
		if migrated, ok := MigrateLegacy(doc.Data); ok {
			loc.Name = migrated.Name
			loc.Type = migrated.Type
			loc.Legacy = true
		}
	}

	if loc.Type == "" {
		loc.Type = LocationSlot
	}

	return loc, nil
}

// MigrateLegacy converts a legacy {room, rack, slot} triple into the
// canonical hierarchical form. The most specific populated field decides
// the type; the name joins the populated parts so no information is lost.
// Returns false when the document carries no legacy fields at all.
func MigrateLegacy(data map[string]any) (LocationRecord, bool) {
	room := strings.TrimSpace(asString(data, "room"))
	rack := strings.TrimSpace(asString(data, "rack"))
	slot := strings.TrimSpace(asString(data, "slot"))

	if room == "" && rack == "" && slot == "" {
		return LocationRecord{}, false
	}

	typ := LocationRoom
	if rack != "" {
		typ = LocationRack
	}
	if slot != "" {
		typ = LocationSlot
	}

	var parts []string
	for _, p := range []string{room, rack, slot} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return LocationRecord{
		Name: strings.Join(parts, " / "),
		Type: typ,
	}, true
}

// StatsFields returns the usage stats as store fields
func (s UsageStats) StatsFields() map[string]any {
	return map[string]any{
		"total":     s.Total,
		"available": s.Available,
		"borrowed":  s.Borrowed,
		"archived":  s.Archived,
	}
}
