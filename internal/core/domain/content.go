package domain

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// EntityType names one ordered content collection.
type EntityType string

const (
	EntityProfile        EntityType = "profile"
	EntityTheme          EntityType = "theme"
	EntityCaseStudies    EntityType = "case_studies"
	EntityWorkExperience EntityType = "work_experience"
	EntityTestimonials   EntityType = "testimonials"
	EntityEducation      EntityType = "education"
	EntityCertifications EntityType = "certifications"
	EntityAchievements   EntityType = "achievements"
	EntitySkills         EntityType = "skills"
)

// EntityTypes lists every content collection in display order of the admin menu.
var EntityTypes = []EntityType{
	EntityProfile,
	EntityTheme,
	EntityCaseStudies,
	EntityWorkExperience,
	EntityTestimonials,
	EntityEducation,
	EntityCertifications,
	EntityAchievements,
	EntitySkills,
}

// routeAliases maps the hyphenated URL forms onto entity types.
var routeAliases = map[string]EntityType{
	"case-studies":    EntityCaseStudies,
	"work-experience": EntityWorkExperience,
}

// ParseEntityType resolves a path segment such as "case-studies" or
// "case_studies" to an EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	if t, ok := routeAliases[s]; ok {
		return t, true
	}
	t := EntityType(s)
	if slices.Contains(EntityTypes, t) {
		return t, true
	}
	return "", false
}

// Reserved payload keys managed by the repository rather than the entity schema.
const (
	FieldID      = "id"
	FieldOrder   = "order"
	FieldVisible = "visible"
)

// Record is a single content item inside one entity collection.
type Record struct {
	ID        string
	Type      EntityType
	Order     int
	Visible   bool
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy whose Fields map can be mutated independently.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = cloneFields(r.Fields)
	return &c
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// MarshalJSON flattens the type-specific fields next to the managed ones so
// the public site reads a plain object per record.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+5)
	maps.Copy(out, r.Fields)
	out[FieldID] = r.ID
	out[FieldOrder] = r.Order
	out[FieldVisible] = r.Visible
	out["created_at"] = r.CreatedAt
	out["updated_at"] = r.UpdatedAt
	return json.Marshal(out)
}

// SortByOrder sorts records ascending by Order. Ties, which deletes and
// concurrent creates can leave behind, fall back to CreatedAt then ID.
func SortByOrder(records []*Record) {
	slices.SortFunc(records, func(a, b *Record) int {
		return cmp.Or(
			cmp.Compare(a.Order, b.Order),
			a.CreatedAt.Compare(b.CreatedAt),
			strings.Compare(a.ID, b.ID),
		)
	})
}

// CheckReorder verifies that ids is exactly the current id set of t: same
// length, no duplicates, nothing foreign. Any mismatch is an ErrConflict.
func CheckReorder(t EntityType, ids, current []string) error {
	if len(ids) != len(current) {
		return fmt.Errorf("reorder %s: got %d ids, collection has %d: %w", t, len(ids), len(current), ErrConflict)
	}
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = false
	}
	for _, id := range ids {
		seen, ok := known[id]
		if !ok {
			return fmt.Errorf("reorder %s: unknown id %q: %w", t, id, ErrConflict)
		}
		if seen {
			return fmt.Errorf("reorder %s: duplicate id %q: %w", t, id, ErrConflict)
		}
		known[id] = true
	}
	return nil
}

// NormalizeFields converts decoded list values ([]any of strings, as produced
// by JSON and BSON decoders) back to []string in place.
func NormalizeFields(fields map[string]any) map[string]any {
	for k, v := range fields {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		strs := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				strs = nil
				break
			}
			strs = append(strs, s)
		}
		if strs != nil {
			fields[k] = strs
		}
	}
	return fields
}
