// Package schema holds the declarative field constraints of every content
// collection and the single validator that interprets them.
package schema

import "github.com/uxfolio/portfolio-cms/internal/core/domain"

// Kind is the JSON shape a field value must have.
type Kind string

const (
	KindString     Kind = "string"
	KindNumber     Kind = "number"
	KindBool       Kind = "bool"
	KindStringList Kind = "string_list"
)

// Field declares one type-specific field. Rules is a go-playground/validator
// tag evaluated against the value (against each element for string lists).
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Rules    string
}

// Schema is the constraint description of one entity type.
type Schema struct {
	Type   domain.EntityType
	Fields []Field
}

// Field looks up a declared field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

const month = "datetime=2006-01"

func req(name string, kind Kind, rules string) Field {
	return Field{Name: name, Kind: kind, Required: true, Rules: rules}
}

func opt(name string, kind Kind, rules string) Field {
	return Field{Name: name, Kind: kind, Rules: rules}
}

var registry = map[domain.EntityType]Schema{
	domain.EntityProfile: {Type: domain.EntityProfile, Fields: []Field{
		req("name", KindString, "max=120"),
		req("headline", KindString, "max=200"),
		opt("bio", KindString, "max=4000"),
		opt("email", KindString, "email"),
		opt("phone", KindString, "max=40"),
		opt("location", KindString, "max=120"),
		opt("avatar_url", KindString, "url"),
		opt("resume_url", KindString, "url"),
		opt("availability", KindString, "oneof=available open unavailable"),
		opt("social_links", KindStringList, "url"),
	}},
	domain.EntityTheme: {Type: domain.EntityTheme, Fields: []Field{
		req("primary_color", KindString, "hexcolor"),
		opt("secondary_color", KindString, "hexcolor"),
		opt("accent_color", KindString, "hexcolor"),
		opt("background_color", KindString, "hexcolor"),
		opt("font_heading", KindString, "max=80"),
		opt("font_body", KindString, "max=80"),
		opt("mode", KindString, "oneof=light dark system"),
	}},
	domain.EntityCaseStudies: {Type: domain.EntityCaseStudies, Fields: []Field{
		req("title", KindString, "max=200"),
		req("slug", KindString, "max=120,lowercase"),
		req("summary", KindString, "max=600"),
		opt("body", KindString, "max=20000"),
		opt("client", KindString, "max=120"),
		opt("role", KindString, "max=120"),
		opt("year", KindNumber, "gte=1990,lte=2100"),
		opt("duration", KindString, "max=60"),
		opt("cover_image", KindString, "url"),
		opt("link", KindString, "url"),
		opt("tags", KindStringList, "max=40"),
		opt("tools", KindStringList, "max=40"),
		opt("metrics", KindStringList, "max=120"),
		opt("featured", KindBool, ""),
	}},
	domain.EntityWorkExperience: {Type: domain.EntityWorkExperience, Fields: []Field{
		req("company", KindString, "max=120"),
		req("role", KindString, "max=120"),
		req("start_date", KindString, month),
		opt("end_date", KindString, month),
		opt("current", KindBool, ""),
		opt("location", KindString, "max=120"),
		opt("company_url", KindString, "url"),
		opt("description", KindString, "max=4000"),
		opt("highlights", KindStringList, "max=300"),
	}},
	domain.EntityTestimonials: {Type: domain.EntityTestimonials, Fields: []Field{
		req("author", KindString, "max=120"),
		req("quote", KindString, "max=1500"),
		opt("author_title", KindString, "max=120"),
		opt("company", KindString, "max=120"),
		opt("avatar_url", KindString, "url"),
		opt("linkedin_url", KindString, "url"),
		opt("rating", KindNumber, "gte=1,lte=5"),
	}},
	domain.EntityEducation: {Type: domain.EntityEducation, Fields: []Field{
		req("institution", KindString, "max=160"),
		req("degree", KindString, "max=160"),
		opt("field", KindString, "max=160"),
		opt("start_year", KindNumber, "gte=1950,lte=2100"),
		opt("end_year", KindNumber, "gte=1950,lte=2100"),
		opt("grade", KindString, "max=40"),
		opt("description", KindString, "max=2000"),
	}},
	domain.EntityCertifications: {Type: domain.EntityCertifications, Fields: []Field{
		req("name", KindString, "max=160"),
		req("issuer", KindString, "max=160"),
		opt("issued_at", KindString, month),
		opt("expires_at", KindString, month),
		opt("credential_id", KindString, "max=120"),
		opt("credential_url", KindString, "url"),
	}},
	domain.EntityAchievements: {Type: domain.EntityAchievements, Fields: []Field{
		req("title", KindString, "max=200"),
		opt("description", KindString, "max=2000"),
		opt("date", KindString, month),
		opt("issuer", KindString, "max=160"),
		opt("link", KindString, "url"),
	}},
	domain.EntitySkills: {Type: domain.EntitySkills, Fields: []Field{
		req("name", KindString, "max=80"),
		req("category", KindString, "max=80"),
		opt("level", KindNumber, "gte=0,lte=100"),
		opt("icon", KindString, "max=80"),
		opt("keywords", KindStringList, "max=40"),
	}},
}

// For returns the schema registered for t.
func For(t domain.EntityType) (Schema, bool) {
	s, ok := registry[t]
	return s, ok
}
