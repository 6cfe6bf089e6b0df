// Package record defines the value types produced by the two-phase harvest:
// lightweight summaries from list-view pages, detail records from listing
// pages, and the merged records that get persisted.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Field identifies a normalized listing attribute. The set of fields is
// closed; site-native labels are translated into Fields by a Mapping.
type Field string

// Normalized listing fields.
const (
	FieldListingID         Field = "listing_id"
	FieldTitle             Field = "title"
	FieldPrice             Field = "price"
	FieldLocation          Field = "location"
	FieldURL               Field = "url"
	FieldLastUpdated       Field = "last_updated"
	FieldListingType       Field = "listing_type"
	FieldPropertyType      Field = "property_type"
	FieldHousingForm       Field = "housing_form"
	FieldRoomCount         Field = "room_count"
	FieldBathroomCount     Field = "bathroom_count"
	FieldAreaInfo          Field = "m2_info"
	FieldAreaGross         Field = "m2_gross"
	FieldAreaNet           Field = "m2_net"
	FieldTotalFloors       Field = "total_floors"
	FieldFloorLocation     Field = "floor_location"
	FieldHeatingType       Field = "heating_type"
	FieldIsFurnished       Field = "is_furnished"
	FieldFacade            Field = "facade"
	FieldBuildingAge       Field = "building_age"
	FieldCreditEligibility Field = "credit_eligibility"
	FieldTitleDeedStatus   Field = "title_deed_status"
	FieldSwapAvailable     Field = "swap_available"
)

// FieldOrder is the canonical column order used when records are exported to
// tabular formats. Fields absent from a record simply produce empty cells.
func FieldOrder() []Field {
	return []Field{
		FieldListingID,
		FieldTitle,
		FieldPrice,
		FieldLocation,
		FieldURL,
		FieldLastUpdated,
		FieldListingType,
		FieldPropertyType,
		FieldHousingForm,
		FieldRoomCount,
		FieldBathroomCount,
		FieldAreaGross,
		FieldAreaNet,
		FieldTotalFloors,
		FieldFloorLocation,
		FieldHeatingType,
		FieldIsFurnished,
		FieldFacade,
		FieldBuildingAge,
		FieldCreditEligibility,
		FieldTitleDeedStatus,
		FieldSwapAvailable,
	}
}

// Summary is the output of the discover phase for a single listing. DetailRef
// is mandatory; a summary without it cannot be enriched and is dropped by the
// pipeline. ID is derived from DetailRef's last path segment and is unique
// within a page, but not guaranteed unique across pages of a long crawl.
type Summary struct {
	ID        string
	Title     string
	Price     string
	Location  string
	DetailRef string
}

// LabeledField is one raw (label, value) pair read off a detail page before
// any mapping is applied.
type LabeledField struct {
	Label string
	Value string
}

// Detail holds the normalized attributes extracted from one detail page.
// Text carries raw string values; Bool carries normalized boolean fields.
// A field whose native label was absent from the page is absent from both
// maps, never present with a placeholder.
type Detail struct {
	Text map[Field]string
	Bool map[Field]bool
}

// NewDetail returns an empty Detail with both maps allocated.
func NewDetail() Detail {
	return Detail{
		Text: make(map[Field]string),
		Bool: make(map[Field]bool),
	}
}

// Len reports how many normalized fields the detail carries.
func (d Detail) Len() int {
	return len(d.Text) + len(d.Bool)
}

// Merged is the persisted record: summary fields overlaid with detail fields,
// where the detail side wins on key collision.
type Merged struct {
	Text map[Field]string
	Bool map[Field]bool
}

// Merge combines a summary with the detail record extracted for it. Detail
// values override summary values on collision because the enrich phase is
// authoritative for anything it could refine. Empty summary fields stay
// absent rather than appearing as empty strings.
func Merge(s Summary, d Detail) Merged {
	m := Merged{
		Text: make(map[Field]string, len(d.Text)+5),
		Bool: make(map[Field]bool, len(d.Bool)),
	}
	if s.ID != "" {
		m.Text[FieldListingID] = s.ID
	}
	if s.Title != "" {
		m.Text[FieldTitle] = s.Title
	}
	if s.Price != "" {
		m.Text[FieldPrice] = s.Price
	}
	if s.Location != "" {
		m.Text[FieldLocation] = s.Location
	}
	if s.DetailRef != "" {
		m.Text[FieldURL] = s.DetailRef
	}
	for k, v := range d.Text {
		m.Text[k] = v
	}
	for k, v := range d.Bool {
		m.Bool[k] = v
	}
	return m
}

// Get returns the text value for a field and whether it is present.
func (m Merged) Get(f Field) (string, bool) {
	v, ok := m.Text[f]
	return v, ok
}

// GetBool returns the boolean value for a field and whether it is present.
func (m Merged) GetBool(f Field) (bool, bool) {
	v, ok := m.Bool[f]
	return v, ok
}

// Len reports the total number of fields carried by the record.
func (m Merged) Len() int {
	return len(m.Text) + len(m.Bool)
}

// MarshalJSON renders the record as a single flat object, strings and
// booleans side by side, so any sink can persist it without knowing the
// field taxonomy.
func (m Merged) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, m.Len())
	for k, v := range m.Text {
		flat[string(k)] = v
	}
	for k, v := range m.Bool {
		flat[string(k)] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON restores a record from the flat object form written by
// MarshalJSON. JSON strings become text fields and JSON booleans become
// boolean fields; any other value type is rejected.
func (m *Merged) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	m.Text = make(map[Field]string, len(flat))
	m.Bool = make(map[Field]bool)
	for k, v := range flat {
		switch val := v.(type) {
		case string:
			m.Text[Field(k)] = val
		case bool:
			m.Bool[Field(k)] = val
		default:
			return fmt.Errorf("field %q has unsupported type %T", k, v)
		}
	}
	return nil
}

// Fields returns the record's fields sorted lexicographically. Useful for
// deterministic assertions and exports of fields outside FieldOrder.
func (m Merged) Fields() []Field {
	out := make([]Field, 0, m.Len())
	for k := range m.Text {
		out = append(out, k)
	}
	for k := range m.Bool {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
