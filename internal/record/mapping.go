package record

import "strings"

// SplitRule decomposes one composite source field into two independent
// fields, e.g. a "gross / net area" value into separate gross and net keys.
type SplitRule struct {
	Sep   string
	Left  Field
	Right Field
	Strip string
}

// Mapping translates site-native labels into normalized fields and applies
// the value-normalization rules that go with them. It is configuration, not
// state: when the site's UI labels change, only the table changes.
type Mapping struct {
	labels map[string]Field
	splits map[Field]SplitRule
	// bools maps a field to the single native token that means true.
	// Once the source label is present the boolean is always emitted,
	// so a false never reads as a missing field.
	bools map[Field]string
}

// NewMapping builds an empty mapping.
func NewMapping() Mapping {
	return Mapping{
		labels: make(map[string]Field),
		splits: make(map[Field]SplitRule),
		bools:  make(map[Field]string),
	}
}

// AddLabel registers a native label for a normalized field. Multiple labels
// may point at the same field (aliases).
func (m Mapping) AddLabel(label string, field Field) Mapping {
	m.labels[label] = field
	return m
}

// AddSplit registers a composite rule for a field.
func (m Mapping) AddSplit(field Field, rule SplitRule) Mapping {
	m.splits[field] = rule
	return m
}

// AddBool registers a boolean normalization: the field's value is true iff
// it equals token exactly.
func (m Mapping) AddBool(field Field, token string) Mapping {
	m.bools[field] = token
	return m
}

// Lookup resolves a native label to its normalized field.
func (m Mapping) Lookup(label string) (Field, bool) {
	f, ok := m.labels[label]
	return f, ok
}

// Apply translates raw (label, value) pairs into a Detail. Unmapped labels
// and empty values are ignored; split and boolean rules are applied per
// field. The result may be empty, which callers treat as a failed page load.
func (m Mapping) Apply(pairs []LabeledField) Detail {
	d := NewDetail()
	for _, pair := range pairs {
		field, ok := m.labels[pair.Label]
		if !ok {
			continue
		}
		value := strings.TrimSpace(pair.Value)
		if value == "" {
			continue
		}
		if rule, ok := m.splits[field]; ok {
			m.applySplit(d, rule, value)
			continue
		}
		if token, ok := m.bools[field]; ok {
			d.Bool[field] = value == token
			continue
		}
		d.Text[field] = value
	}
	return d
}

func (m Mapping) applySplit(d Detail, rule SplitRule, value string) {
	parts := strings.SplitN(value, rule.Sep, 2)
	if len(parts) != 2 {
		return
	}
	left := strings.TrimSpace(strings.ReplaceAll(parts[0], rule.Strip, ""))
	right := strings.TrimSpace(strings.ReplaceAll(parts[1], rule.Strip, ""))
	if left != "" {
		d.Text[rule.Left] = left
	}
	if right != "" {
		d.Text[rule.Right] = right
	}
}

// DefaultMapping returns the label table for the supported listings site.
// Labels are the site's native Turkish strings; the truncated credit label
// is an alias the site renders for narrow layouts.
func DefaultMapping() Mapping {
	m := NewMapping().
		AddLabel("İlan no", FieldListingID).
		AddLabel("Son Güncelleme", FieldLastUpdated).
		AddLabel("İlan Durumu", FieldListingType).
		AddLabel("Konut Tipi", FieldPropertyType).
		AddLabel("Konut Şekli", FieldHousingForm).
		AddLabel("Oda Sayısı", FieldRoomCount).
		AddLabel("Banyo Sayısı", FieldBathroomCount).
		AddLabel("Brüt / Net M2", FieldAreaInfo).
		AddLabel("Kat Sayısı", FieldTotalFloors).
		AddLabel("Bulunduğu Kat", FieldFloorLocation).
		AddLabel("Isınma Tipi", FieldHeatingType).
		AddLabel("Eşya Durumu", FieldIsFurnished).
		AddLabel("Cephe", FieldFacade).
		AddLabel("Bina Yaşı", FieldBuildingAge).
		AddLabel("Krediye Uygunluk", FieldCreditEligibility).
		AddLabel("Krediye Uygunlu...", FieldCreditEligibility).
		AddLabel("Tapu Durumu", FieldTitleDeedStatus).
		AddLabel("Takas", FieldSwapAvailable)
	m = m.AddSplit(FieldAreaInfo, SplitRule{
		Sep:   "/",
		Left:  FieldAreaGross,
		Right: FieldAreaNet,
		Strip: "m2",
	})
	m = m.AddBool(FieldIsFurnished, "Eşyalı")
	return m
}
