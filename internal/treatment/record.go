// Package treatment models Nightscout treatment records and the partial
// update semantics the Mini App relies on.
package treatment

import "strconv"

// Record is the typed view of one remote treatment. Calories, protein,
// meal and the photo URL live in the note meta when the remote schema
// lacks first-class fields for them.
type Record struct {
	ID        string
	ClientID  string
	EventType *string
	Insulin   *float64
	Carbs     *float64
	Calories  *int
	Protein   *int
	Meal      *string
	PhotoURL  *string
	Notes     string
}

// FromDocument builds a Record from a raw treatment document, falling
// back to note-meta values for fields the remote schema does not carry.
func FromDocument(doc map[string]any) Record {
	meta := ParseMeta(asString(doc["notes"]))

	rec := Record{
		ID:        asString(doc["_id"]),
		ClientID:  asString(doc["clientId"]),
		EventType: asStringPtr(doc["eventType"]),
		Insulin:   asFloat(doc["insulin"]),
		Carbs:     asFloat(doc["carbs"]),
		Calories:  asInt(doc["calories_kcal"]),
		Protein:   asInt(doc["protein_g"]),
		Meal:      asStringPtr(doc["meal"]),
		PhotoURL:  asStringPtr(doc["photoUrl"]),
		Notes:     asString(doc["notes"]),
	}

	if rec.Calories == nil {
		rec.Calories = asInt(meta["calories_kcal"])
	}
	if rec.Protein == nil {
		rec.Protein = asInt(meta["protein_g"])
	}
	if rec.Meal == nil {
		rec.Meal = asStringPtr(meta["meal"])
	}
	if rec.PhotoURL == nil {
		rec.PhotoURL = asStringPtr(meta["photoUrl"])
	}
	return rec
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		if n == "" {
			return nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func asInt(v any) *int {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}
