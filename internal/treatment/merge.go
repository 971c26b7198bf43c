package treatment

import "math"

// Patch is the sparse document sent to the remote store: only the fields
// a merge actually changed, keyed by their remote names.
type Patch map[string]any

// tolerance bounds the float comparison deciding whether a numeric field
// really changed.
const tolerance = 1e-6

// Merge applies a ChangeSet to a copy of current. Fields absent from the
// change set are carried over untouched. The returned Patch contains only
// the remote fields whose values genuinely changed, including the
// re-serialized note when any meta-backed field moved.
func Merge(current Record, changes ChangeSet) (Record, Patch) {
	updated := current
	patch := Patch{}
	meta := map[string]any{}

	if v, ok := changes[FieldEventType]; ok {
		nv := toStringPtr(v)
		if stringsDiffer(current.EventType, nv) {
			updated.EventType = nv
			patch["eventType"] = v
		}
	}
	if v, ok := changes[FieldInsulin]; ok {
		nv := toFloatPtr(v)
		if floatsDiffer(current.Insulin, nv) {
			updated.Insulin = nv
			patch["insulin"] = v
			meta["insulin_u"] = v
		}
	}
	if v, ok := changes[FieldCarbs]; ok {
		nv := toFloatPtr(v)
		if floatsDiffer(current.Carbs, nv) {
			updated.Carbs = nv
			patch["carbs"] = v
			if nv != nil {
				meta["carbs_g"] = int(*nv)
			} else {
				meta["carbs_g"] = nil
			}
		}
	}
	if v, ok := changes[FieldCalories]; ok {
		nv := toIntPtr(v)
		if intsDiffer(current.Calories, nv) {
			updated.Calories = nv
			patch["calories_kcal"] = v
			meta["calories_kcal"] = v
		}
	}
	if v, ok := changes[FieldProtein]; ok {
		nv := toIntPtr(v)
		if intsDiffer(current.Protein, nv) {
			updated.Protein = nv
			patch["protein_g"] = v
			meta["protein_g"] = v
		}
	}
	if v, ok := changes[FieldMeal]; ok {
		nv := toStringPtr(v)
		if stringsDiffer(current.Meal, nv) {
			updated.Meal = nv
			patch["meal"] = v
			meta["meal"] = v
		}
	}
	if v, ok := changes[FieldPhotoURL]; ok {
		nv := toStringPtr(v)
		if stringsDiffer(current.PhotoURL, nv) {
			updated.PhotoURL = nv
			patch["photoUrl"] = v
			meta["photoUrl"] = v
		}
	}

	if len(meta) > 0 {
		notes := ApplyMetaUpdates(current.Notes, meta)
		if notes != current.Notes {
			updated.Notes = notes
			patch["notes"] = notes
		}
	}

	return updated, patch
}

func toFloatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

func toIntPtr(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case float64:
		i := int(n)
		return &i
	}
	return nil
}

func toStringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func floatsDiffer(a, b *float64) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	diff := math.Abs(*a - *b)
	scale := math.Max(math.Abs(*a), math.Abs(*b))
	return diff > tolerance && diff > tolerance*scale
}

func intsDiffer(a, b *int) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return *a != *b
}

func stringsDiffer(a, b *string) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return *a != *b
}
