package treatment

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidValue marks a client-supplied field that failed validation.
var ErrInvalidValue = errors.New("treatment: invalid field value")

// Editable field names. A ChangeSet key present with a nil value clears
// the field; a key that is absent leaves the field untouched.
const (
	FieldEventType = "eventType"
	FieldInsulin   = "insulin"
	FieldCarbs     = "carbs"
	FieldCalories  = "calories"
	FieldProtein   = "protein"
	FieldMeal      = "meal"
	FieldPhotoURL  = "photoUrl"
)

// ChangeSet is the sparse set of edits the client actually submitted.
type ChangeSet map[string]any

var validate = validator.New()

// updateBounds mirrors the value ranges the upstream store accepts.
type updateBounds struct {
	EventType *string  `validate:"omitempty,oneof='Meal Bolus' 'Carb Correction' 'Correction Bolus'"`
	Insulin   *float64 `validate:"omitempty,gte=0,lte=50"`
	Carbs     *float64 `validate:"omitempty,gte=0,lte=2000"`
	Calories  *int     `validate:"omitempty,gte=0,lte=100000"`
	Protein   *int     `validate:"omitempty,gte=0,lte=10000"`
}

// ParseChangeSet extracts the editable fields present in a submitted
// form. A field submitted with an empty value clears the record field;
// a field missing from the form is not part of the change set at all.
func ParseChangeSet(form url.Values) (ChangeSet, error) {
	cs := ChangeSet{}
	bounds := updateBounds{}

	if raw, ok := formValue(form, FieldEventType); ok {
		v := normalizeEventType(raw)
		bounds.EventType = v
		cs[FieldEventType] = deref(v)
	}
	if v, ok, err := floatField(form, FieldInsulin); err != nil {
		return nil, err
	} else if ok {
		bounds.Insulin = v
		cs[FieldInsulin] = deref(v)
	}
	if v, ok, err := floatField(form, FieldCarbs); err != nil {
		return nil, err
	} else if ok {
		bounds.Carbs = v
		cs[FieldCarbs] = deref(v)
	}
	if v, ok, err := intField(form, FieldCalories); err != nil {
		return nil, err
	} else if ok {
		bounds.Calories = v
		cs[FieldCalories] = deref(v)
	}
	if v, ok, err := intField(form, FieldProtein); err != nil {
		return nil, err
	} else if ok {
		bounds.Protein = v
		cs[FieldProtein] = deref(v)
	}
	if raw, ok := formValue(form, FieldMeal); ok {
		cs[FieldMeal] = deref(trimPtr(raw))
	}
	if raw, ok := formValue(form, FieldPhotoURL); ok {
		cs[FieldPhotoURL] = deref(trimPtr(raw))
	}

	if err := validate.Struct(&bounds); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValue, fieldNames(err))
	}
	return cs, nil
}

func formValue(form url.Values, key string) (string, bool) {
	if _, ok := form[key]; !ok {
		return "", false
	}
	return form.Get(key), true
}

func floatField(form url.Values, key string) (*float64, bool, error) {
	raw, ok := formValue(form, key)
	if !ok {
		return nil, false, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidValue, key)
	}
	return &v, true, nil
}

func intField(form url.Values, key string) (*int, bool, error) {
	f, ok, err := floatField(form, key)
	if err != nil || !ok || f == nil {
		return nil, ok, err
	}
	v := int(*f)
	return &v, true, nil
}

// normalizeEventType treats "none" (any case) and blanks as a cleared
// event type.
func normalizeEventType(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return nil
	}
	return &raw
}

func trimPtr(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

// deref converts a typed nil pointer into an untyped nil so ChangeSet
// values marshal and compare uniformly.
func deref(v any) any {
	switch p := v.(type) {
	case *float64:
		if p == nil {
			return nil
		}
		return *p
	case *int:
		if p == nil {
			return nil
		}
		return *p
	case *string:
		if p == nil {
			return nil
		}
		return *p
	}
	return nil
}

func fieldNames(err error) string {
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return "invalid value"
	}
	names := make([]string, 0, len(verr))
	for _, fe := range verr {
		names = append(names, strings.ToLower(fe.Field()))
	}
	return strings.Join(names, ", ")
}
