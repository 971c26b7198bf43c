package treatment

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChangeSet_OnlySubmittedFields(t *testing.T) {
	form := url.Values{}
	form.Set("insulin", "3")

	cs, err := ParseChangeSet(form)
	assert.NoError(t, err)
	assert.Equal(t, ChangeSet{FieldInsulin: 3.0}, cs)
}

func TestParseChangeSet_EmptyValueClears(t *testing.T) {
	form := url.Values{}
	form.Set("insulin", "")
	form.Set("meal", "  ")

	cs, err := ParseChangeSet(form)
	assert.NoError(t, err)
	assert.Contains(t, cs, FieldInsulin)
	assert.Nil(t, cs[FieldInsulin])
	assert.Contains(t, cs, FieldMeal)
	assert.Nil(t, cs[FieldMeal])
}

func TestParseChangeSet_IgnoresUnrelatedKeys(t *testing.T) {
	form := url.Values{}
	form.Set("initData", "whatever")
	form.Set("id", "t1")
	form.Set("carbs", "25")

	cs, err := ParseChangeSet(form)
	assert.NoError(t, err)
	assert.Equal(t, ChangeSet{FieldCarbs: 25.0}, cs)
}

func TestParseChangeSet_InvalidNumber(t *testing.T) {
	form := url.Values{}
	form.Set("insulin", "abc")

	_, err := ParseChangeSet(form)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestParseChangeSet_OutOfRange(t *testing.T) {
	cases := map[string]string{
		"insulin":  "51",
		"carbs":    "-1",
		"calories": "100001",
		"protein":  "10001",
	}
	for field, value := range cases {
		form := url.Values{}
		form.Set(field, value)

		_, err := ParseChangeSet(form)
		assert.ErrorIs(t, err, ErrInvalidValue, field)
	}
}

func TestParseChangeSet_EventType(t *testing.T) {
	form := url.Values{}
	form.Set("eventType", "Meal Bolus")

	cs, err := ParseChangeSet(form)
	assert.NoError(t, err)
	assert.Equal(t, "Meal Bolus", cs[FieldEventType])

	form.Set("eventType", "none")
	cs, err = ParseChangeSet(form)
	assert.NoError(t, err)
	assert.Contains(t, cs, FieldEventType)
	assert.Nil(t, cs[FieldEventType])

	form.Set("eventType", "Snack")
	_, err = ParseChangeSet(form)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestParseChangeSet_MealTrimmed(t *testing.T) {
	form := url.Values{}
	form.Set("meal", "  oatmeal with berries  ")

	cs, err := ParseChangeSet(form)
	assert.NoError(t, err)
	assert.Equal(t, "oatmeal with berries", cs[FieldMeal])
}
