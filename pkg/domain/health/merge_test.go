package health

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_BothAbsent(t *testing.T) {
	rec := Merge(nil, nil)

	assert.Nil(t, rec.Metrics.Activity)
	assert.Nil(t, rec.Meals)
	assert.False(t, rec.FoodProcessed())
}

func TestMerge_MetricsOnly(t *testing.T) {
	metrics := &DailyMetrics{
		Date:     "2025-07-20",
		Activity: &Activity{Steps: 8500},
	}

	rec := Merge(metrics, nil)

	require.NotNil(t, rec.Metrics.Activity)
	assert.Equal(t, 8500, rec.Metrics.Activity.Steps)
	assert.False(t, rec.FoodProcessed())
}

func TestMerge_MealsAreCopied(t *testing.T) {
	meals := NewMealRecord()
	meals.Add(Breakfast, "cappuccino")
	meals.Add(Breakfast, "croissant")

	rec := Merge(nil, meals)
	meals.Add(Lunch, "pizza")

	require.True(t, rec.FoodProcessed())
	assert.Equal(t, "cappuccino; croissant", rec.Meals.Text(Breakfast))
	assert.Empty(t, rec.Meals.Text(Lunch))
	assert.Equal(t, 2, rec.Meals.Count())
}

func TestMealRecord_NilSafe(t *testing.T) {
	var m *MealRecord
	assert.Equal(t, "", m.Text(Dinner))
	assert.Equal(t, 0, m.Count())
}

func TestIsFatal(t *testing.T) {
	auth := &AuthError{Provider: "fitbit", Err: errors.New("invalid_grant")}

	assert.True(t, IsFatal(auth))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", auth)))
	assert.False(t, IsFatal(&WriteError{Date: "2025-07-20", Err: errors.New("boom")}))
	assert.False(t, IsFatal(nil))
}
