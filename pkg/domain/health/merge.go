package health

// MergedRecord is the single logical record written for a date.
// Meals is nil when the photo source was disabled or unavailable for the run.
type MergedRecord struct {
	Metrics DailyMetrics `json:"metrics"`
	Meals   *MealRecord  `json:"meals,omitempty"`
}

// FoodProcessed reports whether photo classification ran for this record.
func (r MergedRecord) FoodProcessed() bool {
	return r.Meals != nil
}

// Merge combines the Fitbit metrics and the meal classification for one date.
// Either side may be nil; the result is then partially populated, never an error.
func Merge(metrics *DailyMetrics, meals *MealRecord) MergedRecord {
	var rec MergedRecord
	if metrics != nil {
		rec.Metrics = *metrics
	}
	if meals != nil {
		copied := NewMealRecord()
		for _, slot := range MealSlots {
			for _, item := range meals.Slots[slot] {
				copied.Add(slot, item)
			}
		}
		rec.Meals = copied
	}
	return rec
}
