package fitbit

// Wire shapes of the Fitbit Web API responses. Only the fields the sync reads are decoded.

type activityResponse struct {
	Summary struct {
		Steps               int `json:"steps"`
		CaloriesOut         int `json:"caloriesOut"`
		FairlyActiveMinutes int `json:"fairlyActiveMinutes"`
		VeryActiveMinutes   int `json:"veryActiveMinutes"`
		Distances           []struct {
			Activity string  `json:"activity"`
			Distance float64 `json:"distance"`
		} `json:"distances"`
	} `json:"summary"`
}

type sleepListResponse struct {
	Sleep []sleepLog `json:"sleep"`
}

type sleepLog struct {
	LogID         int64        `json:"logId"`
	DateOfSleep   string       `json:"dateOfSleep"`
	IsMainSleep   bool         `json:"isMainSleep"`
	StartTime     string       `json:"startTime"`
	EndTime       string       `json:"endTime"`
	MinutesAsleep int          `json:"minutesAsleep"`
	Efficiency    int          `json:"efficiency"`
	Type          string       `json:"type"`
	Levels        *sleepLevels `json:"levels,omitempty"`
	MinuteData    []minuteMark `json:"minuteData,omitempty"`
}

type sleepLevels struct {
	Summary   map[string]stageSummary `json:"summary"`
	Data      []sleepSegment          `json:"data"`
	ShortData []sleepSegment          `json:"shortData"`
}

type stageSummary struct {
	Count   int `json:"count"`
	Minutes int `json:"minutes"`
}

// sleepSegment is one stage period of the raw timeline; Seconds is its duration.
type sleepSegment struct {
	DateTime string `json:"dateTime"`
	Level    string `json:"level"`
	Seconds  int    `json:"seconds"`
}

// minuteMark is a legacy per-minute flag: "1" asleep, "2" restless, "3" awake.
type minuteMark struct {
	DateTime string `json:"dateTime"`
	Value    string `json:"value"`
}

type heartResponse struct {
	ActivitiesHeart []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			RestingHeartRate *int        `json:"restingHeartRate"`
			HeartRateZones   []heartZone `json:"heartRateZones"`
		} `json:"value"`
	} `json:"activities-heart"`
}

type heartZone struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
}

type weightResponse struct {
	Weight []struct {
		Weight *float64 `json:"weight"`
		BMI    *float64 `json:"bmi"`
		Date   string   `json:"date"`
	} `json:"weight"`
}

type fatResponse struct {
	Fat []struct {
		Fat  *float64 `json:"fat"`
		Date string   `json:"date"`
	} `json:"fat"`
}

type hrvResponse struct {
	HRV []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			DailyRmssd *float64 `json:"dailyRmssd"`
			DeepRmssd  *float64 `json:"deepRmssd"`
		} `json:"value"`
	} `json:"hrv"`
}
