package models

// PrayerTime is one entry of a locality's daily schedule as served by the
// time source: the prayer name and its "HH:MM" clock time.
type PrayerTime struct {
	Vakit string `json:"vakit"`
	Saat  string `json:"saat"`
}

// Canonical daily prayer names, in the order the time source returns them.
var PrayerNames = []string{"İmsak", "Güneş", "Öğle", "İkindi", "Akşam", "Yatsı"}
