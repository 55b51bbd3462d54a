package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/perfectlap/internal/domain/model"
)

// OpenF1 endpoint paths.
const (
	pathMeetings = "/v1/meetings"
	pathSessions = "/v1/sessions"
	pathDrivers  = "/v1/drivers"
	pathLaps     = "/v1/laps"
	pathLocation = "/v1/location"
	pathCarData  = "/v1/car_data"
)

// sessionNames maps session types to OpenF1 session names.
var sessionNames = map[model.SessionType]string{ //nolint:gochecknoglobals // lookup table
	model.Practice1:  "Practice 1",
	model.Practice2:  "Practice 2",
	model.Practice3:  "Practice 3",
	model.Qualifying: "Qualifying",
	model.Race:       "Race",
}

// apiTime accepts ISO-8601 timestamps with or without a zone offset.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

type apiMeeting struct {
	MeetingKey  int     `json:"meeting_key"`
	MeetingName string  `json:"meeting_name"`
	Location    string  `json:"location"`
	CountryName string  `json:"country_name"`
	DateStart   apiTime `json:"date_start"`
	Year        int     `json:"year"`
}

type apiSession struct {
	SessionKey  int     `json:"session_key"`
	SessionName string  `json:"session_name"`
	MeetingKey  int     `json:"meeting_key"`
	DateStart   apiTime `json:"date_start"`
}

type apiDriver struct {
	DriverNumber int    `json:"driver_number"`
	NameAcronym  string `json:"name_acronym"`
	FullName     string `json:"full_name"`
	TeamName     string `json:"team_name"`
}

type apiLap struct {
	DriverNumber    int      `json:"driver_number"`
	LapNumber       int      `json:"lap_number"`
	LapDuration     *float64 `json:"lap_duration"`
	DurationSector1 *float64 `json:"duration_sector_1"`
	DurationSector2 *float64 `json:"duration_sector_2"`
	DurationSector3 *float64 `json:"duration_sector_3"`
	DateStart       apiTime  `json:"date_start"`
	IsPitOutLap     bool     `json:"is_pit_out_lap"`
}

type apiLocation struct {
	Date         apiTime `json:"date"`
	DriverNumber int     `json:"driver_number"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
}

type apiCarData struct {
	Date         apiTime `json:"date"`
	DriverNumber int     `json:"driver_number"`
	Speed        float64 `json:"speed"`
}

func nullableSeconds(v *float64) model.Duration {
	if v == nil {
		return model.Null
	}
	return model.Seconds(*v)
}

func (l apiLap) toModel(driver string) model.Lap {
	return model.Lap{
		Driver:    driver,
		LapNumber: l.LapNumber,
		LapTime:   nullableSeconds(l.LapDuration),
		Sectors: [model.SectorCount]model.Duration{
			nullableSeconds(l.DurationSector1),
			nullableSeconds(l.DurationSector2),
			nullableSeconds(l.DurationSector3),
		},
		StartedAt: l.DateStart.Time,
	}
}
