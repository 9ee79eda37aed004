package reading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	TimestampLayout = "2006-01-02 15:04:05"
	UnknownValue    = "Unknown"
	DiskLabelPrefix = "disk"
)

var diskLabel = regexp.MustCompile(`^disk\d+$`)

// Temperature is a reading in °C. The zero value is Unknown, which is distinct
// from a known reading of 0.
type Temperature struct {
	Value int
	Known bool
}

func Celsius(v int) Temperature {
	return Temperature{Value: v, Known: true}
}

var Unknown = Temperature{}

func (t Temperature) String() string {
	if !t.Known {
		return UnknownValue
	}
	return strconv.Itoa(t.Value)
}

func (t Temperature) MarshalJSON() ([]byte, error) {
	if !t.Known {
		return json.Marshal(UnknownValue)
	}
	return json.Marshal(t.Value)
}

func (t *Temperature) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.HasPrefix(data, []byte(`"`)) {
		*t = Unknown
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("temperature: %w", err)
	}
	*t = Celsius(v)
	return nil
}

type DiskRecord struct {
	Index       int         `json:"index"`
	Name        string      `json:"name"`
	Model       string      `json:"model"`
	Temperature Temperature `json:"temperature"`
}

func DiskLabel(index int) string {
	return DiskLabelPrefix + strconv.Itoa(index)
}

// Reading is everything collected in one poll cycle.
type Reading struct {
	CPUTemperature   Temperature
	DiskTemperatures map[string]Temperature
	DiskData         map[int]DiskRecord
	Timestamp        string
	// Time is the instant Timestamp was formatted from. Not serialized.
	Time time.Time
}

// MarshalJSON produces the flat document the json bin expects:
// {"cpu":40,"disk1":35,...,"timestamp":"...","disk_data":{...}}.
func (r Reading) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(r.DiskTemperatures)+3)
	for label, temp := range r.DiskTemperatures {
		doc[label] = temp
	}
	doc["cpu"] = r.CPUTemperature
	doc["timestamp"] = r.Timestamp
	data := make(map[string]DiskRecord, len(r.DiskData))
	for index, record := range r.DiskData {
		data[strconv.Itoa(index)] = record
	}
	doc["disk_data"] = data
	return json.Marshal(doc)
}

func (r *Reading) UnmarshalJSON(body []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}

	out := Reading{
		DiskTemperatures: map[string]Temperature{},
		DiskData:         map[int]DiskRecord{},
	}
	for key, raw := range doc {
		switch {
		case key == "cpu":
			if err := json.Unmarshal(raw, &out.CPUTemperature); err != nil {
				return err
			}
		case key == "timestamp":
			if err := json.Unmarshal(raw, &out.Timestamp); err != nil {
				return err
			}
		case key == "disk_data":
			var data map[string]DiskRecord
			if err := json.Unmarshal(raw, &data); err != nil {
				return err
			}
			for k, record := range data {
				index, err := strconv.Atoi(k)
				if err != nil {
					return fmt.Errorf("disk_data index %q: %w", k, err)
				}
				out.DiskData[index] = record
			}
		case diskLabel.MatchString(key):
			var temp Temperature
			if err := json.Unmarshal(raw, &temp); err != nil {
				return err
			}
			out.DiskTemperatures[key] = temp
		}
	}
	*r = out
	return nil
}

// Scalars returns every numeric field keyed by its name ("cpu", "disk<idx>").
// Unknown temperatures are left out.
func (r Reading) Scalars() map[string]int {
	scalars := make(map[string]int, len(r.DiskTemperatures)+1)
	if r.CPUTemperature.Known {
		scalars["cpu"] = r.CPUTemperature.Value
	}
	for label, temp := range r.DiskTemperatures {
		if temp.Known {
			scalars[label] = temp.Value
		}
	}
	return scalars
}

// ParseTimestamp reads a Timestamp back in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), loc)
}
