package gosensorcore

import (
	"path/filepath"
	"sort"
	"strings"
)

// SensorType is the canonical tag of an Android sensor channel.
type SensorType string

const (
	Accelerometer             SensorType = "ACCELEROMETER"
	GameRotationVector        SensorType = "GAME_ROTATION_VECTOR"
	GPS                       SensorType = "GPS"
	Gravity                   SensorType = "GRAVITY"
	Gyroscope                 SensorType = "GYROSCOPE"
	GyroscopeUncalibrated     SensorType = "GYROSCOPE_UNCALIBRATED"
	LinearAcceleration        SensorType = "LINEAR_ACCELERATION"
	MagneticField             SensorType = "MAGNETIC_FIELD"
	MagneticFieldUncalibrated SensorType = "MAGNETIC_FIELD_UNCALIBRATED"
	Pressure                  SensorType = "PRESSURE"
	Ronin                     SensorType = "RONIN"
	RotationVector            SensorType = "ROTATION_VECTOR"
	Step                      SensorType = "STEP"
	WiFi                      SensorType = "WIFI"
)

// TimeColumn is the name of the timestamp column every file kind starts with.
const TimeColumn = "Time"

// ColumnKind tells how the values of a column are parsed.
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Text
)

// ColumnSpec describes one value column of a file kind.
type ColumnSpec struct {
	Name string
	Kind ColumnKind
}

// FileKind is one row of the sensor file table: the base-name key, the
// sensor it carries and its value columns in file order (Time excluded).
type FileKind struct {
	Key     string
	Sensor  SensorType
	Columns []ColumnSpec
}

// ColumnNames returns the full column layout, Time first.
func (k FileKind) ColumnNames() []string {
	names := make([]string, 0, len(k.Columns)+1)
	names = append(names, TimeColumn)
	for _, c := range k.Columns {
		names = append(names, c.Name)
	}
	return names
}

func numeric(names ...string) []ColumnSpec {
	cols := make([]ColumnSpec, len(names))
	for i, n := range names {
		cols[i] = ColumnSpec{Name: n, Kind: Numeric}
	}
	return cols
}

// fileKinds maps file base names to their sensor and column layout.
// gps and gps_2 share a sensor: two logger versions wrote different GPS rows.
var fileKinds = map[string]FileKind{
	"acc":            {Key: "acc", Sensor: Accelerometer, Columns: numeric("X", "Y", "Z")},
	"game_rv":        {Key: "game_rv", Sensor: GameRotationVector, Columns: numeric("X", "Y", "Z", "W")},
	"gps":            {Key: "gps", Sensor: GPS, Columns: numeric("Latitude", "Longitude")},
	"gps_2":          {Key: "gps_2", Sensor: GPS, Columns: numeric("Latitude", "Longitude", "Sigma")},
	"gravity":        {Key: "gravity", Sensor: Gravity, Columns: numeric("X", "Y", "Z")},
	"gyro":           {Key: "gyro", Sensor: Gyroscope, Columns: numeric("X", "Y", "Z")},
	"gyro_uncalib":   {Key: "gyro_uncalib", Sensor: GyroscopeUncalibrated, Columns: numeric("X_uncalib", "Y_uncalib", "Z_uncalib", "X_drift", "Y_drift", "Z_drift")},
	"linacc":         {Key: "linacc", Sensor: LinearAcceleration, Columns: numeric("X", "Y", "Z")},
	"magnet":         {Key: "magnet", Sensor: MagneticField, Columns: numeric("X", "Y", "Z")},
	"magnet_uncalib": {Key: "magnet_uncalib", Sensor: MagneticFieldUncalibrated, Columns: numeric("X_uncalib", "Y_uncalib", "Z_uncalib", "X_bias", "Y_bias", "Z_bias")},
	"pressure":       {Key: "pressure", Sensor: Pressure, Columns: numeric("Pressure")},
	"ronin":          {Key: "ronin", Sensor: Ronin, Columns: numeric("X", "Y")},
	"rv":             {Key: "rv", Sensor: RotationVector, Columns: numeric("X", "Y", "Z", "W", "Var_Unknown_placeholder")},
	"step":           {Key: "step", Sensor: Step, Columns: numeric("Step")},
	"wifi": {Key: "wifi", Sensor: WiFi, Columns: []ColumnSpec{
		{Name: "Mac", Kind: Text},
		{Name: "RSSI", Kind: Numeric},
		{Name: "Var_Unknown_placeholder", Kind: Numeric},
		{Name: "SSID", Kind: Text},
	}},
}

// LookupFileKind returns the file kind registered under key.
func LookupFileKind(key string) (FileKind, bool) {
	k, ok := fileKinds[key]
	if !ok {
		return FileKind{}, false
	}
	k.Columns = append([]ColumnSpec(nil), k.Columns...)
	return k, true
}

// FileKindForPath derives the file kind from a file's base name, extension
// stripped: ".../gyro_uncalib.txt" resolves to the "gyro_uncalib" kind.
func FileKindForPath(path string) (FileKind, bool) {
	return LookupFileKind(fileKey(path))
}

func fileKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileKeys lists the registered base-name keys in sorted order.
func FileKeys() []string {
	keys := make([]string, 0, len(fileKinds))
	for k := range fileKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseSensorType maps a canonical tag or a file key to a SensorType.
func ParseSensorType(s string) (SensorType, bool) {
	if k, ok := fileKinds[strings.ToLower(s)]; ok {
		return k.Sensor, true
	}
	upper := SensorType(strings.ToUpper(s))
	for _, k := range fileKinds {
		if k.Sensor == upper {
			return upper, true
		}
	}
	return "", false
}

// SortedSensorTypes returns the keys of m in ascending tag order.
func SortedSensorTypes[V any](m map[SensorType]V) []SensorType {
	types := make([]SensorType, 0, len(m))
	for st := range m {
		types = append(types, st)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
