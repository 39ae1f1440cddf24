package models

import (
	"time"
)

// LocationSource identifies which location-estimation technology produced
// a raw location file. FastGPS fixes supersede Argos fixes wholesale for
// an instrument when both were recovered from the same deployment batch.
type LocationSource string

const (
	SourceArgos   LocationSource = "Argos"
	SourceFastGPS LocationSource = "FastGPS"
)

// RawLocationRecord is one row of a <tag>-Locations.csv file.
// Nullable columns are pointers; a nil value means the tag did not report
// that field, which is valid and distinct from an unparseable value.
type RawLocationRecord struct {
	DeployID                string
	Ptt                     string
	Instr                   string
	Date                    time.Time
	Type                    string
	Quality                 string
	Latitude                *float64
	Longitude               *float64
	ErrorRadius             *float64
	ErrorSemiMajorAxis      *float64
	ErrorSemiMinorAxis      *float64
	ErrorEllipseOrientation *float64
	Offset                  *float64
	OffsetOrientation       *float64
	GPEMSD                  *float64
	GPEU                    *float64
	Count                   *int
	Comment                 string
}

// NumHistoBins is the number of bin columns carried by a Histos file.
// Only the first 24 encode hourly percent-dry values; bins 25-72 belong
// to other histogram channels and are dropped before reshaping.
const NumHistoBins = 72

// RawHistoRecord is one row of a <tag>-Histos.csv file.
type RawHistoRecord struct {
	DeployID        string
	Ptt             string
	DepthSensor     string
	Source          string
	Instr           string
	HistType        string
	Date            time.Time
	TimeOffset      *float64
	Count           *int
	BadTherm        *int
	LocationQuality string
	Latitude        *float64
	Longitude       *float64
	NumBins         *int
	Sum             *float64
	Bins            [NumHistoBins]*float64
}

// RawBehaviorRecord is one row of a <tag>-Behavior.csv file.
type RawBehaviorRecord struct {
	DeployID    string
	Ptt         string
	DepthSensor string
	Source      string
	Instr       string
	Count       *int
	Start       time.Time
	End         time.Time
	What        string
	Number      *int
	Shape       string
	DepthMin    *float64
	DepthMax    *float64
	DurationMin *float64
	DurationMax *float64
	Shallow     *int
	Deep        *int
}

// DeploymentMetadata is one row of the reference deployment table in the
// metadata store. DeployStart and DeployEnd are nullable: an open-ended
// deployment has no end date yet.
type DeploymentMetadata struct {
	DeployID    string     `json:"deploy_id" db:"deploy_id"`
	DeployStart *time.Time `json:"deploy_start,omitempty" db:"deploy_start"`
	DeployEnd   *time.Time `json:"deploy_end,omitempty" db:"deploy_end"`
	AgeClass    string     `json:"age_class" db:"age_class"`
	Sex         string     `json:"sex" db:"sex"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
