package model

import (
	"github.com/twpayne/go-geom"
)

// Region is one areal unit of the study geography, a Chicago community
// area in the default configuration. Geometry is kept in the coordinate
// system of the source shapefile (EPSG:4326 for the city portal exports).
type Region struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Geometry *geom.MultiPolygon `json:"-"`
}

// StorePoint is one retail food location from the business license feed.
type StorePoint struct {
	License  string  `json:"license"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Address  string  `json:"address"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	// RegionID is filled by point-in-polygon assignment; empty when the
	// point falls outside every region.
	RegionID string `json:"region_id,omitempty"`
}

// AccessTier buckets regions by grocery access for reporting. Tiers are
// quartiles of the access metric: desert covers the bottom quarter.
type AccessTier string

const (
	TierDesert   AccessTier = "desert"
	TierLow      AccessTier = "low"
	TierModerate AccessTier = "moderate"
	TierHigh     AccessTier = "high"
)
