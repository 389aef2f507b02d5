// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"time"
)

// ItemRecord is the metadata stored for one indexed item, usually a photo.
type ItemRecord struct {
	Key       string    `json:"key"`
	UserKey   string    `json:"user_key,omitempty"`
	Name      string    `json:"name,omitempty"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	TimeStamp time.Time `json:"ts"`
}

func (r ItemRecord) String() string {
	return fmt.Sprintf("%s@%.6f,%.6f", r.Key, r.Lat, r.Lon)
}

// NearbyResult is the outcome of one proximity query.
type NearbyResult struct {
	FineKey   string   `json:"fine_key"`
	CoarseKey string   `json:"coarse_key"`
	Blocks    []string `json:"blocks"`
	Items     []string `json:"items"`
}
