package router

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/grid"
	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
	"github.com/tanhakabir/spotlight-geoindex/internal/ingest"
)

const maxBodyBytes = 1 << 20

type keysResponse struct {
	FineKey   string `json:"fine_key"`
	CoarseKey string `json:"coarse_key"`
	LatCell   int    `json:"lat_cell"`
	LonCell   int    `json:"lon_cell"`
}

func (a *API) handleKeys(w http.ResponseWriter, r *http.Request) {
	o, err := parseOrigin(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c := grid.FineCellOf(o.Lat, o.Lon)
	writeJSON(w, http.StatusOK, keysResponse{
		FineKey:   c.Key(),
		CoarseKey: c.Coarse().Key(),
		LatCell:   c.Lat,
		LonCell:   c.Lon,
	})
}

type neighborsResponse struct {
	CoarseKey string   `json:"coarse_key"`
	Neighbors []string `json:"neighbors"`
}

// handleNeighbors accepts either ?key=<coarse key> or ?lat=&lon=.
func (a *API) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		o, err := parseOrigin(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		key = grid.CoarseKey(o.Lat, o.Lon)
	}
	ns, err := grid.Neighbors(key)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, neighborsResponse{CoarseKey: key, Neighbors: ns})
}

type sortRequest struct {
	Origin grid.Coordinate `json:"origin"`
	Keys   []string        `json:"keys"`
}

type rankedKey struct {
	Key    string `json:"key"`
	Radius int    `json:"radius"`
}

type sortResponse struct {
	Keys   []string    `json:"keys"`
	Ranked []rankedKey `json:"ranked"`
}

func (a *API) handleSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.fail(w, r, badRequest("decode body: %v", err))
		return
	}
	if err := indexer.Validate(req.Origin.Lat, req.Origin.Lon); err != nil {
		a.fail(w, r, err)
		return
	}
	ranked, err := grid.Rank(req.Keys, req.Origin)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := sortResponse{
		Keys:   make([]string, len(ranked)),
		Ranked: make([]rankedKey, len(ranked)),
	}
	for i, rk := range ranked {
		resp.Keys[i] = rk.Key
		resp.Ranked[i] = rankedKey{Key: rk.Key, Radius: rk.Radius}
	}
	writeJSON(w, http.StatusOK, resp)
}

type nearbyResponse struct {
	model.NearbyResult
	Records map[string]model.ItemRecord `json:"records,omitempty"`
}

// handleNearby runs the proximity query; ?records=1 also returns the item
// metadata.
func (a *API) handleNearby(w http.ResponseWriter, r *http.Request) {
	o, err := parseOrigin(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Fetcher.Nearby(r.Context(), o)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := nearbyResponse{NearbyResult: res}
	if withRecords(r) && a.Records != nil && len(res.Items) > 0 {
		if out.Records, err = a.Records.GetRecords(r.Context(), res.Items); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func withRecords(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("records")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// handleCells renders the populated fine blocks around the origin as a
// GeoJSON FeatureCollection of cell rectangles.
func (a *API) handleCells(w http.ResponseWriter, r *http.Request) {
	o, err := parseOrigin(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	blocks, err := a.Fetcher.ResolveFineKeys(r.Context(), o)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ranked, err := grid.Rank(blocks, o)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, rk := range ranked {
		f := geojson.NewFeature(rk.Cell.Bound().ToPolygon())
		f.ID = rk.Key
		f.Properties["key"] = rk.Key
		f.Properties["coarse_key"] = rk.Cell.Coarse().Key()
		f.Properties["radius"] = rk.Radius
		fc.Append(f)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(b)
}

type createItemRequest struct {
	Key       string    `json:"key"`
	UserKey   string    `json:"user_key"`
	Name      string    `json:"name"`
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	TimeStamp time.Time `json:"ts"`
}

func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.fail(w, r, badRequest("decode body: %v", err))
		return
	}
	if req.Lat == nil || req.Lon == nil {
		a.fail(w, r, badRequest("lat and lon are required"))
		return
	}
	rec := model.ItemRecord{
		Key:       strings.TrimSpace(req.Key),
		UserKey:   req.UserKey,
		Name:      req.Name,
		Lat:       *req.Lat,
		Lon:       *req.Lon,
		TimeStamp: req.TimeStamp,
	}

	if err := indexer.ValidateKey(rec.Key); err != nil {
		a.fail(w, r, err)
		return
	}

	if a.Publisher == nil {
		out, err := a.Registrar.Register(r.Context(), rec)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
		return
	}

	if err := indexer.Validate(rec.Lat, rec.Lon); err != nil {
		a.fail(w, r, err)
		return
	}
	if rec.Key == "" {
		rec.Key = uuid.NewString()
	}
	if rec.TimeStamp.IsZero() {
		rec.TimeStamp = time.Now().UTC()
	}
	if !a.Publisher.Publish(ingest.EventFor(rec)) {
		writeError(w, http.StatusServiceUnavailable, errQueueFull)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

func (a *API) handleGetItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	recs, err := a.Records.GetRecords(r.Context(), []string{key})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rec, ok := recs[key]
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
