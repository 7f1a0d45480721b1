package domain

// Zone is a geographic area acting as an origin/destination node of the
// travel-time matrix. Zones are created by ingestion (out of scope here);
// the routing point may be refined later, everything else is immutable from
// the pipeline's perspective.
type Zone struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	City         string            `json:"city"`
	RoutingPoint *Coordinates      `json:"routingPoint,omitempty"`
	Reachability *ZoneReachability `json:"reachability,omitempty"`
}

// ZoneCatalog is the persisted zone list plus the current heatmap bucket
// definitions derived from the matrix.
type ZoneCatalog struct {
	Version     int          `json:"version"`
	TimeBuckets []TimeBucket `json:"timeBuckets,omitempty"`
	Zones       []Zone       `json:"zones"`
}
