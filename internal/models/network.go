package models

// Depot is a drop-off point parcels are priced from
type Depot struct {
	Id        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	District  string  `yaml:"district"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Transporter is a roster entry used when a depot dispatches an unclaimed parcel
type Transporter struct {
	Id   string `yaml:"id"`
	Name string `yaml:"name"`
}

// NetworkConfig describes depots, per-km rates and the fallback transporter roster
type NetworkConfig struct {
	Depots         []Depot          `yaml:"depots"`
	Rates          map[string]int64 `yaml:"rates"`
	DefaultRate    int64            `yaml:"default_rate"`
	KmPerDegree    float64          `yaml:"km_per_degree"`
	FallbackRoster []Transporter    `yaml:"fallback_transporters"`
}
