package sensors

import (
	"fmt"
)

// Product describes a single sensor data product hosted at a station.
type Product struct {
	// The short machine name for the product, for example "rgb_geotiff".
	Name string
	// The human-readable name for the product, used to label containers
	// and datasets derived from it.
	DisplayName string
	// The processing level the product belongs to, for example "raw_data"
	// or "Level_1".
	Level string
}

// Sensors resolves sensor and product names for a single station.
type Sensors struct {
	// An optional base path prepended to product paths.
	Base string
	// The station the sensor is installed at, for example "ua-mac".
	Station string
	// The product name to resolve, for example "rgb_geotiff".
	Sensor string
}

var stations = map[string]map[string]Product{
	"ua-mac": {
		"stereoTop": {
			Name:        "stereoTop",
			DisplayName: "Stereo RGB Camera",
			Level:       "raw_data",
		},
		"flirIrCamera": {
			Name:        "flirIrCamera",
			DisplayName: "Thermal IR Camera",
			Level:       "raw_data",
		},
		"scanner3DTop": {
			Name:        "scanner3DTop",
			DisplayName: "3D Scanner",
			Level:       "raw_data",
		},
		"rgb_geotiff": {
			Name:        "rgb_geotiff",
			DisplayName: "RGB GeoTIFFs",
			Level:       "Level_1",
		},
		"ir_geotiff": {
			Name:        "ir_geotiff",
			DisplayName: "Thermal IR GeoTIFFs",
			Level:       "Level_1",
		},
		"laser3d_las": {
			Name:        "laser3d_las",
			DisplayName: "3D Point Clouds",
			Level:       "Level_1",
		},
		"fullfield": {
			Name:        "fullfield",
			DisplayName: "Full Field",
			Level:       "Level_2",
		},
	},
}

// New returns a Sensors instance for sensor (a product name) at station.
// Unknown stations and products are an error.
func New(base string, station string, sensor string) (*Sensors, error) {

	products, ok := stations[station]

	if !ok {
		return nil, fmt.Errorf("Unknown station '%s'", station)
	}

	_, ok = products[sensor]

	if !ok {
		return nil, fmt.Errorf("Unknown sensor '%s' at station '%s'", sensor, station)
	}

	s := &Sensors{
		Base:    base,
		Station: station,
		Sensor:  sensor,
	}

	return s, nil
}

// DisplayName returns the human-readable name for the product the
// Sensors instance was created with.
func (s *Sensors) DisplayName() string {

	p := stations[s.Station][s.Sensor]
	return p.DisplayName
}

// Level returns the processing level for the product the Sensors
// instance was created with.
func (s *Sensors) Level() string {

	p := stations[s.Station][s.Sensor]
	return p.Level
}

// Products returns the names of all the products hosted at station.
func Products(station string) ([]string, error) {

	products, ok := stations[station]

	if !ok {
		return nil, fmt.Errorf("Unknown station '%s'", station)
	}

	names := make([]string, 0, len(products))

	for name := range products {
		names = append(names, name)
	}

	return names, nil
}
