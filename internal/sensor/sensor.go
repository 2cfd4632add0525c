// Package sensor names the remote-sensing modalities agriref reconciles and
// the no-data marker each one uses.
package sensor

import (
	"fmt"
	"strings"
)

// Modality identifies a remote-sensing data source.
type Modality string

const (
	// Backscatter is SAR backscatter intensity.
	Backscatter Modality = "bsc"
	// Coherence is SAR interferometric coherence.
	Coherence Modality = "coh"
	// Optical is multispectral optical reflectance.
	Optical Modality = "s2"
)

// RadarSentinel is the float32 epsilon written by the SAR processors into
// cells without data.
const RadarSentinel = 6.9055e-41

// OpticalSentinel marks optical cells without data. It collides with true
// zero reflectance.
const OpticalSentinel = 0

// All returns every modality in record column order.
func All() []Modality {
	return []Modality{Backscatter, Coherence, Optical}
}

// Parse resolves a modality name, accepting a few common aliases.
func Parse(value string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bsc", "backscatter", "sar":
		return Backscatter, nil
	case "coh", "coherence":
		return Coherence, nil
	case "s2", "optical", "sentinel2", "sentinel-2":
		return Optical, nil
	default:
		return "", fmt.Errorf("unknown modality %q", value)
	}
}

func (m Modality) String() string { return string(m) }

// Sentinels maps each modality to its no-data value.
type Sentinels struct {
	Optical float64
	Radar   float64
}

// DefaultSentinels returns the markers used by the upstream processors.
func DefaultSentinels() Sentinels {
	return Sentinels{Optical: OpticalSentinel, Radar: RadarSentinel}
}

// For returns the sentinel applied to cells of modality m.
func (s Sentinels) For(m Modality) float32 {
	if m == Optical {
		return float32(s.Optical)
	}
	return float32(s.Radar)
}
