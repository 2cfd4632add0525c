package parcel

import (
	"math"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

const (
	// SaltV1 is appended to every descriptor before hashing. Identities
	// already persisted depend on it; a new salt needs a new version.
	SaltV1 = "43218765"
	// SaltVersion names the salt currently in use.
	SaltVersion = 1

	// PerennialYear marks parcels that are valid for every year.
	PerennialYear = "0000"
	// OpenStartDate and OpenEndDate bound the validity of perennial parcels.
	OpenStartDate = "0001-01-01"
	OpenEndDate   = "9999-12-31"

	// DefaultOrigin tags descriptors produced from the ZEPP boundary set.
	DefaultOrigin = "ZEPP"
)

// Descriptor holds the inputs of identity derivation.
type Descriptor struct {
	Origin     string
	Ring       [][2]float64
	StartDate  string
	EndDate    string
	CropType   string
	BufferDist int
	Area       float64
	Year       string
}

// Canonical renders the descriptor string that is hashed. The format is
// fixed; any change alters every identity.
//
// Coordinates always render in float form ("10.0"). Identities persisted by
// systems that hashed integer-encoded GeoJSON coordinates as "10" are only
// reproduced for boundaries whose coordinates are float-encoded.
func (d Descriptor) Canonical() string {
	origin := d.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	var b strings.Builder
	b.WriteString(`origin: "`)
	b.WriteString(origin)
	b.WriteString(`", geom: `)
	writeRing(&b, d.Ring)
	b.WriteString(", startdate: ")
	b.WriteString(d.StartDate)
	b.WriteString(", enddate: ")
	b.WriteString(d.EndDate)
	b.WriteString(", crop_type: ")
	b.WriteString(d.CropType)
	b.WriteString(", buff_distm: ")
	b.WriteString(strconv.Itoa(d.BufferDist))
	b.WriteString(", size: ")
	b.WriteString(formatFloat(d.Area))
	return b.String()
}

func writeRing(b *strings.Builder, ring [][2]float64) {
	b.WriteByte('[')
	for i, pt := range ring {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		b.WriteString(formatFloat(pt[0]))
		b.WriteString(", ")
		b.WriteString(formatFloat(pt[1]))
		b.WriteByte(']')
	}
	b.WriteByte(']')
}

// formatFloat renders the shortest round-trip decimal, switching to
// exponent notation outside [1e-4, 1e16). Integral values keep a ".0".
func formatFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		switch {
		case math.IsNaN(v):
			return "nan"
		case v > 0:
			return "inf"
		default:
			return "-inf"
		}
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// Identity hashes the canonical descriptor with SaltV1.
func (d Descriptor) Identity() int64 {
	return Hash(d.Canonical(), SaltV1, d.Year)
}

// Hash computes the unsigned 32-bit MurmurHash3 of data+salt, multiplies by
// 100, and adds the last two digits of year. A year without digits adds 0.
func Hash(data, salt, year string) int64 {
	h := murmur3.Sum32([]byte(data + salt))
	return int64(h)*100 + int64(yearSuffix(year))
}

func yearSuffix(year string) int {
	year = strings.TrimSpace(year)
	if len(year) > 2 {
		year = year[len(year)-2:]
	}
	n, err := strconv.Atoi(year)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ValidityRange returns the start and end date attached to a parcel of the
// given year.
func ValidityRange(year string) (string, string) {
	if year == "" || year == PerennialYear {
		return OpenStartDate, OpenEndDate
	}
	return year + "-01-01", year + "-12-31"
}
