package raster

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

// AGR is the built-in grid format:
//
//	"AGRD" | uint16 version | uint32 header length | JSON header | zstd(float32 LE cells, band-major)
type AGR struct{}

const (
	agrMagic   = "AGRD"
	agrVersion = 1
	// Headers are tiny; anything larger is a corrupt or foreign file.
	agrMaxHeader = 1 << 16
)

type agrHeader struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Bands     int       `json:"bands"`
	Transform Transform `json:"transform"`
}

// ErrFormat reports input that is not an AGR file.
var ErrFormat = errors.New("raster: not an agr file")

func (AGR) Extension() string { return ".agr" }

func (AGR) Encode(w io.Writer, g *Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	header, err := json.Marshal(agrHeader{Width: g.Width, Height: g.Height, Bands: len(g.Bands), Transform: g.Transform})
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	prefix := make([]byte, 0, len(agrMagic)+6)
	prefix = append(prefix, agrMagic...)
	prefix = binary.LittleEndian.AppendUint16(prefix, agrVersion)
	prefix = binary.LittleEndian.AppendUint32(prefix, uint32(len(header)))
	if _, err := w.Write(prefix); err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	buf := bufio.NewWriter(enc)
	var cell [4]byte
	for _, band := range g.Bands {
		for _, v := range band {
			binary.LittleEndian.PutUint32(cell[:], math.Float32bits(v))
			if _, err := buf.Write(cell[:]); err != nil {
				_ = enc.Close()
				return err
			}
		}
	}
	if err := buf.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (AGR) Decode(r io.Reader) (*Grid, error) {
	prefix := make([]byte, len(agrMagic)+6)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if string(prefix[:4]) != agrMagic {
		return nil, ErrFormat
	}
	if version := binary.LittleEndian.Uint16(prefix[4:6]); version != agrVersion {
		return nil, fmt.Errorf("raster: unsupported agr version %d", version)
	}
	size := binary.LittleEndian.Uint32(prefix[6:10])
	if size == 0 || size > agrMaxHeader {
		return nil, fmt.Errorf("%w: header length %d", ErrFormat, size)
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var header agrHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if header.Width <= 0 || header.Height <= 0 || header.Bands <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d", ErrFormat, header.Width, header.Height, header.Bands)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	g := New(header.Width, header.Height, header.Bands, header.Transform)
	br := bufio.NewReader(dec)
	var cell [4]byte
	for _, band := range g.Bands {
		for i := range band {
			if _, err := io.ReadFull(br, cell[:]); err != nil {
				return nil, fmt.Errorf("read cells: %w", err)
			}
			band[i] = math.Float32frombits(binary.LittleEndian.Uint32(cell[:]))
		}
	}
	return g, g.Validate()
}
