// Package refdata reads the municipality reference file that supplies
// coordinates, population and capital flags keyed by IBGE code.
package refdata

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gyeh/aihstats/internal/normalize"
)

// ErrNoCodeColumn is returned when the header names no municipality code column.
var ErrNoCodeColumn = errors.New("reference file has no cod_municipio or codigo_ibge column")

// Header aliases accepted for each attribute, matched case-insensitively.
var (
	codeHeaders       = []string{"cod_municipio", "codigo_ibge", "cod_ibge", "codigo_municipio"}
	nameHeaders       = []string{"nome_municipio", "municipio", "nome"}
	latitudeHeaders   = []string{"latitude", "lat"}
	longitudeHeaders  = []string{"longitude", "lon", "lng"}
	populationHeaders = []string{"numero_habitantes", "populacao", "population"}
	capitalHeaders    = []string{"capital"}
)

// Municipality is one reference row. Nil fields were blank or unparseable.
type Municipality struct {
	Code       string
	Name       string
	Latitude   *float64
	Longitude  *float64
	Population *int64
	Capital    *bool
}

// Table indexes reference rows by 6-digit municipality code.
type Table struct {
	byCode map[string]Municipality

	HasGeo        bool
	HasPopulation bool
	HasCapital    bool
	// Skipped counts rows whose code could not be normalized.
	Skipped int
	// Duplicates counts rows dropped because their code was already seen.
	Duplicates int
}

// Lookup returns the reference row for a municipality code in either the
// 6- or 7-digit form.
func (t *Table) Lookup(code string) (Municipality, bool) {
	if t == nil {
		return Municipality{}, false
	}
	c, ok := normalize.MunicipalityCode(code)
	if !ok {
		return Municipality{}, false
	}
	m, ok := t.byCode[c]
	return m, ok
}

// Len returns the number of distinct municipalities.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byCode)
}

// Load reads the reference file at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a delimited reference file. The delimiter (',' or ';') is
// taken from the header line, a UTF-8 BOM is ignored, and ';' files may use
// a decimal comma. When a code appears more than once the first row wins.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read reference header: %w", err)
	}
	delim := detectDelimiter(head)

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoCodeColumn
	}
	if err != nil {
		return nil, fmt.Errorf("read reference header: %w", err)
	}
	idx := indexHeader(header)

	codeCol := idx.find(codeHeaders)
	if codeCol < 0 {
		return nil, ErrNoCodeColumn
	}
	nameCol := idx.find(nameHeaders)
	latCol, lonCol := idx.find(latitudeHeaders), idx.find(longitudeHeaders)
	popCol := idx.find(populationHeaders)
	capCol := idx.find(capitalHeaders)

	t := &Table{
		byCode:        make(map[string]Municipality),
		HasGeo:        latCol >= 0 && lonCol >= 0,
		HasPopulation: popCol >= 0,
		HasCapital:    capCol >= 0,
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference line %d: %w", line, err)
		}

		code, ok := normalize.MunicipalityCode(field(rec, codeCol))
		if !ok {
			t.Skipped++
			continue
		}
		if _, dup := t.byCode[code]; dup {
			t.Duplicates++
			continue
		}

		m := Municipality{Code: code, Name: normalize.Name(field(rec, nameCol))}
		if t.HasGeo {
			m.Latitude = parseFloat(field(rec, latCol), delim)
			m.Longitude = parseFloat(field(rec, lonCol), delim)
			if m.Latitude == nil || m.Longitude == nil {
				m.Latitude, m.Longitude = nil, nil
			}
		}
		if t.HasPopulation {
			m.Population = parseCount(field(rec, popCol))
		}
		if t.HasCapital {
			m.Capital = parseBool(field(rec, capCol))
		}
		t.byCode[code] = m
	}
	return t, nil
}

func detectDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

func (h headerIndex) find(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func field(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

func parseFloat(s string, delim rune) *float64 {
	if s == "" {
		return nil
	}
	if delim == ';' {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseCount accepts thousands separators ("2.817.068", "2,817,068").
func parseCount(s string) *int64 {
	s = strings.NewReplacer(".", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseBool(s string) *bool {
	var v bool
	switch strings.ToLower(s) {
	case "1", "true", "t", "sim", "s", "yes", "y":
		v = true
	case "0", "false", "f", "nao", "não", "n", "no":
		v = false
	default:
		return nil
	}
	return &v
}
