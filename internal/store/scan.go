package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// The cells below implement the pgtype scanner interfaces so a column can
// be read into the Go type the record wants whatever its storage type:
// numeric, float, integer or text.

func numericToDecimal(v pgtype.Numeric) (decimal.Decimal, error) {
	if v.NaN || v.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("non-finite numeric")
	}
	if v.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(v.Int, v.Exp), nil
}

// decimalCell reads money columns.
type decimalCell struct {
	v     decimal.Decimal
	valid bool
}

func (c *decimalCell) ScanNumeric(v pgtype.Numeric) error {
	c.valid = v.Valid
	if !v.Valid {
		return nil
	}
	d, err := numericToDecimal(v)
	c.v = d
	return err
}

func (c *decimalCell) ScanFloat64(v pgtype.Float8) error {
	c.valid = v.Valid
	c.v = decimal.NewFromFloat(v.Float64)
	return nil
}

func (c *decimalCell) ScanInt64(v pgtype.Int8) error {
	c.valid = v.Valid
	c.v = decimal.NewFromInt(v.Int64)
	return nil
}

func (c *decimalCell) ScanText(v pgtype.Text) error {
	c.valid = v.Valid && strings.TrimSpace(v.String) != ""
	if !c.valid {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.String))
	c.v = d
	return err
}

func (c *decimalCell) ptr() *decimal.Decimal {
	if !c.valid {
		return nil
	}
	v := c.v
	return &v
}

// intCell reads counts, years and months.
type intCell struct {
	v     int64
	valid bool
}

func (c *intCell) ScanInt64(v pgtype.Int8) error {
	c.v, c.valid = v.Int64, v.Valid
	return nil
}

func (c *intCell) ScanFloat64(v pgtype.Float8) error {
	c.v, c.valid = int64(v.Float64), v.Valid
	return nil
}

func (c *intCell) ScanNumeric(v pgtype.Numeric) error {
	c.valid = v.Valid
	if !v.Valid {
		return nil
	}
	d, err := numericToDecimal(v)
	c.v = d.IntPart()
	return err
}

func (c *intCell) ScanText(v pgtype.Text) error {
	c.valid = v.Valid && strings.TrimSpace(v.String) != ""
	if !c.valid {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v.String), 10, 64)
	c.v = n
	return err
}

func (c *intCell) ptr() *int64 {
	if !c.valid {
		return nil
	}
	v := c.v
	return &v
}

// floatCell reads coordinates.
type floatCell struct {
	v     float64
	valid bool
}

func (c *floatCell) ScanFloat64(v pgtype.Float8) error {
	c.v, c.valid = v.Float64, v.Valid
	return nil
}

func (c *floatCell) ScanInt64(v pgtype.Int8) error {
	c.v, c.valid = float64(v.Int64), v.Valid
	return nil
}

func (c *floatCell) ScanNumeric(v pgtype.Numeric) error {
	c.valid = v.Valid
	if !v.Valid {
		return nil
	}
	d, err := numericToDecimal(v)
	c.v = d.InexactFloat64()
	return err
}

func (c *floatCell) ScanText(v pgtype.Text) error {
	c.valid = v.Valid && strings.TrimSpace(v.String) != ""
	if !c.valid {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
	c.v = f
	return err
}

func (c *floatCell) ptr() *float64 {
	if !c.valid {
		return nil
	}
	v := c.v
	return &v
}

// textCell reads labels and codes. Integer-typed codes are formatted.
type textCell struct {
	v     string
	valid bool
}

func (c *textCell) ScanText(v pgtype.Text) error {
	c.v, c.valid = v.String, v.Valid
	return nil
}

func (c *textCell) ScanInt64(v pgtype.Int8) error {
	c.v, c.valid = strconv.FormatInt(v.Int64, 10), v.Valid
	return nil
}

func (c *textCell) ScanNumeric(v pgtype.Numeric) error {
	c.valid = v.Valid
	if !v.Valid {
		return nil
	}
	d, err := numericToDecimal(v)
	c.v = d.String()
	return err
}

// boolCell reads the capital flag from boolean, integer or text storage.
type boolCell struct {
	v     bool
	valid bool
}

func (c *boolCell) ScanBool(v pgtype.Bool) error {
	c.v, c.valid = v.Bool, v.Valid
	return nil
}

func (c *boolCell) ScanInt64(v pgtype.Int8) error {
	c.v, c.valid = v.Int64 != 0, v.Valid
	return nil
}

func (c *boolCell) ScanText(v pgtype.Text) error {
	if !v.Valid {
		c.valid = false
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(v.String)) {
	case "1", "t", "true", "s", "sim", "y", "yes":
		c.v, c.valid = true, true
	case "0", "f", "false", "n", "nao", "não", "no":
		c.v, c.valid = false, true
	default:
		c.valid = false
	}
	return nil
}

func (c *boolCell) ptr() *bool {
	if !c.valid {
		return nil
	}
	v := c.v
	return &v
}

var (
	_ pgtype.NumericScanner = (*decimalCell)(nil)
	_ pgtype.Float64Scanner = (*decimalCell)(nil)
	_ pgtype.Int64Scanner   = (*decimalCell)(nil)
	_ pgtype.TextScanner    = (*decimalCell)(nil)
	_ pgtype.Int64Scanner   = (*intCell)(nil)
	_ pgtype.Float64Scanner = (*floatCell)(nil)
	_ pgtype.TextScanner    = (*textCell)(nil)
	_ pgtype.BoolScanner    = (*boolCell)(nil)
)
