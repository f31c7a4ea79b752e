package service

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductInput carries the product fields supplied by a request. A nil
// field was not supplied. An empty Description or Category clears it.
type ProductInput struct {
	Name        *string  `json:"name" validate:"omitnil,min=1"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
	Category    *string  `json:"category"`
	Stock       *int64   `json:"stock" validate:"omitnil,gte=0"`
	Featured    *bool    `json:"featured"`
}

// Upload is an image file received with a product form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DecodeProductForm converts submitted form values into a ProductInput.
// Only keys present in values are set. Malformed numbers and booleans are
// rejected instead of coerced.
func DecodeProductForm(values url.Values) (ProductInput, error) {
	var in ProductInput

	if v, ok := formValue(values, "name"); ok {
		in.Name = &v
	}
	if v, ok := formValue(values, "description"); ok {
		in.Description = &v
	}
	if v, ok := formValue(values, "category"); ok {
		in.Category = &v
	}

	if v, ok := formValue(values, "price"); ok {
		price, err := ParsePrice(v)
		if err != nil {
			return ProductInput{}, err
		}
		in.Price = &price
	}

	if v, ok := formValue(values, "stock"); ok {
		stock, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ProductInput{}, validationError("stock must be a whole number")
		}
		in.Stock = &stock
	}

	if v, ok := formValue(values, "featured"); ok {
		featured, err := ParseFeatured(v)
		if err != nil {
			return ProductInput{}, err
		}
		in.Featured = &featured
	}

	return in, nil
}

// maxPrice bounds accepted prices; exponents are bounded before rounding
// so "1e999999999" cannot force a huge rescale.
var maxPrice = decimal.New(1, 12)

// ParsePrice parses an exact decimal amount and rounds it to cents.
func ParsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, validationError("price must be a number")
	}
	if exp := d.Exponent(); exp < -32 || exp > 12 || d.Abs().GreaterThan(maxPrice) {
		return 0, validationError("price is out of range")
	}
	return d.Round(2).InexactFloat64(), nil
}

// ParseFeatured accepts true/false, 1/0 and on/off in any case.
func ParseFeatured(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on":
		return true, nil
	case "false", "0", "off":
		return false, nil
	default:
		return false, validationError("featured must be true or false")
	}
}

func formValue(values url.Values, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}
