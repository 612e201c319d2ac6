package models

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// GenreList holds a book's genre tags. Older documents stored the field as a
// single comma-delimited string while newer ones store an array; both shapes
// decode into the same flat list, from BSON and from request JSON alike.
type GenreList []string

func (g *GenreList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeString:
		*g = GenreList(NormalizeGenres([]string{rv.StringValue()}))
	case bson.TypeArray:
		var values []string
		if err := rv.Unmarshal(&values); err != nil {
			return err
		}
		*g = GenreList(NormalizeGenres(values))
	case bson.TypeNull:
		*g = nil
	default:
		return fmt.Errorf("cannot decode %s into a genre list", t)
	}
	return nil
}

func (g *GenreList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*g = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GenreList(NormalizeGenres([]string{s}))
		return nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*g = GenreList(NormalizeGenres(values))
	return nil
}

// NormalizeGenres splits embedded comma lists, trims every value, and drops
// empties and duplicates, preserving first-seen order. The result is never
// nil.
func NormalizeGenres(values []string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// DistinctGenres flattens raw stored genre values into a sorted,
// deduplicated set.
func DistinctGenres(values []string) []string {
	out := NormalizeGenres(values)
	sort.Strings(out)
	return out
}
