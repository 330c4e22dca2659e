package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/tidwall/gjson"

	"reimburse/internal/domain"
)

// parseJSON turns each element of a top-level array into one record whose
// content is the element's compact JSON.
func parseJSON(raw []byte, source string) ([]domain.Record, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, domain.NewError(domain.KindMalformedInput, "invalid JSON", nil)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, domain.NewError(domain.KindMalformedInput, "top-level JSON must be an array",
			errors.New("got "+jsonKind(doc)))
	}

	var (
		records []domain.Record
		err     error
	)
	doc.ForEach(func(_, elem gjson.Result) bool {
		var buf bytes.Buffer
		if cerr := json.Compact(&buf, []byte(elem.Raw)); cerr != nil {
			err = domain.NewError(domain.KindMalformedInput, "compact JSON element", cerr)
			return false
		}
		records = append(records, domain.Record{
			Content: buf.String(),
			Metadata: map[string]string{
				"source":  source,
				"seq_num": strconv.Itoa(len(records) + 1),
			},
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func jsonKind(v gjson.Result) string {
	switch v.Type {
	case gjson.JSON:
		if v.IsObject() {
			return "object"
		}
		return "array"
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	default:
		return "null"
	}
}
