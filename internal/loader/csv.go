package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"reimburse/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseCSV turns every data row into a record of "header: value" lines.
func parseCSV(r io.Reader, source string) ([]domain.Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.KindMalformedInput, "parse CSV header", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []domain.Record
	for row := 0; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewError(domain.KindMalformedInput,
				fmt.Sprintf("parse CSV row %d", row), err)
		}
		records = append(records, domain.Record{
			Content: rowContent(header, fields),
			Metadata: map[string]string{
				"source": source,
				"row":    strconv.Itoa(row),
			},
		})
	}
	return records, nil
}

func rowContent(header, fields []string) string {
	n := len(header)
	if len(fields) > n {
		n = len(fields)
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := columnName(header, i)
		value := ""
		if i < len(fields) {
			value = strings.TrimSpace(fields[i])
		}
		lines = append(lines, name+": "+value)
	}
	return strings.Join(lines, "\n")
}

func columnName(header []string, i int) string {
	if i < len(header) && header[i] != "" {
		return header[i]
	}
	return "column_" + strconv.Itoa(i)
}
