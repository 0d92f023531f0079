package inventory

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Field names expected in the source sheet header. Additional columns are
// carried through the row maps untouched.
const (
	FieldClientName = "Client_Name"
	FieldBTSName    = "BTS_Name"
	FieldPOPName    = "POP_Name"
	FieldClientIP   = "Client_IP"
	FieldBaseIP     = "Base_IP"
	FieldLoopbackIP = "Loopback_IP"
)

// ParseTable reads the radio-links sheet: a header row of field names
// followed by data rows of matching arity. The delimiter is "|" when the
// header contains one, otherwise ",". Short rows are right-padded with empty
// fields; blank lines are skipped.
func ParseTable(r io.Reader) ([]map[string]string, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		return nil, fmt.Errorf("empty inventory source")
	}

	headerLine := scanner.Text()
	sep := ","
	if strings.Contains(headerLine, "|") {
		sep = "|"
	}

	headers := splitFields(headerLine, sep)

	var rows []map[string]string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := splitFields(line, sep)
		// Pad short rows so every header has a value
		for len(values) < len(headers) {
			values = append(values, "")
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			row[h] = values[i]
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return rows, nil
}

func splitFields(line, sep string) []string {
	parts := strings.Split(line, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
