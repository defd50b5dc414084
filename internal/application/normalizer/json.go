// Package normalizer converts raw Shopify payloads into the platform-neutral
// customer, product and order records. It performs no I/O.
package normalizer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PaidStatus is the financial status Shopify reports for a fully paid order
const PaidStatus = "paid"

// DefaultSKU is used for bulk products whose first variant carries no SKU
const DefaultSKU = "DEFAULT_SKU"

// ExtractID turns a global ID such as gid://shopify/Customer/123?x=1 into "123".
// Plain ids are returned unchanged.
func ExtractID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		gid = gid[i+1:]
	}
	if i := strings.Index(gid, "?"); i >= 0 {
		gid = gid[:i]
	}
	return gid
}

// flexString decodes either a JSON string or a JSON number into its text form
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexFloat decodes a money amount sent either as a string or a number.
// Unparseable values decode to zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

func splitTags(tags string) []string {
	out := []string{}
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.Join([]string{strings.TrimSpace(first), strings.TrimSpace(last)}, " "))
}

func firstPhone(contactPhone string, phones ...string) string {
	if strings.TrimSpace(contactPhone) != "" {
		return contactPhone
	}
	for _, p := range phones {
		if strings.TrimSpace(p) != "" {
			return p
		}
	}
	return ""
}
