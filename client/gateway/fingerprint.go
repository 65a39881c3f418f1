package gateway

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Fingerprint derives the identity of a request from its method, URL, query
// params and body. Two requests with the same fingerprint are the same
// logical operation regardless of field ordering in params or body.
func Fingerprint(req Request) string {
	hasher := blake3.New()
	_, _ = hasher.WriteString(strings.ToUpper(req.Method))
	_, _ = hasher.WriteString("|")
	_, _ = hasher.WriteString(req.URL)
	_, _ = hasher.WriteString("|")
	_, _ = hasher.WriteString(canonicalParams(req.Params))
	_, _ = hasher.WriteString("|")
	_, _ = hasher.WriteString(canonicalJSON(req.Body))
	return hex.EncodeToString(hasher.Sum(nil))
}

func canonicalParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// canonicalJSON renders v with object keys sorted. Marshaling through an
// untyped value forces map ordering, which encoding/json emits sorted.
func canonicalJSON(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return string(raw)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return string(raw)
	}
	return string(canonical)
}
