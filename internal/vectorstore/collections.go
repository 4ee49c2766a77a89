package vectorstore

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// CollectionName maps a (reference set id, document type) pair to a vector
// store collection identifier. The raw id is reduced to lower-case
// alphanumerics; when that reduction removed characters, a short hash of the
// raw id is appended so distinct ids cannot collapse into the same
// collection.
func CollectionName(refSetID, docType string) string {
	var b strings.Builder
	for _, r := range refSetID {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	sid := strings.ToLower(b.String())

	name := strings.ToLower(fmt.Sprintf("refset_%s_%s", sid, docType))
	name = strings.Trim(name, "._-")
	if len(name) < 3 {
		s := sid
		if s == "" {
			s = "0"
		}
		d := docType
		if d == "" {
			d = "ref"
		}
		name = fmt.Sprintf("rs_%s_%s", s, d)
	}

	if len(sid) != len(refSetID) {
		h := fnv.New32a()
		h.Write([]byte(refSetID))
		// Cap the base first so the suffix always survives the length limit.
		if len(name) > 111 {
			name = name[:111]
		}
		name = fmt.Sprintf("%s_%08x", name, h.Sum32())
	}

	if len(name) > 120 {
		name = name[:120]
	}
	return name
}
