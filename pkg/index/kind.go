package index

// Kind identifies an index type. The zero value is KindUnknown.
type Kind string

const (
	KindUnknown    Kind = ""
	KindPrimary    Kind = "primary"
	KindEdge       Kind = "edge"
	KindHash       Kind = "hash"
	KindSkiplist   Kind = "skiplist"
	KindPersistent Kind = "persistent"
	KindGeo        Kind = "geo"
	KindFulltext   Kind = "fulltext"
	KindTTL        Kind = "ttl"
)

// ParseKind maps a server "type" string onto a Kind. Unrecognized values map
// to KindUnknown so newer server index types do not break listings.
func ParseKind(wire string) Kind {
	switch wire {
	case "primary":
		return KindPrimary
	case "edge":
		return KindEdge
	case "hash":
		return KindHash
	case "skiplist":
		return KindSkiplist
	case "persistent":
		return KindPersistent
	case "geo", "geo1", "geo2":
		return KindGeo
	case "fulltext":
		return KindFulltext
	case "ttl":
		return KindTTL
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}

// Creatable reports whether indexes of this kind can be created or deleted
// by callers. Primary and edge indexes are managed by the server.
func (k Kind) Creatable() bool {
	_, ok := rules[k]
	return ok
}
