// Package cachekey builds the cache keys of the feed count cache.
//
// A Namespace combined with Dimensions gives a Pattern covering every cached variant of one
// subscriber. Resolving a Pattern with a query gives the exact Key of one variant. Reads and
// writes take a Key; invalidation takes either.
package cachekey

import (
	"strconv"
	"strings"

	"github.com/target/notifyd/internal/domain/model"
)

// Namespace groups cached values of one kind.
type Namespace string

const (
	// NamespaceFeed holds cached feed count results.
	NamespaceFeed Namespace = "feed"
	// NamespaceMessageCount holds cached message count results.
	NamespaceMessageCount Namespace = "message_count"

	root = "notifyd"
)

// Namespaces returns every namespace that depends on a subscriber's message state.
func Namespaces() []Namespace {
	return []Namespace{NamespaceFeed, NamespaceMessageCount}
}

// Dimensions identify the owner of a cached value.
type Dimensions struct {
	EnvironmentID string
	SubscriberID  string
}

// Invalidatable is anything the cache invalidation layer can evict.
type Invalidatable interface {
	// CacheTarget returns the key to delete, and whether it is a prefix covering many keys.
	CacheTarget() (target string, prefix bool)
}

// Pattern addresses every key of one namespace for one subscriber.
type Pattern struct {
	prefix string
}

// Key addresses exactly one cached value.
type Key struct {
	value string
}

// Pattern builds the pattern of the namespace for the given dimensions. The subscriber id is
// wrapped in a Redis hash tag so every key of one subscriber lands in the same cluster slot.
func (n Namespace) Pattern(d Dimensions) Pattern {
	var b strings.Builder
	b.WriteString(root)
	b.WriteByte(':')
	b.WriteString(string(n))
	b.WriteByte(':')
	b.WriteString(d.EnvironmentID)
	b.WriteString(":{")
	b.WriteString(d.SubscriberID)
	b.WriteString("}:")
	return Pattern{prefix: b.String()}
}

// Prefix returns the literal prefix shared by every key of the pattern.
func (p Pattern) Prefix() string { return p.prefix }

// IsZero reports whether the pattern was never built.
func (p Pattern) IsZero() bool { return p.prefix == "" }

// CacheTarget implements Invalidatable.
func (p Pattern) CacheTarget() (string, bool) { return p.prefix, true }

func (p Pattern) String() string { return p.prefix + "*" }

// Resolve turns the pattern into the exact key of one query variant.
// Only the filter and limit of the query are used; the dimensions come from the pattern.
func (p Pattern) Resolve(q model.FeedCountQuery) Key {
	var b strings.Builder
	b.WriteString(p.prefix)
	b.WriteString("seen=")
	b.WriteString(triState(q.Seen))
	b.WriteString(":read=")
	b.WriteString(triState(q.Read))
	b.WriteString(":limit=")
	b.WriteString(strconv.Itoa(q.Limit))
	return Key{value: b.String()}
}

// ForQuery resolves the key of a query in the given namespace.
func ForQuery(n Namespace, q model.FeedCountQuery) Key {
	return n.Pattern(Dimensions{EnvironmentID: q.EnvironmentID, SubscriberID: q.SubscriberID}).Resolve(q)
}

// String returns the full cache key.
func (k Key) String() string { return k.value }

// IsZero reports whether the key was never resolved.
func (k Key) IsZero() bool { return k.value == "" }

// CacheTarget implements Invalidatable.
func (k Key) CacheTarget() (string, bool) { return k.value, false }

func triState(v *bool) string {
	if v == nil {
		return "*"
	}
	return strconv.FormatBool(*v)
}

// EscapeGlob escapes the glob metacharacters understood by Redis SCAN MATCH.
func EscapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
