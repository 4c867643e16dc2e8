// Package database builds parameterized SQL for the repositories.
package database

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is the comparison a Condition applies.
type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	In                 ConditionType = "IN"
	Custom             ConditionType = "CUSTOM"

	noLimit = -1
)

var rawPlaceholder = regexp.MustCompile(`\$(\d+)`)

// Condition is one AND-ed predicate of the WHERE clause.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
	raw   string
}

// WhereCond compares Field against Value. For In, Value must be a slice; an empty slice drops
// the condition.
func WhereCond(field string, condType ConditionType, value any) Condition {
	if condType == Custom {
		//nolint:forbidigo // raw SQL must go through WhereRawCond.
		panic("database: use WhereRawCond for Custom conditions")
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond adds a raw SQL predicate. Its placeholders start at $1 and are renumbered to
// follow the preceding conditions. The SQL itself is not sanitized.
func WhereRawCond(rawQuery string, params ...any) Condition {
	return Condition{Type: Custom, raw: rawQuery, Value: params}
}

// ListQueryOptions describes a single-table SELECT.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{Table: table, Limit: noLimit}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithOrderBy orders by column. Directions other than ASC and DESC are ignored.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit caps the row count. Zero is a valid limit; negative values are ignored.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithCountOnly selects COUNT(*). With WithLimit the count is taken over a LIMIT-ed subquery,
// so Postgres stops scanning at the limit.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// BuildListQuery renders options as SQL with $n placeholders. Identifiers are quoted.
//
//	BuildListQuery(NewListQueryOptions("messages",
//		WithCountOnly(),
//		WithCondition(WhereCond("subscriber_id", Equal, "sub-1")),
//		WithLimit(100),
//	))
//	// SELECT COUNT(*) FROM (SELECT 1 FROM "messages" WHERE "subscriber_id" = $1 LIMIT $2) AS "bounded"
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}
	args := &argList{}

	from := "FROM " + quote(options.Table)
	if where := whereClause(options.Conditions, args); where != "" {
		from += " WHERE " + where
	}

	switch {
	case options.CountOnly && options.Limit == noLimit:
		return "SELECT COUNT(*) " + from, args.values
	case options.CountOnly:
		return "SELECT COUNT(*) FROM (SELECT 1 " + from + " LIMIT " + args.add(options.Limit) + `) AS "bounded"`, args.values
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columnList(options.Columns))
	b.WriteByte(' ')
	b.WriteString(from)
	if options.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(quote(options.OrderBy))
		if dir := strings.ToUpper(options.OrderDir); dir == "ASC" || dir == "DESC" {
			b.WriteByte(' ')
			b.WriteString(dir)
		}
	}
	if options.Limit != noLimit {
		b.WriteString(" LIMIT ")
		b.WriteString(args.add(options.Limit))
	}
	return b.String(), args.values
}

// argList accumulates bind values and hands out their placeholders.
type argList struct {
	values []any
}

func (a *argList) add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// quote sanitizes an identifier, treating dots as qualifiers ("jobs.status").
func quote(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

func columnList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

func whereClause(conds []Condition, args *argList) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if sql := c.render(args); sql != "" {
			parts = append(parts, sql)
		}
	}
	return strings.Join(parts, " AND ")
}

// render returns the predicate SQL, or "" when the condition contributes nothing.
func (c Condition) render(args *argList) string {
	switch c.Type {
	case Custom:
		return c.renderRaw(args)
	case In:
		if c.Field == "" {
			return ""
		}
		return c.renderIn(args)
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual:
		if c.Field == "" {
			return ""
		}
		return quote(c.Field) + " " + string(c.Type) + " " + args.add(c.Value)
	}
	return ""
}

func (c Condition) renderIn(args *argList) string {
	rv := reflect.ValueOf(c.Value)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return ""
	}
	ph := make([]string, rv.Len())
	for i := range rv.Len() {
		ph[i] = args.add(rv.Index(i).Interface())
	}
	return quote(c.Field) + " IN (" + strings.Join(ph, ", ") + ")"
}

func (c Condition) renderRaw(args *argList) string {
	if c.raw == "" {
		return ""
	}
	params, _ := c.Value.([]any)
	if len(params) == 0 {
		return c.raw
	}
	// Each distinct $n is bound once, even if it appears several times.
	bound := make(map[int]string, len(params))
	return rawPlaceholder.ReplaceAllStringFunc(c.raw, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		if ph, ok := bound[n]; ok {
			return ph
		}
		bound[n] = args.add(params[n-1])
		return bound[n]
	})
}
