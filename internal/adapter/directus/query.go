package directus

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query builds Directus item query parameters.
type Query struct {
	values url.Values
	or     int
}

func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

func (q *Query) Fields(fields ...string) *Query {
	q.values.Set("fields", strings.Join(fields, ","))
	return q
}

func (q *Query) Sort(fields ...string) *Query {
	q.values.Set("sort", strings.Join(fields, ","))
	return q
}

func (q *Query) Limit(n int) *Query {
	q.values.Set("limit", strconv.Itoa(n))
	return q
}

// Filter adds filter[field][op]=value. Operators carry their leading
// underscore, e.g. "_eq".
func (q *Query) Filter(field, op, value string) *Query {
	q.values.Set(fmt.Sprintf("filter[%s][%s]", field, op), value)
	return q
}

// Or adds one alternative to the filter[_or] group.
func (q *Query) Or(field, op, value string) *Query {
	q.values.Set(fmt.Sprintf("filter[_or][%d][%s][%s]", q.or, field, op), value)
	q.or++
	return q
}

func (q *Query) Values() url.Values {
	return q.values
}
