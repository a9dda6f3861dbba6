// Package apifeatures turns untrusted listing parameters (filter operators,
// sort, field selection, pagination) into a query specification for a Mongo
// collection.
//
// Every stage has a value receiver and returns a new APIFeatures, so a
// partially built query can be shared and extended without aliasing. Nothing in
// this package performs I/O: a Spec is executed by a repository.
package apifeatures

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ParamPage   = "page"
	ParamSort   = "sort"
	ParamLimit  = "limit"
	ParamFields = "fields"

	DefaultPage  = 1
	DefaultLimit = 100

	CreatedAtField = "createdAt"
	VersionField   = "__v"
)

var reservedParams = map[string]struct{}{
	ParamPage:   {},
	ParamSort:   {},
	ParamLimit:  {},
	ParamFields: {},
}

// field[op]=value, op being one of the supported comparison operators.
var operatorParam = regexp.MustCompile(`^([^\[\]]+)\[(gte|gt|lte|lt)\]$`)

// Spec is the accumulated query intent. The zero value matches every document
// with no ordering, projection or paging.
type Spec struct {
	Filter     bson.D
	Sort       bson.D
	Projection bson.D
	Skip       int64
	Limit      int64
}

// FilterDocument returns the filter in a form accepted by Find, never nil.
func (s Spec) FilterDocument() bson.D {
	if s.Filter == nil {
		return bson.D{}
	}
	return s.Filter
}

func (s Spec) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(s.Sort) > 0 {
		opts.SetSort(s.Sort)
	}
	if len(s.Projection) > 0 {
		opts.SetProjection(s.Projection)
	}
	if s.Skip > 0 {
		opts.SetSkip(s.Skip)
	}
	if s.Limit > 0 {
		opts.SetLimit(s.Limit)
	}
	return opts
}

func (s Spec) clone() Spec {
	return Spec{
		Filter:     cloneD(s.Filter),
		Sort:       cloneD(s.Sort),
		Projection: cloneD(s.Projection),
		Skip:       s.Skip,
		Limit:      s.Limit,
	}
}

type APIFeatures struct {
	params map[string]string
	spec   Spec
}

// New copies params; the caller's map is never read again after New returns.
func New(params map[string]string) APIFeatures {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return APIFeatures{params: copied}
}

// FromValues keeps the first value of every query-string key.
func FromValues(values url.Values) APIFeatures {
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return APIFeatures{params: params}
}

// Build runs every stage in order: filter, sort, field selection, pagination.
func (f APIFeatures) Build() Spec {
	return f.Filter().Sort().LimitFields().Paginate().Spec()
}

func (f APIFeatures) Spec() Spec {
	return f.spec.clone()
}

// Filter turns every non-reserved parameter into a constraint. Keys written as
// field[gte|gt|lte|lt] become comparison operators, anything else is an exact
// match on a field of the same name. Field names carrying a "$" are dropped so
// a query string can never inject a query operator.
func (f APIFeatures) Filter() APIFeatures {
	exact := map[string]any{}
	ops := map[string]bson.D{}

	for key, raw := range f.params {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		if m := operatorParam.FindStringSubmatch(key); m != nil {
			field, op := m[1], "$"+m[2]
			if !safeField(field) {
				continue
			}
			ops[field] = append(ops[field], bson.E{Key: op, Value: coerce(raw)})
			continue
		}
		if !safeField(key) {
			continue
		}
		exact[key] = coerce(raw)
	}

	fields := make([]string, 0, len(exact)+len(ops))
	for field := range exact {
		fields = append(fields, field)
	}
	for field := range ops {
		if _, ok := exact[field]; !ok {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	filter := bson.D{}
	for _, field := range fields {
		cond, hasOps := ops[field]
		value, hasExact := exact[field]
		switch {
		case hasOps && hasExact:
			sortD(cond)
			filter = append(filter, bson.E{Key: field, Value: append(bson.D{{Key: "$eq", Value: value}}, cond...)})
		case hasOps:
			sortD(cond)
			filter = append(filter, bson.E{Key: field, Value: cond})
		default:
			filter = append(filter, bson.E{Key: field, Value: value})
		}
	}

	next := f.with()
	next.spec.Filter = filter
	return next
}

// Sort applies sort=a,-b as a multi-key sort; newest first otherwise.
func (f APIFeatures) Sort() APIFeatures {
	order := bson.D{}
	seen := map[string]struct{}{}
	for _, field := range splitList(f.params[ParamSort]) {
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		if !safeField(field) {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		order = append(order, bson.E{Key: field, Value: dir})
	}
	if len(order) == 0 {
		order = bson.D{{Key: CreatedAtField, Value: -1}}
	}

	next := f.with()
	next.spec.Sort = order
	return next
}

// LimitFields projects onto fields=a,b. Without a selection everything but the
// internal version field is returned. Exclusions (-a) are honoured only when
// no inclusion is present, since Mongo refuses to mix the two.
func (f APIFeatures) LimitFields() APIFeatures {
	var include, exclude bson.D
	for _, field := range splitList(f.params[ParamFields]) {
		if strings.HasPrefix(field, "-") {
			if name := field[1:]; safeField(name) {
				exclude = append(exclude, bson.E{Key: name, Value: 0})
			}
			continue
		}
		if safeField(field) {
			include = append(include, bson.E{Key: field, Value: 1})
		}
	}

	var projection bson.D
	switch {
	case len(include) > 0:
		projection = include
		for _, e := range exclude {
			if e.Key == "_id" {
				projection = append(projection, e)
			}
		}
	case len(exclude) > 0:
		projection = exclude
	default:
		projection = bson.D{{Key: VersionField, Value: 0}}
	}

	next := f.with()
	next.spec.Projection = projection
	return next
}

// Paginate reads page and limit as positive integers. Anything else falls back
// to page 1 and limit 100; a page past the end simply yields no documents.
func (f APIFeatures) Paginate() APIFeatures {
	page := positiveInt(f.params[ParamPage], DefaultPage)
	limit := positiveInt(f.params[ParamLimit], DefaultLimit)

	skip := int64(math.MaxInt64)
	if page-1 <= math.MaxInt64/limit {
		skip = (page - 1) * limit
	}

	next := f.with()
	next.spec.Skip = skip
	next.spec.Limit = limit
	return next
}

// With returns a copy where key is set to value. Used to preload aliases such
// as the top-five listing before the stages run.
func (f APIFeatures) With(key, value string) APIFeatures {
	next := f.with()
	next.params[key] = value
	return next
}

func (f APIFeatures) with() APIFeatures {
	params := make(map[string]string, len(f.params))
	for k, v := range f.params {
		params[k] = v
	}
	return APIFeatures{params: params, spec: f.spec.clone()}
}

func positiveInt(raw string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// safeField reports whether name can be used as a document path: non-empty
// and free of "$" in every segment.
func safeField(name string) bool {
	return name != "" && !strings.Contains(name, "$")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// coerce gives query-string values the type Mongo needs to compare them
// against stored numbers, booleans and dates.
func coerce(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t
	}
	return raw
}

func sortD(d bson.D) {
	sort.Slice(d, func(i, j int) bool { return d[i].Key < d[j].Key })
}

func cloneD(d bson.D) bson.D {
	if d == nil {
		return nil
	}
	out := make(bson.D, len(d))
	copy(out, d)
	return out
}
