package firestore

import (
	"context"
	"fmt"
	"reflect"

	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Op is a where() comparison operator.
type Op string

const (
	LessThan         Op = "<"
	LessOrEqual      Op = "<="
	Equal            Op = "=="
	NotEqual         Op = "!="
	GreaterOrEqual   Op = ">="
	GreaterThan      Op = ">"
	ArrayContains    Op = "array-contains"
	In               Op = "in"
	ArrayContainsAny Op = "array-contains-any"
	NotIn            Op = "not-in"
)

// MaxDisjunction bounds the value list of In, NotIn and ArrayContainsAny.
const MaxDisjunction = 10

func (op Op) valid() bool {
	switch op {
	case LessThan, LessOrEqual, Equal, NotEqual, GreaterOrEqual, GreaterThan, ArrayContains, In, ArrayContainsAny, NotIn:
		return true
	}
	return false
}

func (op Op) takesList() bool {
	return op == In || op == NotIn || op == ArrayContainsAny
}

// Direction is an orderBy() direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type constraintKind string

const (
	kindWhere       constraintKind = "where"
	kindOrderBy     constraintKind = "orderBy"
	kindLimit       constraintKind = "limit"
	kindLimitToLast constraintKind = "limitToLast"
	kindStartAt     constraintKind = "startAt"
	kindStartAfter  constraintKind = "startAfter"
	kindEndAt       constraintKind = "endAt"
	kindEndBefore   constraintKind = "endBefore"
)

type constraint struct {
	kind   constraintKind
	field  string
	op     Op
	dir    Direction
	n      int
	values []any
}

// Query is a value-type query builder. Each method returns a new Query.
type Query struct {
	coll        *CollectionRef
	constraints []constraint
}

// NewQuery starts a query over coll.
func NewQuery(coll *CollectionRef) Query {
	return Query{coll: coll}
}

func (q Query) with(c constraint) Query {
	out := make([]constraint, len(q.constraints), len(q.constraints)+1)
	copy(out, q.constraints)
	q.constraints = append(out, c)
	return q
}

func (q Query) Where(field string, op Op, value any) Query {
	return q.with(constraint{kind: kindWhere, field: field, op: op, values: []any{value}})
}

func (q Query) OrderBy(field string, dir Direction) Query {
	return q.with(constraint{kind: kindOrderBy, field: field, dir: dir})
}

func (q Query) Limit(n int) Query {
	return q.with(constraint{kind: kindLimit, n: n})
}

// LimitToLast keeps the last n results. It requires an OrderBy.
func (q Query) LimitToLast(n int) Query {
	return q.with(constraint{kind: kindLimitToLast, n: n})
}

// StartAt and the other cursors take one value per OrderBy clause, in
// order.
func (q Query) StartAt(values ...any) Query {
	return q.with(constraint{kind: kindStartAt, values: values})
}

func (q Query) StartAfter(values ...any) Query {
	return q.with(constraint{kind: kindStartAfter, values: values})
}

func (q Query) EndAt(values ...any) Query {
	return q.with(constraint{kind: kindEndAt, values: values})
}

func (q Query) EndBefore(values ...any) Query {
	return q.with(constraint{kind: kindEndBefore, values: values})
}

// QuerySpec is a validated query, ready for Documents.
type QuerySpec struct {
	coll        *CollectionRef
	constraints []builtConstraint
}

type builtConstraint struct {
	constraint
	trees []any
}

// Build validates the constraints and serializes their values.
func (q Query) Build() (QuerySpec, error) {
	invalid := func(field, format string, args ...any) error {
		return &fberrors.ValidationError{Builder: "firestore.Query", Field: field, Message: fmt.Sprintf(format, args...)}
	}
	if q.coll == nil {
		return QuerySpec{}, invalid("", "query has no collection")
	}

	var orderBys int
	var limit, limitToLast bool
	built := make([]builtConstraint, 0, len(q.constraints))
	for _, c := range q.constraints {
		switch c.kind {
		case kindWhere:
			if c.field == "" {
				return QuerySpec{}, invalid("where", "field path is empty")
			}
			if !c.op.valid() {
				return QuerySpec{}, invalid("where", "invalid operator %q", c.op)
			}
			if c.op.takesList() {
				n, ok := listLen(c.values[0])
				if !ok {
					return QuerySpec{}, invalid("where", "operator %q needs a slice value", c.op)
				}
				if n == 0 || n > MaxDisjunction {
					return QuerySpec{}, invalid("where", "operator %q takes 1 to %d values, got %d", c.op, MaxDisjunction, n)
				}
			}
		case kindOrderBy:
			if c.field == "" {
				return QuerySpec{}, invalid("orderBy", "field path is empty")
			}
			if c.dir != Asc && c.dir != Desc {
				return QuerySpec{}, invalid("orderBy", "invalid direction %q", c.dir)
			}
			orderBys++
		case kindLimit, kindLimitToLast:
			if c.n <= 0 {
				return QuerySpec{}, invalid(string(c.kind), "must be positive, got %d", c.n)
			}
			if c.kind == kindLimit {
				limit = true
			} else {
				limitToLast = true
			}
		default:
			if len(c.values) == 0 {
				return QuerySpec{}, invalid(string(c.kind), "needs at least one value")
			}
		}

		trees := make([]any, len(c.values))
		for i, v := range c.values {
			tree, err := serde.Encode(v)
			if err != nil {
				return QuerySpec{}, err
			}
			trees[i] = tree
		}
		built = append(built, builtConstraint{constraint: c, trees: trees})
	}

	if limit && limitToLast {
		return QuerySpec{}, invalid("limitToLast", "cannot be combined with limit")
	}
	if limitToLast && orderBys == 0 {
		return QuerySpec{}, invalid("limitToLast", "requires an orderBy clause")
	}
	for _, c := range built {
		switch c.kind {
		case kindStartAt, kindStartAfter, kindEndAt, kindEndBefore:
			if len(c.values) > orderBys {
				return QuerySpec{}, invalid(string(c.kind), "has %d values but the query has %d orderBy clauses", len(c.values), orderBys)
			}
		}
	}
	return QuerySpec{coll: q.coll, constraints: built}, nil
}

func listLen(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0, false
	}
	return rv.Len(), true
}

// materialize builds query(collection, ...constraints). It runs on the JS
// thread.
func (s QuerySpec) materialize() (jsrt.Value, error) {
	fs := s.coll.fs
	args := []jsrt.Value{s.coll.value}
	for _, c := range s.constraints {
		values := make([]jsrt.Value, len(c.trees))
		for i, tree := range c.trees {
			v, err := serde.Materialize(fs.realm, tree)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}

		var cv jsrt.Value
		var err error
		switch c.kind {
		case kindWhere:
			cv, err = fs.call("where", fs.realm.ValueOf(c.field), fs.realm.ValueOf(string(c.op)), values[0])
		case kindOrderBy:
			cv, err = fs.call("orderBy", fs.realm.ValueOf(c.field), fs.realm.ValueOf(string(c.dir)))
		case kindLimit, kindLimitToLast:
			cv, err = fs.call(string(c.kind), fs.realm.ValueOf(c.n))
		default:
			cv, err = fs.call(string(c.kind), values...)
		}
		if err != nil {
			return nil, err
		}
		args = append(args, cv)
	}
	return fs.call("query", args...)
}

// Documents runs the query with getDocs(query(...)).
func Documents(ctx context.Context, spec QuerySpec) (*QuerySnapshot, error) {
	if spec.coll == nil {
		return nil, &fberrors.ValidationError{Builder: "firestore.QuerySpec", Message: "spec was not produced by Query.Build"}
	}
	fs := spec.coll.fs
	return promise.Await(ctx, fs.realm, "firestore.getDocs", func() (jsrt.Value, error) {
		q, err := spec.materialize()
		if err != nil {
			return nil, err
		}
		return fs.call("getDocs", q)
	}, fs.decodeQuerySnapshot)
}
