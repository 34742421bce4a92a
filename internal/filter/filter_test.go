package filter

import "testing"

func obj(pairs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1]
	}
	return m
}

func TestEqualsScalar(t *testing.T) {
	f := NewEqualsFilter("category", "tech")
	if !f.Matches(obj("category", "tech")) {
		t.Fatal("expected match")
	}
	if f.Matches(obj("category", "news")) {
		t.Fatal("expected no match")
	}
	if f.Matches(obj("other", "tech")) {
		t.Fatal("missing field must not match")
	}
}

func TestEqualsArrayContains(t *testing.T) {
	f := NewEqualsFilter("tags", "rare")
	if !f.Matches(obj("tags", []interface{}{"common", "rare"})) {
		t.Fatal("expected array-contains match")
	}
	if f.Matches(obj("tags", []interface{}{"common"})) {
		t.Fatal("expected no match")
	}
}

func TestEqualsDotPath(t *testing.T) {
	f := NewEqualsFilter("a.b.c", float64(3))
	data := obj("a", obj("b", obj("c", float64(3))))
	if !f.Matches(data) {
		t.Fatal("expected nested match")
	}
}

func TestRangeInclusiveBounds(t *testing.T) {
	min, max := 10.0, 20.0
	f := NewRangeFilter("views", &min, &max)
	if !f.Matches(obj("views", float64(10))) {
		t.Fatal("lower bound inclusive")
	}
	if !f.Matches(obj("views", float64(20))) {
		t.Fatal("upper bound inclusive")
	}
	if f.Matches(obj("views", float64(21))) {
		t.Fatal("expected out of range")
	}
}

func TestRangeNonNumericEvaluatesFalse(t *testing.T) {
	min := 1.0
	f := NewRangeFilter("views", &min, nil)
	if f.Matches(obj("views", "not-a-number")) {
		t.Fatal("range on non-numeric field must evaluate false, not error")
	}
}

func TestAndEmptyIsTrue(t *testing.T) {
	f := NewAndFilter()
	if !f.Matches(obj()) {
		t.Fatal("empty And must be true")
	}
}

func TestOrEmptyIsFalse(t *testing.T) {
	f := NewOrFilter()
	if f.Matches(obj()) {
		t.Fatal("empty Or must be false")
	}
}

func TestParseEmptyObjectRejected(t *testing.T) {
	_, err := ParseJSON([]byte(`{}`))
	if err == nil {
		t.Fatal("expected InvalidSyntax for empty object")
	}
}

func TestParseImplicitAnd(t *testing.T) {
	f, err := ParseJSON([]byte(`{"category":"tech","views":{"$gte":1000}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.Matches(obj("category", "tech", "views", float64(1500))) {
		t.Fatal("expected match")
	}
	if f.Matches(obj("category", "tech", "views", float64(500))) {
		t.Fatal("expected no match")
	}
}

func TestParseAndOperator(t *testing.T) {
	f, err := ParseJSON([]byte(`{"$and":[{"category":"tech"},{"views":{"$gte":1000}}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.Matches(obj("category", "tech", "views", float64(1500))) {
		t.Fatal("expected match")
	}
}

func TestParseInOperator(t *testing.T) {
	f, err := ParseJSON([]byte(`{"category":{"$in":["tech","science"]}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.Matches(obj("category", "science")) {
		t.Fatal("expected match")
	}
	if f.Matches(obj("category", "news")) {
		t.Fatal("expected no match")
	}
}

func TestParseUnknownOperatorRejected(t *testing.T) {
	_, err := ParseJSON([]byte(`{"$foo":[]}`))
	if err == nil {
		t.Fatal("expected error for unsupported operator")
	}
}

func TestScenarioBMetadataFilter(t *testing.T) {
	f, err := ParseJSON([]byte(`{"$and":[{"category":"tech"},{"views":{"$gte":1000}}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	metas := []map[string]interface{}{
		obj("category", "tech", "views", float64(500)),
		obj("category", "tech", "views", float64(1500)),
		obj("category", "news", "views", float64(2000)),
		obj("category", "tech", "views", float64(800), "published", true),
	}
	var matched []int
	for i, m := range metas {
		if f.Matches(m) {
			matched = append(matched, i)
		}
	}
	if len(matched) != 1 || matched[0] != 1 {
		t.Fatalf("expected only index 1 to match, got %v", matched)
	}
}
