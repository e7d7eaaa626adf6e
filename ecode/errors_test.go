package ecode

import "testing"

func TestMessages(t *testing.T) {
	cases := map[string]string{
		FieldIsRequired("index"):   "index required",
		FieldIsRequired():          "required",
		FieldIsInvalid("operator"): "operator invalid",
		FieldIsEmpty("columns"):    "columns empty",
		NotExist("document"):       "document does not exist",
		NotSupported("matrix"):     "matrix not supported",
		Failed("bulk"):             "bulk failed",
		Exceeds("skip", 10000):     "skip exceeds 10000",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestText(t *testing.T) {
	if Text(ParamErr) != "invalid parameters" {
		t.Fatalf("unexpected text for ParamErr: %s", Text(ParamErr))
	}
	if Text(418) != "I'm a teapot" {
		t.Fatalf("expected http status text fallback, got %s", Text(418))
	}
	if Text(999) != "unknown" {
		t.Fatalf("expected unknown, got %s", Text(999))
	}
	if !IsServerSide(502) || IsServerSide(404) || !IsServerSide(0) {
		t.Fatal("unexpected IsServerSide classification")
	}
}
