package value

import "testing"

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"integral", 3.0, "3"},
		{"simple decimal", 3.14, "3.14"},
		{"trailing zeros trimmed", 1.500, "1.5"},
		{"small", 0.1, "0.1"},
		{"negative", -2.5, "-2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFloat(tt.in); got != tt.want {
				t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		want    string
		wantErr bool
	}{
		{"null", Null(), "null", false},
		{"true", Bool(true), "true", false},
		{"false", Bool(false), "false", false},
		{"int", Int(42), "42", false},
		{"float", Float(3.5), "3.5", false},
		{"string", Str("hello"), "hello", false},
		{"bytes is an error", Bytes([]byte("x")), "", true},
		{"list", List([]Value{Int(1), Int(2)}), "[1,2]", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Stringify()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Stringify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Stringify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int equals float numerically", Int(3), Float(3.0), true},
		{"different strings", Str("a"), Str("b"), false},
		{"same strings", Str("a"), Str("a"), true},
		{"bool mismatch", Bool(true), Bool(false), false},
		{"null equals null", Null(), Null(), true},
		{"lists structurally equal", List([]Value{Int(1), Str("a")}), List([]Value{Int(1), Str("a")}), true},
		{"lists different length", List([]Value{Int(1)}), List([]Value{Int(1), Int(2)}), false},
		{"different kinds", Str("1"), Int(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLess(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Value
		want    bool
		wantErr bool
	}{
		{"int less than int", Int(1), Int(2), true, false},
		{"float less than int", Float(1.5), Int(2), true, false},
		{"strings have no order", Str("a"), Str("b"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Less(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Less() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Less(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name           string
		haystack, needle Value
		want           bool
		wantErr        bool
	}{
		{"string substring", Str("hello world"), Str("world"), true, false},
		{"string missing", Str("hello world"), Str("bye"), false, false},
		{"bytes subslice", Bytes([]byte("abcdef")), Bytes([]byte("cde")), true, false},
		{"list membership", List([]Value{Int(1), Int(2)}), Int(2), true, false},
		{"list non-membership", List([]Value{Int(1), Int(2)}), Int(3), false, false},
		{"contains not applicable to int", Int(1), Int(1), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Contains(tt.haystack, tt.needle)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Contains() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null is empty", Null(), true},
		{"empty string is empty", Str(""), true},
		{"non-empty string is not empty", Str("x"), false},
		{"empty list is empty", List(nil), true},
		{"non-empty list is not empty", List([]Value{Int(1)}), false},
		{"zero int is not empty", Int(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Int(1))
	o.Set("a", Int(2))
	o.Set("m", Int(3))

	want := []string{"z", "a", "m"}
	got := o.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRepr(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"string is quoted", Str("hi"), `"hi"`},
		{"bytes is hex-encoded", Bytes([]byte{0xde, 0xad}), "hex,dead;"},
		{"int is bare", Int(5), "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Repr(); got != tt.want {
				t.Errorf("Repr() = %q, want %q", got, tt.want)
			}
		})
	}
}
