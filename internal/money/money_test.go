package money

import "testing"

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"2", 2},
		{"1,5", 1.5},
		{"1.5", 1.5},
		{" 0,25 ", 0.25},
		{"0", 0},
		{"-3", 0},
		{"abc", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseQuantity(tc.raw); got != tc.want {
			t.Fatalf("ParseQuantity(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseQuantityStrict(t *testing.T) {
	cases := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"1,5", 1.5, false},
		{"2", 2, false},
		{"", 0, false},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, true},
		{"1,2,3", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseQuantityStrict(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseQuantityStrict(%q) err = %v, wantErr %v", tc.raw, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseQuantityStrict(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestFormatEUR(t *testing.T) {
	if got := FormatEUR(10.5); got != "€10,50" {
		t.Fatalf("FormatEUR(10.5) = %q, want %q", got, "€10,50")
	}
	if got := FormatEUR(6); got != "€6,00" {
		t.Fatalf("FormatEUR(6) = %q, want %q", got, "€6,00")
	}
}

func TestFormatWeight(t *testing.T) {
	if got := FormatWeight(0.5); got != "0,5" {
		t.Fatalf("FormatWeight(0.5) = %q, want %q", got, "0,5")
	}
	if got := FormatWeight(2); got != "2" {
		t.Fatalf("FormatWeight(2) = %q, want %q", got, "2")
	}
}

func TestEPCAmount(t *testing.T) {
	if got := EPCAmount(10); got != "EUR10.00" {
		t.Fatalf("EPCAmount(10) = %q, want %q", got, "EUR10.00")
	}
	if got := EPCAmount(4.005); got != "EUR4.01" {
		t.Fatalf("EPCAmount(4.005) = %q, want %q", got, "EUR4.01")
	}
}
