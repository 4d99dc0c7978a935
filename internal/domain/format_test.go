package domain

import "testing"

func TestFormatQtyAndMoney(t *testing.T) {
	qty := map[float64]string{-4: "-4", 2.5: "2.5", 1.234: "1.23", 0: "0"}
	for in, want := range qty {
		if got := FormatQty(in); got != want {
			t.Errorf("FormatQty(%v) = %q, want %q", in, got, want)
		}
	}
	money := map[float64]string{150: "150.00", -375.5: "-375.50", 0: "0.00"}
	for in, want := range money {
		if got := FormatMoney(in); got != want {
			t.Errorf("FormatMoney(%v) = %q, want %q", in, got, want)
		}
	}
}
