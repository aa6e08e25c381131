package portfolio

import (
	"encoding/json"
	"testing"
)

func TestMoney_FloorDiv(t *testing.T) {
	testCases := []struct {
		cash  Money
		price Money
		want  int64
	}{
		{USD(50), USD(20), 2},
		{USD(150), USD(20), 7},
		{USD(19.99), USD(20), 0},
		{USD(200), USD(10.65), 18},
		{USD(0), USD(10), 0},
	}
	for _, tc := range testCases {
		if got := tc.cash.FloorDiv(tc.price).Int(); got != tc.want {
			t.Errorf("%s / %s = %d shares, want %d", tc.cash, tc.price, got, tc.want)
		}
	}
}

func TestMoney_Ratio(t *testing.T) {
	if got := USD(150).Ratio(USD(200)); got != 0.75 {
		t.Errorf("ratio = %v, want 0.75", got)
	}
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(USD(204.35))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"currency":"USD","amount":204.35}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	var j jmoney
	if err := json.Unmarshal(data, &j); err != nil {
		t.Fatal(err)
	}
	if !j.Money().Equal(USD(204.35)) {
		t.Errorf("round trip = %s, want $204.35", j.Money())
	}
}

func TestMoney_DecimalArithmeticIsExact(t *testing.T) {
	// 19 shares at $10.65 is exactly $202.35; float arithmetic would drift.
	total := USD(10.65).Mul(Q(19))
	if !total.Equal(USD(202.35)) {
		t.Errorf("19 * $10.65 = %s, want $202.35", total)
	}
	if got := USD(2).Add(total); !got.Equal(USD(204.35)) {
		t.Errorf("cash after sale = %s, want $204.35", got)
	}
}
