package protocol

import "testing"

func TestIsSuccess(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{150, false},
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}

	for _, tc := range cases {
		if got := IsSuccess(tc.code); got != tc.want {
			t.Errorf("IsSuccess(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
