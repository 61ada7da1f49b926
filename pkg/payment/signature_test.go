package payment

import "testing"

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event":"payment.completed","reference":"123"}`)
	good := Sign("s3cret", body)

	cases := []struct {
		name   string
		secret string
		body   []byte
		sig    string
		want   bool
	}{
		{name: "valid", secret: "s3cret", body: body, sig: good, want: true},
		{name: "tampered body", secret: "s3cret", body: []byte(`{"event":"payment.completed","reference":"124"}`), sig: good, want: false},
		{name: "wrong secret", secret: "other", body: body, sig: good, want: false},
		{name: "missing signature", secret: "s3cret", body: body, sig: "", want: false},
		{name: "secret unset", secret: "", body: body, sig: Sign("", body), want: false},
	}
	for _, tc := range cases {
		if got := VerifySignature(tc.secret, tc.body, tc.sig); got != tc.want {
			t.Fatalf("%s: VerifySignature=%v want=%v", tc.name, got, tc.want)
		}
	}
}
