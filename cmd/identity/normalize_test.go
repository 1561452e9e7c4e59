package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifierNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		in     Identifier
		want   Identifier
		wantOK bool
	}{
		{name: "email lowered", in: Identifier{Email: "  A@B.com "}, want: Identifier{Email: "a@b.com"}, wantOK: true},
		{name: "email wins", in: Identifier{Email: "a@b.com", CountryCode: "+1", Phone: "5551234"}, want: Identifier{Email: "a@b.com"}, wantOK: true},
		{name: "phone", in: Identifier{CountryCode: "91", Phone: "98765-43210"}, want: Identifier{CountryCode: "+91", Phone: "9876543210"}, wantOK: true},
		{name: "phone without country", in: Identifier{Phone: "9876543210"}},
		{name: "bad email", in: Identifier{Email: "nope"}},
		{name: "short phone", in: Identifier{CountryCode: "+1", Phone: "12"}},
		{name: "empty", in: Identifier{}},
	}

	for _, tc := range cases {
		got, ok := tc.in.Normalize()
		assert.Equal(t, tc.wantOK, ok, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestIdentifierNormalizeAll(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		in     Identifier
		want   Identifier
		wantOK bool
	}{
		{name: "both kept", in: Identifier{Email: " A@B.com", CountryCode: "1", Phone: "555-1234"}, want: Identifier{Email: "a@b.com", CountryCode: "+1", Phone: "5551234"}, wantOK: true},
		{name: "email only", in: Identifier{Email: "a@b.com"}, want: Identifier{Email: "a@b.com"}, wantOK: true},
		{name: "phone only", in: Identifier{CountryCode: "+44", Phone: "7700 900123"}, want: Identifier{CountryCode: "+44", Phone: "7700900123"}, wantOK: true},
		{name: "good email bad phone", in: Identifier{Email: "a@b.com", Phone: "5551234"}},
		{name: "bad email good phone", in: Identifier{Email: "nope", CountryCode: "+1", Phone: "5551234"}},
		{name: "empty", in: Identifier{}},
	}

	for _, tc := range cases {
		got, ok := tc.in.NormalizeAll()
		assert.Equal(t, tc.wantOK, ok, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestIdentifierString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a@b.com", Identifier{Email: "a@b.com"}.String())
	assert.Equal(t, "+15551234", Identifier{CountryCode: "+1", Phone: "5551234"}.String())
}
