package gitcred

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	in := "protocol=https\nhost=dev.azure.com:443\npath=org/project/_git/repo\nusername=alice\ncapability[]=authtype\nwwwauth[]=Basic realm=\"x\"\n\nignored=after-blank\n"

	rec, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, Record{
		Protocol: "https",
		Host:     "dev.azure.com:443",
		Path:     "org/project/_git/repo",
		Username: "alice",
	}, rec)
}

func TestRead_ValuesMayContainEquals(t *testing.T) {
	rec, err := Read(strings.NewReader("password=a=b==\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "a=b==", rec.Password)
}

func TestRead_Malformed(t *testing.T) {
	for _, in := range []string{"noequals\n", "=value\n", "host=a\x00b\n"} {
		_, err := Read(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrMalformed, "%q", in)
	}
}

func TestRead_Empty(t *testing.T) {
	rec, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Record{Protocol: "https", Host: "github.com", Username: "octocat", Password: "gho_x", URL: "ignored"}))
	assert.Equal(t, "protocol=https\nhost=github.com\nusername=octocat\npassword=gho_x\n", buf.String())

	assert.ErrorIs(t, Write(&buf, Record{Password: "two\nlines"}), ErrMalformed)
}

func TestTargetURL(t *testing.T) {
	tests := []struct {
		rec     Record
		want    string
		wantErr bool
	}{
		{rec: Record{Protocol: "https", Host: "example.com"}, want: "https://example.com"},
		{rec: Record{Protocol: "https", Host: "example.com:8443", Path: "/team/repo.git"}, want: "https://example.com:8443/team/repo.git"},
		{rec: Record{URL: "https://example.com/x", Protocol: "http", Host: "other"}, want: "https://example.com/x"},
		{rec: Record{Host: "example.com"}, wantErr: true},
		{rec: Record{Protocol: "https"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := tt.rec.TargetURL()
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrMalformed)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
