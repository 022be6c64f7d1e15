package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval_Range(t *testing.T) {
	iv, err := ParseInterval("2013-01-01-2014-10-10")
	require.NoError(t, err)

	assert.Equal(t, "2013-01-01", iv.Start())
	assert.Equal(t, "2014-10-10", iv.End())
	assert.True(t, iv.Contains("2013-01-01"))
	assert.True(t, iv.Contains("2014-10-09"))
	assert.False(t, iv.Contains("2014-10-10"), "end is exclusive")
	assert.False(t, iv.Contains("2012-12-31"))
}

func TestParseInterval_SingleDay(t *testing.T) {
	iv, err := ParseInterval("2013-12-17")
	require.NoError(t, err)

	assert.True(t, iv.Contains("2013-12-17"))
	assert.False(t, iv.Contains("2013-12-18"))
	assert.Equal(t, []string{"2013-12-17"}, iv.Dates())
}

func TestParseInterval_Invalid(t *testing.T) {
	for _, s := range []string{"", "2013", "2013-01-01-2013-01-01", "2014-10-10-2013-01-01", "not-a-date-not-a-date2"} {
		_, err := ParseInterval(s)
		assert.Error(t, err, s)
	}
}

func TestInterval_Expand(t *testing.T) {
	iv, err := ParseInterval("2013-01-01-2014-10-10")
	require.NoError(t, err)

	expanded := iv.Expand(1)
	assert.Equal(t, "2012-12-31", expanded.Start())
	assert.Equal(t, "2014-10-11", expanded.End())
	assert.True(t, expanded.Contains("2012-12-31"))
	assert.True(t, expanded.Contains("2014-10-10"))

	assert.Equal(t, iv, iv.Expand(0))
	assert.Equal(t, "2012-12-29", iv.Expand(3).Start())
}

func TestInterval_ContainsTimestamp(t *testing.T) {
	iv, err := ParseInterval("2013-01-01-2014-10-10")
	require.NoError(t, err)

	assert.True(t, iv.ContainsTimestamp("2013-09-01T00:00:01.123456"))
	assert.False(t, iv.ContainsTimestamp("2012-09-01T00:00:01.123456"))
	assert.False(t, iv.ContainsTimestamp("bad"))
}

func TestInterval_Dates(t *testing.T) {
	iv, err := ParseInterval("2013-12-30-2014-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2013-12-30", "2013-12-31", "2014-01-01"}, iv.Dates())
}

func TestDatestamp(t *testing.T) {
	assert.Equal(t, "2013-09-01", Datestamp("2013-09-01T00:00:01.123456"))
	assert.Equal(t, "2013-09-01", Datestamp("2013-09-01"))
}
