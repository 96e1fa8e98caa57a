package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeSlot(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  TimeSlot
		expectErr bool
	}{
		{raw: "10:00-12:00", expected: TimeSlot{Start: "10:00", End: "12:00"}},
		{raw: " 08:30-09:00 ", expected: TimeSlot{Start: "08:30", End: "09:00"}},
		{raw: "12:00-10:00", expectErr: true},
		{raw: "10:00-10:00", expectErr: true},
		{raw: "9:00-10:00", expectErr: true},
		{raw: "10:00 - 12:00", expectErr: true},
		{raw: "25:00-26:00", expectErr: true},
		{raw: "10:00-10:75", expectErr: true},
		{raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			slot, err := ParseTimeSlot(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, slot)
			assert.Equal(t, tc.expected.Start+"-"+tc.expected.End, slot.String())
		})
	}
}

func TestWindow(t *testing.T) {
	assert.NoError(t, Window("10:00", "12:00"))
	assert.Error(t, Window("12:00", "10:00"))
	assert.Error(t, Window("10:00", ""))
}

func TestDate(t *testing.T) {
	assert.NoError(t, Date("2024-05-01"))
	assert.Error(t, Date("2024-13-01"))
	assert.Error(t, Date("01/05/2024"))
}

func TestParseSystemIDs(t *testing.T) {
	ids, err := ParseSystemIDs("1, 2 15,,  3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 15, 3}, ids)

	ids, err = ParseSystemIDs("   ")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ParseSystemIDs("1, x, 0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x, 0")
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []int{2, 1, 3}, Distinct([]int{2, 1, 2, 3, 1}))
	assert.Empty(t, Distinct(nil))
}
